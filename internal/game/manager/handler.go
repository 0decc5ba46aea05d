package manager

import (
	"errors"
	"net/http"

	"HoldemTable/internal/game/engine"
	"HoldemTable/internal/game/round"
	"HoldemTable/internal/game/store"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	engine *engine.Engine
}

func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

type tableRequest struct {
	GameID string `json:"gameId" binding:"required"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, round.ErrInvalidStage),
		errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, engine.ErrAlreadySeated):
		return http.StatusConflict
	case errors.Is(err, round.ErrUnknownPlayer),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// POST /table/ready  body: {gameId}
func (h *Handler) Ready(c *gin.Context) {
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr := c.GetString("address")
	g, advanced, err := h.engine.PlayerReady(c.Request.Context(), req.GameID, addr)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"advanced": advanced, "state": g.PublicView(addr)})
}

// POST /table/wait  body: {gameId}
func (h *Handler) Wait(c *gin.Context) {
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr := c.GetString("address")
	g, err := h.engine.JoinWaitingList(c.Request.Context(), req.GameID, addr)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": g.PublicView(addr)})
}

// GET /table/:id
func (h *Handler) State(c *gin.Context) {
	g, err := h.engine.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": g.PublicView(c.GetString("address"))})
}
