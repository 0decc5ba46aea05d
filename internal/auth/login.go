package auth

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	nonceTTL = 5 * time.Minute
	tokenTTL = 24 * time.Hour
)

type LoginRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
}

type Handler struct {
	nonces NonceStore
	secret []byte
	logger *log.Logger
	now    func() time.Time
}

func NewHandler(nonces NonceStore, secret []byte, logger *log.Logger) *Handler {
	return &Handler{nonces: nonces, secret: secret, logger: logger, now: time.Now}
}

// LoginMessage is the text the wallet signs with personal_sign.
func LoginMessage(nonce string) string {
	return "Sign this message to sit at a HoldemTable table. Nonce: " + nonce
}

// personalHash matches MetaMask personal_sign hashing.
func personalHash(msg string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return crypto.Keccak256([]byte(prefixed))
}

// RecoverAddress returns the checksummed address that produced sig over msg.
func RecoverAddress(msg, sig string) (string, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		return "", fmt.Errorf("signature is not hex: %w", err)
	}
	if len(sigBytes) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sigBytes))
	}
	if sigBytes[crypto.RecoveryIDOffset] >= 27 {
		sigBytes[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(personalHash(msg), sigBytes)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// IssueToken signs an HS256 JWT whose subject is address.
func IssueToken(secret []byte, address string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   address,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// GET|POST /auth/nonce
func (h *Handler) Nonce(c *gin.Context) {
	nonce, err := generateNonce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate nonce"})
		return
	}
	if err := h.nonces.Put(c.Request.Context(), nonce, nonceTTL); err != nil {
		h.logger.Error("store nonce", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store nonce"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": nonce, "message": LoginMessage(nonce)})
}

// POST /auth/login body: {address, signature, nonce}
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ok, err := h.nonces.Consume(c.Request.Context(), req.Nonce)
	if err != nil {
		h.logger.Error("consume nonce", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "nonce lookup failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid nonce"})
		return
	}

	recovered, err := RecoverAddress(LoginMessage(req.Nonce), req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verify failed"})
		return
	}
	if !strings.EqualFold(recovered, req.Address) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature mismatch"})
		return
	}

	token, err := IssueToken(h.secret, recovered, h.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt generation failed"})
		return
	}
	h.logger.Info("login", "address", recovered)
	c.JSON(http.StatusOK, gin.H{"jwt": token, "address": recovered})
}
