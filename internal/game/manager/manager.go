package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"HoldemTable/internal/game/engine"
	"HoldemTable/internal/matchmaker"
	"HoldemTable/internal/websocket"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

const (
	EventPlayerReady = "player_ready"
	EventJoinWaiting = "join_waiting"
	EventChat        = "chat"
	EventError       = "error"
)

const messageTimeout = 5 * time.Second

var ErrNoTable = errors.New("no table")

// GameManager routes player messages to the engine and runs the timeout sweeper.
type GameManager struct {
	mu           sync.RWMutex
	playerToRoom map[string]string // player address → last table they were matched to

	engine *engine.Engine
	hub    websocket.HubInterface
	clock  quartz.Clock
	logger *log.Logger
}

func NewGameManager(eng *engine.Engine, hub websocket.HubInterface, clock quartz.Clock, logger *log.Logger) *GameManager {
	return &GameManager{
		playerToRoom: make(map[string]string),
		engine:       eng,
		hub:          hub,
		clock:        clock,
		logger:       logger,
	}
}

// StartRoom opens a table for a matched room.
func (m *GameManager) StartRoom(ctx context.Context, r *matchmaker.Room) error {
	if _, err := m.engine.CreateTable(ctx, r.ID, r.Players); err != nil {
		return fmt.Errorf("start room %s: %w", r.ID, err)
	}

	m.mu.Lock()
	for _, p := range r.Players {
		m.playerToRoom[p] = r.ID
	}
	m.mu.Unlock()
	return nil
}

type tableMessage struct {
	GameID string `json:"gameId"`
	Text   string `json:"text,omitempty"`
}

// resolveTable picks the table a message is about: the gameId in the payload,
// or the sender's last matched room.
func (m *GameManager) resolveTable(from string, raw json.RawMessage) (tableMessage, error) {
	var tm tableMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tm); err != nil {
			return tm, fmt.Errorf("bad payload: %w", err)
		}
	}
	if tm.GameID == "" {
		m.mu.RLock()
		tm.GameID = m.playerToRoom[from]
		m.mu.RUnlock()
	}
	if tm.GameID == "" {
		return tm, fmt.Errorf("%w for %s", ErrNoTable, from)
	}
	return tm, nil
}

// HandlePlayerMessage is the hub's OnIncoming. Failures are reported to the
// sender only.
func (m *GameManager) HandlePlayerMessage(msg websocket.IncomingMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	if err := m.dispatch(ctx, msg); err != nil {
		m.logger.Warn("player message", "from", msg.From, "event", msg.Event, "err", err)
		m.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
			Event: EventError,
			Data:  map[string]string{"error": err.Error()},
		})
	}
}

func (m *GameManager) dispatch(ctx context.Context, msg websocket.IncomingMessage) error {
	switch msg.Event {
	case EventPlayerReady, EventJoinWaiting, EventChat:
	default:
		return fmt.Errorf("unknown event %q", msg.Event)
	}

	tm, err := m.resolveTable(msg.From, msg.Data)
	if err != nil {
		return err
	}

	switch msg.Event {
	case EventPlayerReady:
		_, _, err = m.engine.PlayerReady(ctx, tm.GameID, msg.From)
		return err

	case EventJoinWaiting:
		_, err = m.engine.JoinWaitingList(ctx, tm.GameID, msg.From)
		return err

	default:
		g, err := m.engine.State(ctx, tm.GameID)
		if err != nil {
			return err
		}
		if g.PlayerIndex(msg.From) < 0 && !g.IsWaiting(msg.From) {
			return fmt.Errorf("%s is not at table %s", msg.From, tm.GameID)
		}
		m.hub.BroadcastToPlayers(g.Addresses(), websocket.OutgoingMessage{
			Event: EventChat,
			Data: map[string]any{
				"gameId": tm.GameID,
				"from":   msg.From,
				"text":   tm.Text,
			},
		})
		return nil
	}
}

// RunSweeper sweeps every interval until ctx is done.
func (m *GameManager) RunSweeper(ctx context.Context, interval time.Duration) error {
	m.logger.Info("sweeper started", "interval", interval)
	w := m.clock.TickerFunc(ctx, interval, func() error {
		dealt, err := m.engine.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			m.logger.Error("sweep", "err", err)
		}
		if dealt > 0 {
			m.logger.Debug("sweep", "dealt", dealt)
		}
		return nil
	}, "sweeper")

	err := w.Wait()
	m.logger.Info("sweeper stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
