package engine

import (
	"context"
	"errors"
	"fmt"

	"HoldemTable/internal/game/round"
	"HoldemTable/internal/game/store"
	"HoldemTable/internal/game/table"
	"HoldemTable/internal/websocket"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

var ErrAlreadySeated = errors.New("already seated")

var (
	// errUnchanged aborts an update without writing.
	errUnchanged = errors.New("unchanged")
	// errAbandoned marks a finished table nobody can play at again.
	errAbandoned = errors.New("abandoned")
)

const (
	EventTableState  = "tableState"
	EventPlayerReady = "playerReady"
	EventNewHand     = "newHand"
	EventDealHole    = "deal_hole"
)

type Options struct {
	Settings   table.Settings
	MaxRetries int
	Clock      quartz.Clock
	Logger     *log.Logger
}

// Engine applies round transitions to stored tables and tells the players.
// It is stateless between calls, so any number of engines may share a store.
type Engine struct {
	store      store.Store
	trigger    *round.Trigger
	hub        websocket.HubInterface
	clock      quartz.Clock
	settings   table.Settings
	maxRetries int
	logger     *log.Logger
}

func NewEngine(s store.Store, trigger *round.Trigger, hub websocket.HubInterface, opts Options) *Engine {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Engine{
		store:      s,
		trigger:    trigger,
		hub:        hub,
		clock:      opts.Clock,
		settings:   opts.Settings,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
	}
}

// CreateTable seats playerIDs at a new table that waits in gameOver for its first hand.
func (e *Engine) CreateTable(ctx context.Context, gameID string, playerIDs []string) (*table.GameState, error) {
	g := table.NewGameState(gameID, playerIDs, e.settings, e.clock.Now())
	if err := e.store.Create(ctx, g); err != nil {
		return nil, err
	}
	e.logger.Info("table created", "game", gameID, "seated", len(g.Players), "waiting", len(g.WaitingPlayers))
	e.notify(g, EventTableState)
	return g, nil
}

func (e *Engine) State(ctx context.Context, gameID string) (*table.GameState, error) {
	g, _, err := e.store.Load(ctx, gameID)
	return g, err
}

// PlayerReady records playerID's ready signal and deals the next hand when the
// table's ready condition holds.
func (e *Engine) PlayerReady(ctx context.Context, gameID, playerID string) (*table.GameState, bool, error) {
	next, advanced, err := e.update(ctx, gameID, func(g *table.GameState) (*table.GameState, bool, error) {
		return e.trigger.OnPlayerReady(g, playerID, e.clock.Now())
	})
	if err != nil {
		return nil, false, err
	}
	e.logger.Debug("player ready", "game", gameID, "player", playerID, "advanced", advanced)
	if advanced {
		e.notify(next, EventNewHand)
	} else {
		e.notify(next, EventPlayerReady)
	}
	return next, advanced, nil
}

// JoinWaitingList queues playerID for the next free seat at gameID.
func (e *Engine) JoinWaitingList(ctx context.Context, gameID, playerID string) (*table.GameState, error) {
	next, _, err := e.update(ctx, gameID, func(g *table.GameState) (*table.GameState, bool, error) {
		if g.PlayerIndex(playerID) >= 0 || g.IsWaiting(playerID) {
			return nil, false, fmt.Errorf("%w: %s at table %s", ErrAlreadySeated, playerID, gameID)
		}
		next := g.Clone()
		next.WaitingPlayers = append(next.WaitingPlayers, playerID)
		return next, false, nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("player waiting", "game", gameID, "player", playerID, "queue", len(next.WaitingPlayers))
	e.notify(next, EventTableState)
	return next, nil
}

// Sweep advances every gameOver table whose ready window has elapsed and deletes
// timed-out tables with nobody left to seat. A failing table is logged and
// skipped. It returns the number of hands dealt.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	ids, err := e.store.List(ctx)
	if err != nil {
		return 0, err
	}

	dealt := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return dealt, err
		}
		next, _, err := e.update(ctx, id, func(g *table.GameState) (*table.GameState, bool, error) {
			if g.Stage != table.StageGameOver {
				return nil, false, errUnchanged
			}
			if abandoned(g) && e.trigger.TimedOut(g, e.clock.Now()) {
				return nil, false, errAbandoned
			}
			next, advanced, err := e.trigger.OnTimeoutTick(g, e.clock.Now())
			if err != nil {
				return nil, false, err
			}
			if !advanced {
				return nil, false, errUnchanged
			}
			return next, true, nil
		})
		switch {
		case errors.Is(err, errUnchanged), errors.Is(err, store.ErrNotFound):
			continue
		case errors.Is(err, errAbandoned):
			if err := e.store.Delete(ctx, id); err != nil {
				e.logger.Error("delete abandoned table", "game", id, "err", err)
			} else {
				e.logger.Info("abandoned table deleted", "game", id)
			}
			continue
		case err != nil:
			e.logger.Error("sweep", "game", id, "err", err)
			continue
		}
		dealt++
		e.logger.Info("hand dealt on timeout", "game", id, "players", next.PlayerCount)
		e.notify(next, EventNewHand)
	}
	return dealt, nil
}

// abandoned reports whether no seated player can cover the big blind and nobody
// is waiting for a seat.
func abandoned(g *table.GameState) bool {
	if len(g.WaitingPlayers) > 0 {
		return false
	}
	for _, p := range g.Players {
		if p.Chips >= g.InitialBigBlind {
			return false
		}
	}
	return true
}

// update loads gameID, applies fn and saves the result against the loaded
// version. On a version conflict fn is re-applied to a fresh snapshot, up to
// maxRetries attempts in total.
func (e *Engine) update(ctx context.Context, gameID string, fn func(*table.GameState) (*table.GameState, bool, error)) (*table.GameState, bool, error) {
	var conflict error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		g, version, err := e.store.Load(ctx, gameID)
		if err != nil {
			return nil, false, err
		}
		next, advanced, err := fn(g)
		if err != nil {
			return nil, false, err
		}
		_, err = e.store.Save(ctx, gameID, next, version)
		if err == nil {
			return next, advanced, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, false, err
		}
		conflict = err
		e.logger.Debug("version conflict", "game", gameID, "attempt", attempt)
	}
	return nil, false, fmt.Errorf("%d attempts: %w", e.maxRetries, conflict)
}

// notify sends every attached address its own view of g. After a deal each
// seated player also gets their hole cards privately.
func (e *Engine) notify(g *table.GameState, event string) {
	for _, addr := range g.Addresses() {
		e.hub.SendToPlayer(addr, websocket.OutgoingMessage{Event: event, Data: g.PublicView(addr)})
	}
	if event != EventNewHand {
		return
	}
	for _, p := range g.Players {
		e.hub.SendToPlayer(p.ID, websocket.OutgoingMessage{
			Event: EventDealHole,
			Data: map[string]any{
				"gameId":   g.ID,
				"position": p.Position,
				"cards":    p.Hand,
			},
		})
	}
}
