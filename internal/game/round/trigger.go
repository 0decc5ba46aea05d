package round

import (
	"fmt"
	"time"

	"HoldemTable/internal/game/table"
)

const DefaultReadyTimeout = 30 * time.Second

// Trigger decides when a finished hand rolls over into the next one.
// It holds no table state; every call maps one snapshot to a new one.
type Trigger struct {
	timeout time.Duration
	decks   DeckSource
}

func NewTrigger(timeout time.Duration, decks DeckSource) *Trigger {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	return &Trigger{timeout: timeout, decks: decks}
}

// Ready reports whether every player who can cover the big blind has signalled.
// Short-stacked players cannot play the next hand and never block it.
func (t *Trigger) Ready(g *table.GameState) bool {
	for _, p := range g.Players {
		if p.Chips >= g.InitialBigBlind && !p.IsReady {
			return false
		}
	}
	return true
}

// TimedOut reports whether the ready window has elapsed at now. A missing
// gameOver timestamp counts as elapsed.
func (t *Trigger) TimedOut(g *table.GameState, now time.Time) bool {
	if g.GameOverTimeStamp == nil {
		return true
	}
	return now.Sub(*g.GameOverTimeStamp) >= t.timeout
}

// OnPlayerReady marks playerID ready and starts the next hand when everyone
// eligible is ready or the ready window has elapsed. g is never modified.
func (t *Trigger) OnPlayerReady(g *table.GameState, playerID string, now time.Time) (*table.GameState, bool, error) {
	if g.Stage != table.StageGameOver {
		return nil, false, fmt.Errorf("%w: table %s is in %s", ErrInvalidStage, g.ID, g.Stage)
	}
	idx := g.PlayerIndex(playerID)
	if idx < 0 {
		return nil, false, fmt.Errorf("%w: %s at table %s", ErrUnknownPlayer, playerID, g.ID)
	}

	next := g.Clone()
	next.Players[idx].IsReady = true
	return t.advance(next, now)
}

// OnTimeoutTick is the sweep entry point: it advances a gameOver table whose
// ready condition holds without any player signalling.
func (t *Trigger) OnTimeoutTick(g *table.GameState, now time.Time) (*table.GameState, bool, error) {
	if g.Stage != table.StageGameOver {
		return nil, false, fmt.Errorf("%w: table %s is in %s", ErrInvalidStage, g.ID, g.Stage)
	}
	return t.advance(g.Clone(), now)
}

func (t *Trigger) advance(g *table.GameState, now time.Time) (*table.GameState, bool, error) {
	if !t.Ready(g) && !t.TimedOut(g, now) {
		return g, false, nil
	}

	seated, seating := ResolveSeating(g)
	if !seating.Committed {
		// stalled below MinPlayers; re-evaluated on the next signal or sweep
		return g, false, nil
	}

	dealt, err := DealNewHand(seated, t.decks.NewDeck())
	if err != nil {
		return nil, false, err
	}
	return dealt, true, nil
}
