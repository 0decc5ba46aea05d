package round

import (
	"fmt"

	"HoldemTable/internal/game/dealer"
	"HoldemTable/internal/game/table"
)

const holeCards = 2

// DeckSource hands out a freshly shuffled 52-card deck for each hand.
type DeckSource interface {
	NewDeck() dealer.Deck
}

// DealNewHand posts the blinds, deals two hole cards per seat from the top of deck
// in seat order and opens preflop betting. g is not modified; deck is consumed from
// a private copy.
//
// A blind poster short of the blind posts everything they have and is all-in. A
// poster with no chips at all cannot post and fails with ErrInsufficientChips.
func DealNewHand(g *table.GameState, deck dealer.Deck) (*table.GameState, error) {
	if g.Stage != table.StagePreDealing {
		return nil, fmt.Errorf("%w: deal requires %s, table is %s", ErrInvalidStage, table.StagePreDealing, g.Stage)
	}
	n := len(g.Players)
	if n == 0 || n < g.MinPlayers {
		return nil, fmt.Errorf("%w: %d seated, %d required", ErrNotEnoughPlayers, n, g.MinPlayers)
	}
	if len(deck) < n*holeCards {
		return nil, fmt.Errorf("%w: %d cards for %d players", dealer.ErrDeckExhausted, len(deck), n)
	}

	if g.SmallBlindIndex < 0 || g.SmallBlindIndex >= n {
		return nil, fmt.Errorf("%w: small blind index %d outside %d seats", ErrCorruptState, g.SmallBlindIndex, n)
	}

	next := g.Clone()
	stack := append(dealer.Deck(nil), deck...)

	sb := next.SmallBlindIndex
	bb := (sb + 1) % n
	smallBlind, bigBlind := next.SmallBlind(), next.InitialBigBlind

	for i := range next.Players {
		p := &next.Players[i]
		var blind int64
		switch i {
		case sb:
			blind = smallBlind
		case bb:
			blind = bigBlind
		}
		if blind > 0 {
			if p.Chips <= 0 {
				return nil, fmt.Errorf("%w: player %s cannot post blind %d", ErrInsufficientChips, p.ID, blind)
			}
			posted := min(blind, p.Chips)
			p.Chips -= posted
			p.Bet += posted
			p.PotContribution += posted
			p.IsAllIn = p.Chips == 0
			next.Pot += posted
		}

		cards, err := stack.Deal(holeCards)
		if err != nil {
			return nil, err
		}
		p.Hand = cards
	}

	next.Deck = stack
	next.HighestBet = bigBlind
	next.BettingStarted = true
	next.CurrentTurn = (bb + 1) % n
	next.Stage = table.StagePreFlop
	return next, nil
}
