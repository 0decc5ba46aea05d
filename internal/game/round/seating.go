package round

import "HoldemTable/internal/game/table"

// Seating describes what ResolveSeating did to the roster.
type Seating struct {
	// Committed is false when the new roster would be below MinPlayers; the table
	// then stays in gameOver untouched.
	Committed bool
	Promoted  []string
	Removed   []string
}

// ResolveSeating computes the next hand's roster from g without modifying g.
//
// Players holding at least the big blind keep their seats in order; the rest are
// dropped. Free seats up to MaxPlayers are filled from the head of the waiting list.
// On commit the small blind moves one seat, every per-hand field is reset and the
// table enters preDealing.
func ResolveSeating(g *table.GameState) (*table.GameState, Seating) {
	next := g.Clone()

	eligible := make([]table.Player, 0, len(next.Players))
	var removed []string
	for _, p := range next.Players {
		if p.Chips >= next.InitialBigBlind {
			eligible = append(eligible, p)
		} else {
			removed = append(removed, p.ID)
		}
	}

	seats := max(next.MaxPlayers-len(eligible), 0)
	promote := min(seats, len(next.WaitingPlayers))
	promoted := append([]string(nil), next.WaitingPlayers[:promote]...)

	roster := eligible
	for _, id := range promoted {
		roster = append(roster, table.NewPlayer(id, 0, next.BuyIn))
	}

	if len(roster) == 0 || len(roster) < next.MinPlayers {
		return next, Seating{}
	}

	for i := range roster {
		resetForNewHand(&roster[i], i)
	}
	next.Players = roster
	next.WaitingPlayers = append([]string{}, next.WaitingPlayers[promote:]...)
	next.PlayerCount = len(roster)
	next.SmallBlindIndex = (next.SmallBlindIndex + 1) % len(roster)
	next.CurrentTurn = next.SmallBlindIndex

	next.Stage = table.StagePreDealing
	next.Pot = 0
	next.HighestBet = 0
	next.MinRaiseAmount = next.InitialBigBlind
	next.CommunityCards = []table.Card{}
	next.NetWinners = []string{}
	next.GameOverTimeStamp = nil
	next.GameInProgress = true
	next.BettingStarted = false

	return next, Seating{Committed: true, Promoted: promoted, Removed: removed}
}

func resetForNewHand(p *table.Player, position int) {
	p.Position = position
	p.IsReady = false
	p.Bet = 0
	p.PotContribution = 0
	p.Hand = []table.Card{}
	p.InHand = true
	p.HasActed = false
	p.IsAllIn = false
	p.AmountWon = 0
	p.HandDescription = ""
	p.BestHand = nil
}
