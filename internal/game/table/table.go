package table

import (
	"time"
)

type Stage string

const (
	StagePreDealing Stage = "preDealing"
	StagePreFlop    Stage = "preFlop"
	StageFlop       Stage = "flop"
	StageTurn       Stage = "turn"
	StageRiver      Stage = "river"
	StageShowdown   Stage = "showdown"
	StageGameOver   Stage = "gameOver"
)

// Dealing reports whether hole cards are live and must stay private.
func (s Stage) Dealing() bool {
	switch s {
	case StagePreFlop, StageFlop, StageTurn, StageRiver:
		return true
	}
	return false
}

// Player is one seat at the table. Position is reassigned densely every hand.
type Player struct {
	ID              string `json:"id"`
	Position        int    `json:"position"`
	Chips           int64  `json:"chips"`
	IsReady         bool   `json:"isReady"`
	Bet             int64  `json:"bet"`
	PotContribution int64  `json:"potContribution"`
	Hand            []Card `json:"hand"`
	InHand          bool   `json:"inHand"`
	HasActed        bool   `json:"hasActed"`
	IsAllIn         bool   `json:"isAllIn"`

	// results of the previous hand
	AmountWon       int64  `json:"amountWon"`
	HandDescription string `json:"handDescription,omitempty"`
	BestHand        []Card `json:"bestHand,omitempty"`
}

// GameState is the whole persisted state of one table.
type GameState struct {
	ID             string   `json:"gameId"`
	Stage          Stage    `json:"gameStage"`
	Players        []Player `json:"players"`
	WaitingPlayers []string `json:"waitingPlayers"`
	Deck           []Card   `json:"deck"`

	Pot             int64    `json:"pot"`
	HighestBet      int64    `json:"highestBet"`
	MinRaiseAmount  int64    `json:"minRaiseAmount"`
	SmallBlindIndex int      `json:"smallBlindIndex"`
	CurrentTurn     int      `json:"currentTurn"`
	CommunityCards  []Card   `json:"communityCards"`
	NetWinners      []string `json:"netWinners"`

	GameOverTimeStamp *time.Time `json:"gameOverTimeStamp"`
	BettingStarted    bool       `json:"bettingStarted"`
	GameInProgress    bool       `json:"gameInProgress"`

	InitialBigBlind int64 `json:"initialBigBlind"`
	BuyIn           int64 `json:"buyIn"`
	MinPlayers      int   `json:"minPlayers"`
	MaxPlayers      int   `json:"maxPlayers"`
	PlayerCount     int   `json:"playerCount"`
}

// Settings are the per-table values fixed at creation.
type Settings struct {
	BuyIn      int64
	BigBlind   int64
	MinPlayers int
	MaxPlayers int
}

// NewGameState seats playerIDs (overflow goes to the waiting list) on a table that
// sits in gameOver, so the first hand starts through the ready/timeout path.
func NewGameState(id string, playerIDs []string, s Settings, now time.Time) *GameState {
	g := &GameState{
		ID:                id,
		Stage:             StageGameOver,
		Players:           []Player{},
		WaitingPlayers:    []string{},
		CommunityCards:    []Card{},
		NetWinners:        []string{},
		MinRaiseAmount:    s.BigBlind,
		InitialBigBlind:   s.BigBlind,
		BuyIn:             s.BuyIn,
		MinPlayers:        s.MinPlayers,
		MaxPlayers:        s.MaxPlayers,
		GameOverTimeStamp: &now,
	}
	for _, pid := range playerIDs {
		if len(g.Players) >= s.MaxPlayers {
			g.WaitingPlayers = append(g.WaitingPlayers, pid)
			continue
		}
		g.Players = append(g.Players, NewPlayer(pid, len(g.Players), s.BuyIn))
	}
	g.PlayerCount = len(g.Players)
	// the first rotation moves the small blind onto seat 0
	if n := len(g.Players); n > 0 {
		g.SmallBlindIndex = n - 1
	}
	return g
}

// NewPlayer returns a freshly seated player holding chips.
func NewPlayer(id string, position int, chips int64) Player {
	return Player{
		ID:       id,
		Position: position,
		Chips:    chips,
		InHand:   true,
		Hand:     []Card{},
	}
}

// SmallBlind is half the big blind.
func (g *GameState) SmallBlind() int64 {
	return g.InitialBigBlind / 2
}

// PlayerIndex returns the seat index of id, or -1.
func (g *GameState) PlayerIndex(id string) int {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// IsWaiting reports whether id is on the waiting list.
func (g *GameState) IsWaiting(id string) bool {
	for _, w := range g.WaitingPlayers {
		if w == id {
			return true
		}
	}
	return false
}

// Addresses lists everyone attached to the table: seated players first, then waiting.
func (g *GameState) Addresses() []string {
	out := make([]string, 0, len(g.Players)+len(g.WaitingPlayers))
	for _, p := range g.Players {
		out = append(out, p.ID)
	}
	return append(out, g.WaitingPlayers...)
}

// TotalChips is the sum of every seat's stack plus the pot.
func (g *GameState) TotalChips() int64 {
	total := g.Pot
	for _, p := range g.Players {
		total += p.Chips
	}
	return total
}

func cloneCards(cs []Card) []Card {
	if cs == nil {
		return nil
	}
	return append(make([]Card, 0, len(cs)), cs...)
}

func cloneStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	return append(make([]string, 0, len(ss)), ss...)
}

// Clone returns a deep copy sharing no memory with g.
func (g *GameState) Clone() *GameState {
	out := *g
	if g.Players != nil {
		out.Players = make([]Player, len(g.Players))
		for i, p := range g.Players {
			p.Hand = cloneCards(p.Hand)
			p.BestHand = cloneCards(p.BestHand)
			out.Players[i] = p
		}
	}
	out.WaitingPlayers = cloneStrings(g.WaitingPlayers)
	out.Deck = cloneCards(g.Deck)
	out.CommunityCards = cloneCards(g.CommunityCards)
	out.NetWinners = cloneStrings(g.NetWinners)
	if g.GameOverTimeStamp != nil {
		ts := *g.GameOverTimeStamp
		out.GameOverTimeStamp = &ts
	}
	return &out
}

// PublicView is what viewer may see: no deck, and while a hand is live no other
// player's hole cards.
func (g *GameState) PublicView(viewer string) *GameState {
	out := g.Clone()
	out.Deck = nil
	if !g.Stage.Dealing() {
		return out
	}
	for i := range out.Players {
		if out.Players[i].ID != viewer {
			out.Players[i].Hand = nil
		}
	}
	return out
}
