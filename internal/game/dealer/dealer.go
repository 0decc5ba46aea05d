package dealer

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"HoldemTable/internal/game/table"
)

const DeckSize = 52

var ErrDeckExhausted = errors.New("deck exhausted")

// Shuffler is satisfied by *rand.Rand. Shuffle must be a Fisher-Yates permutation.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Deck is an ordered stack of cards; index 0 is the top.
type Deck []table.Card

// Ordered returns the 52 cards in factory order (suit-major, rank 2..A).
func Ordered() Deck {
	deck := make(Deck, 0, DeckSize)
	for s := 0; s < 4; s++ {
		for r := 2; r <= 14; r++ {
			deck = append(deck, table.Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle permutes the deck in place.
func (d Deck) Shuffle(s Shuffler) {
	s.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
}

// Deal removes the top n cards.
func (d *Deck) Deal(n int) ([]table.Card, error) {
	if n < 0 || n > len(*d) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrDeckExhausted, n, len(*d))
	}
	out := append([]table.Card(nil), (*d)[:n]...)
	*d = (*d)[n:]
	return out, nil
}

// Dealer hands out freshly shuffled decks. Safe for concurrent use.
type Dealer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewDealer(seed int64) *Dealer {
	return &Dealer{rnd: rand.New(rand.NewSource(seed))}
}

// NewDeck returns a full, uniformly shuffled deck.
func (d *Dealer) NewDeck() Deck {
	deck := Ordered()
	d.mu.Lock()
	deck.Shuffle(d.rnd)
	d.mu.Unlock()
	return deck
}
