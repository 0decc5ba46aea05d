package table

import "strconv"

// Card (suit 0-3, rank 2-14)
type Card struct {
	Suit int `json:"suit"`
	Rank int `json:"rank"`
}

var (
	suitSymbols = []string{"♣", "♦", "♥", "♠"}
	faceRanks   = map[int]string{10: "T", 11: "J", 12: "Q", 13: "K", 14: "A"}
)

// Valid reports whether the card is one of the 52 standard cards.
func (c Card) Valid() bool {
	return c.Suit >= 0 && c.Suit < len(suitSymbols) && c.Rank >= 2 && c.Rank <= 14
}

func (c Card) String() string {
	rank, ok := faceRanks[c.Rank]
	if !ok {
		rank = strconv.Itoa(c.Rank)
	}
	suit := "?"
	if c.Suit >= 0 && c.Suit < len(suitSymbols) {
		suit = suitSymbols[c.Suit]
	}
	return rank + suit
}
