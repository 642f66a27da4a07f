package cards

import (
	"errors"
	"math/rand"
	"time"
)

var (
	ErrEmptyDeck         = errors.New("deck: no cards remaining")
	ErrNotEnoughCards    = errors.New("deck: not enough cards remaining")
	ErrInvalidDealAmount = errors.New("deck: deal amount must be positive")
)

// Deck is an ordered set of cards with a cursor. Dealing and burning move the
// cursor; cards are only physically removed through RemoveCards.
//
// A Deck is not safe for concurrent use.
type Deck struct {
	Cards    []Card `json:"cards"`
	Position int    `json:"position"`
}

// NewDeck creates a standard, unshuffled deck of 52 cards
func NewDeck() *Deck {
	deck := &Deck{Cards: make([]Card, 0, 52)}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck.Cards = append(deck.Cards, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// NewRand returns a time seeded random source for shuffling.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Shuffle randomizes the card order and resets the cursor.
func (d *Deck) Shuffle(r *rand.Rand) {
	if r == nil {
		r = NewRand()
	}
	r.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
	d.Position = 0
}

// Size returns the number of cards in the deck, dealt or not.
func (d *Deck) Size() int {
	return len(d.Cards)
}

// Remaining returns how many cards can still be dealt.
func (d *Deck) Remaining() int {
	return len(d.Cards) - d.Position
}

// Deal deals the top card.
func (d *Deck) Deal() (Card, error) {
	if d.Remaining() == 0 {
		return Card{}, ErrEmptyDeck
	}
	c := d.Cards[d.Position]
	d.Position++
	return c, nil
}

// DealN deals n cards in order. Nothing is dealt when fewer than n remain.
func (d *Deck) DealN(n int) ([]Card, error) {
	if n <= 0 {
		return nil, ErrInvalidDealAmount
	}
	if d.Remaining() < n {
		return nil, ErrNotEnoughCards
	}
	dealt := make([]Card, n)
	copy(dealt, d.Cards[d.Position:d.Position+n])
	d.Position += n
	return dealt, nil
}

// Burn discards the top card.
func (d *Deck) Burn() error {
	if d.Remaining() == 0 {
		return ErrEmptyDeck
	}
	d.Position++
	return nil
}

// Reset moves the cursor back to the top without reordering.
func (d *Deck) Reset() {
	d.Position = 0
}

// RemoveCards drops the given cards from the undealt part of the deck. It
// exists to build residual decks for simulations.
func (d *Deck) RemoveCards(cs ...Card) {
	if len(cs) == 0 {
		return
	}
	drop := make(map[Card]struct{}, len(cs))
	for _, c := range cs {
		drop[c] = struct{}{}
	}
	kept := append([]Card(nil), d.Cards[:d.Position]...)
	for _, c := range d.Cards[d.Position:] {
		if _, ok := drop[c]; ok {
			continue
		}
		kept = append(kept, c)
	}
	d.Cards = kept
}

// Clone returns a deep copy of the deck.
func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	cp := &Deck{Cards: make([]Card, len(d.Cards)), Position: d.Position}
	copy(cp.Cards, d.Cards)
	return cp
}
