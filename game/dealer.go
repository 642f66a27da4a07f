package game

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/lazharichir/pokerroom/cards"
	"github.com/lazharichir/pokerroom/domain"
)

var ErrDeckExhausted = errors.New("dealer: deck exhausted")

// Dealer moves cards from the deck to the table.
type Dealer interface {
	Shuffle(state *GameState)
	DealHoleCards(state *GameState, cardsPerPlayer int, pattern []cards.Visibility) error
	DealCommunityCards(state *GameState, count int, burnFirst bool) ([]cards.Card, error)
}

// StandardDealer deals from a server shuffled 52 card deck.
type StandardDealer struct {
	Rand *rand.Rand
}

// NewStandardDealer creates a dealer. A nil source is seeded from the clock.
func NewStandardDealer(r *rand.Rand) *StandardDealer {
	if r == nil {
		r = cards.NewRand()
	}
	return &StandardDealer{Rand: r}
}

// Shuffle replaces the deck with a freshly shuffled one.
func (d *StandardDealer) Shuffle(state *GameState) {
	state.Deck = cards.NewDeck()
	state.Deck.Shuffle(d.Rand)
}

// DealHoleCards deals cardsPerPlayer cards to every WAITING player, seat by
// seat in seat number order, and marks them ACTIVE. pattern gives the
// visibility of each card position; missing positions are PRIVATE. Nothing
// is dealt when the deck cannot cover every player.
func (d *StandardDealer) DealHoleCards(state *GameState, cardsPerPlayer int, pattern []cards.Visibility) error {
	var receivers []*domain.PlayerState
	for _, p := range state.Table.Players() {
		if p.Status == domain.StatusWaiting {
			receivers = append(receivers, p)
		}
	}
	need := len(receivers) * cardsPerPlayer
	if state.Deck.Remaining() < need {
		return fmt.Errorf("%w: need %d cards, %d remaining", ErrDeckExhausted, need, state.Deck.Remaining())
	}

	for _, p := range receivers {
		dealt, err := state.Deck.DealN(cardsPerPlayer)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeckExhausted, err)
		}
		p.HoleCards = make([]cards.DealtCard, len(dealt))
		for i, c := range dealt {
			vis := cards.Private
			if i < len(pattern) && pattern[i] != "" {
				vis = pattern[i]
			}
			p.HoleCards[i] = cards.NewDealtCard(c, vis)
		}
		p.Status = domain.StatusActive
	}
	return nil
}

// DealCommunityCards optionally burns a card, then deals count cards to the
// board.
func (d *StandardDealer) DealCommunityCards(state *GameState, count int, burnFirst bool) ([]cards.Card, error) {
	need := count
	if burnFirst {
		need++
	}
	if state.Deck.Remaining() < need {
		return nil, fmt.Errorf("%w: need %d cards, %d remaining", ErrDeckExhausted, need, state.Deck.Remaining())
	}
	if burnFirst {
		if err := state.Deck.Burn(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeckExhausted, err)
		}
	}
	dealt, err := state.Deck.DealN(count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeckExhausted, err)
	}
	state.CommunityCards = append(state.CommunityCards, dealt...)
	return dealt, nil
}
