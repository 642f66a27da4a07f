// Package equity estimates how often a hand wins by Monte Carlo simulation.
// Results are decision aids for clients and take no part in settling pots.
package equity

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/lazharichir/pokerroom/cards"
	"github.com/lazharichir/pokerroom/hands"
)

var (
	ErrNoOpponents    = errors.New("equity: at least one opponent is required")
	ErrNoIterations   = errors.New("equity: iterations must be positive")
	ErrTooManyPlayers = errors.New("equity: not enough cards left to deal every opponent")
	ErrDuplicateCard  = errors.New("equity: a card appears twice in the known cards")
)

// Request describes one simulation.
type Request struct {
	Hero       []cards.Card
	Board      []cards.Card
	Opponents  int
	Variant    hands.Variant
	Iterations int
}

// Result holds the estimate. Equity counts a win as 1, a k way tie as 1/k
// and a loss as 0, averaged over iterations.
type Result struct {
	Equity     float64 `json:"equity"`
	Wins       int     `json:"wins"`
	Ties       int     `json:"ties"`
	Losses     int     `json:"losses"`
	Iterations int     `json:"iterations"`
}

// Estimate runs the simulation. It keeps no state between calls, so any
// number of estimates may run in parallel as long as each has its own rand.
// Split pot variants are scored on the high hand only.
func Estimate(req Request, r *rand.Rand) (Result, error) {
	eval, err := hands.ForVariant(req.Variant)
	if err != nil {
		return Result{}, err
	}
	if req.Opponents < 1 {
		return Result{}, ErrNoOpponents
	}
	if req.Iterations < 1 {
		return Result{}, ErrNoIterations
	}
	if len(req.Hero) != eval.HoleCards() || len(req.Board) > 5 {
		return Result{}, fmt.Errorf("%w: %d hole and %d board cards", hands.ErrInvalidHandSize, len(req.Hero), len(req.Board))
	}
	known := append(append([]cards.Card{}, req.Hero...), req.Board...)
	seen := map[cards.Card]bool{}
	for _, c := range known {
		if seen[c] {
			return Result{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen[c] = true
	}

	base := cards.NewDeck()
	base.RemoveCards(known...)
	missing := 5 - len(req.Board)
	if base.Remaining() < missing+req.Opponents*eval.HoleCards() {
		return Result{}, ErrTooManyPlayers
	}
	if r == nil {
		r = cards.NewRand()
	}

	res := Result{Iterations: req.Iterations}
	var score float64
	for i := 0; i < req.Iterations; i++ {
		deck := base.Clone()
		deck.Shuffle(r)

		board := append([]cards.Card{}, req.Board...)
		if missing > 0 {
			rest, err := deck.DealN(missing)
			if err != nil {
				return Result{}, err
			}
			board = append(board, rest...)
		}
		heroHands, err := eval.FindBestHand(req.Hero, board)
		if err != nil {
			return Result{}, err
		}
		hero := heroHands[0]

		lost := false
		tied := 1
		for o := 0; o < req.Opponents; o++ {
			hole, err := deck.DealN(eval.HoleCards())
			if err != nil {
				return Result{}, err
			}
			oppHands, err := eval.FindBestHand(hole, board)
			if err != nil {
				return Result{}, err
			}
			switch hands.Compare(hero, oppHands[0]) {
			case -1:
				lost = true
			case 0:
				tied++
			}
			if lost {
				break
			}
		}

		switch {
		case lost:
			res.Losses++
		case tied > 1:
			res.Ties++
			score += 1 / float64(tied)
		default:
			res.Wins++
			score++
		}
	}
	res.Equity = score / float64(req.Iterations)
	return res, nil
}
