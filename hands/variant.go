package hands

import (
	"fmt"

	"github.com/lazharichir/pokerroom/cards"
)

// Variant names a rule set for building hands.
type Variant string

const (
	TexasHoldem Variant = "texas_holdem"
	Omaha       Variant = "omaha"
	OmahaHiLo   Variant = "omaha_hi_lo"
)

// Evaluator finds the best hands a player holds under one variant.
//
// FindBestHand returns the high hand first. Split pot variants append the low
// hand when one qualifies, so callers must check the length of the result.
type Evaluator interface {
	Variant() Variant
	HoleCards() int
	FindBestHand(hole, board []cards.Card) ([]EvaluatedHand, error)
}

// ForVariant returns the evaluator for a variant.
func ForVariant(v Variant) (Evaluator, error) {
	switch v {
	case TexasHoldem, "":
		return HoldemEvaluator{}, nil
	case Omaha:
		return OmahaEvaluator{}, nil
	case OmahaHiLo:
		return OmahaEvaluator{HiLo: true}, nil
	}
	return nil, fmt.Errorf("hands: unknown variant %q", v)
}

// HoldemEvaluator plays the best five of the hole and board cards.
type HoldemEvaluator struct{}

func (HoldemEvaluator) Variant() Variant { return TexasHoldem }
func (HoldemEvaluator) HoleCards() int   { return 2 }

func (HoldemEvaluator) FindBestHand(hole, board []cards.Card) ([]EvaluatedHand, error) {
	if len(hole) != 2 || len(board) < 3 || len(board) > 5 {
		return nil, fmt.Errorf("%w: hold'em needs 2 hole and 3-5 board cards, got %d and %d",
			ErrInvalidHandSize, len(hole), len(board))
	}
	all := make([]cards.Card, 0, len(hole)+len(board))
	all = append(all, hole...)
	all = append(all, board...)
	best, err := Best(all)
	if err != nil {
		return nil, err
	}
	return []EvaluatedHand{best}, nil
}

// OmahaEvaluator plays exactly two hole cards with exactly three board
// cards. With HiLo set it also looks for an eight-or-better low.
type OmahaEvaluator struct {
	HiLo bool
}

func (e OmahaEvaluator) Variant() Variant {
	if e.HiLo {
		return OmahaHiLo
	}
	return Omaha
}

func (OmahaEvaluator) HoleCards() int { return 4 }

func (e OmahaEvaluator) FindBestHand(hole, board []cards.Card) ([]EvaluatedHand, error) {
	if len(hole) != 4 || len(board) < 3 || len(board) > 5 {
		return nil, fmt.Errorf("%w: omaha needs 4 hole and 3-5 board cards, got %d and %d",
			ErrInvalidHandSize, len(hole), len(board))
	}

	var high, low EvaluatedHand
	haveHigh, haveLow := false, false
	lowPossible := e.HiLo && lowBoardRanks(board) >= 3

	for h := range Combinations(hole, 2) {
		for b := range Combinations(board, 3) {
			five := append(h, b...)
			hand := evaluateHand(five)
			if !haveHigh || Compare(hand, high) > 0 {
				high, haveHigh = hand, true
			}
			if !lowPossible {
				continue
			}
			if l, ok := evaluateLow(five); ok && (!haveLow || CompareLow(l, low) > 0) {
				low, haveLow = l, true
			}
		}
	}

	out := []EvaluatedHand{high}
	if haveLow {
		out = append(out, low)
	}
	return out, nil
}

// lowBoardRanks counts distinct board ranks that can play in a low.
func lowBoardRanks(board []cards.Card) int {
	seen := map[int]bool{}
	for _, c := range board {
		if v := c.Rank.LowValue(); v <= 8 {
			seen[v] = true
		}
	}
	return len(seen)
}
