package protocol

import (
	"math/rand"

	"github.com/lazharichir/pokerroom/cards"
	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/equity"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/lazharichir/pokerroom/room"
)

// HintIterations is how many deals a hand hint simulates.
const HintIterations = 400

// HandHint rides along with an action request: a name for the actor's hand
// and how often it wins against the players still in the hand.
type HandHint struct {
	Description string  `json:"description,omitempty"`
	Opponents   int     `json:"opponents"`
	Equity      float64 `json:"equity"`
	Iterations  int     `json:"iterations,omitempty"`
}

// NewHandHint builds the hint for the viewer of v. It returns nil when the
// viewer holds no cards. A nil r seeds from the clock.
func NewHandHint(v room.StateView, variant hands.Variant, r *rand.Rand) *HandHint {
	me := v.Seat(v.ViewerID)
	if me == nil || len(me.Player.HoleCards) == 0 {
		return nil
	}
	hole := cards.Plain(me.Player.HoleCards)

	h := &HandHint{}
	for _, s := range v.Seats {
		if p := s.Player; p != nil && p.ID != v.ViewerID && inHand(p.Status) {
			h.Opponents++
		}
	}

	if len(v.CommunityCards) == 0 {
		if partial, err := hands.EvaluatePartial(hole); err == nil {
			h.Description = partial.Description
		}
	} else if eval, err := hands.ForVariant(variant); err == nil {
		if best, err := eval.FindBestHand(hole, v.CommunityCards); err == nil {
			h.Description = hands.Describe(best[0])
		}
	}

	if h.Opponents > 0 {
		res, err := equity.Estimate(equity.Request{
			Hero:       hole,
			Board:      v.CommunityCards,
			Opponents:  h.Opponents,
			Variant:    variant,
			Iterations: HintIterations,
		}, r)
		if err == nil {
			h.Equity = res.Equity
			h.Iterations = res.Iterations
		}
	}
	return h
}

func inHand(s domain.PlayerStatus) bool {
	return s == domain.StatusActive || s == domain.StatusAllIn
}
