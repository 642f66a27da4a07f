package game

import (
	"errors"
	"fmt"
)

type ActionKind string

const (
	ActionFold  ActionKind = "FOLD"
	ActionCheck ActionKind = "CHECK"
	ActionCall  ActionKind = "CALL"
	ActionBet   ActionKind = "BET"
	ActionRaise ActionKind = "RAISE"
)

// Action is a betting decision. Amount is the bet size for BET and the total
// the player raises to for RAISE; it is ignored otherwise.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int64      `json:"amount,omitempty"`
}

func (a Action) String() string {
	if a.Kind == ActionBet || a.Kind == ActionRaise {
		return fmt.Sprintf("%s %d", a.Kind, a.Amount)
	}
	return string(a.Kind)
}

var (
	ErrHandInProgress    = errors.New("game: a hand is already in progress")
	ErrNoHandInProgress  = errors.New("game: no hand in progress")
	ErrNotEnoughPlayers  = errors.New("game: need at least 2 players with chips")
	ErrNotBettingPhase   = errors.New("game: no betting in this phase")
	ErrNotYourTurn       = errors.New("game: not your turn")
	ErrPlayerNotInHand   = errors.New("game: player is not in the hand")
	ErrIllegalAction     = errors.New("game: illegal action")
	ErrInsufficientChips = errors.New("game: insufficient chips")
	ErrNotAtShowdown     = errors.New("game: hand is not at showdown")
)

// ActionRequest tells a player what they may do on their turn.
type ActionRequest struct {
	PlayerID   string       `json:"playerId"`
	SeatNumber int          `json:"seatNumber"`
	Actions    []ActionKind `json:"actions"`
	ToCall     int64        `json:"toCall"`
	MinBet     int64        `json:"minBet,omitempty"`
	MinRaiseTo int64        `json:"minRaiseTo,omitempty"`
	MaxRaiseTo int64        `json:"maxRaiseTo,omitempty"`
	Pot        int64        `json:"pot"`
	TimeBank   int          `json:"timeBank"`
	HandNumber int          `json:"handNumber"`
	Sequence   int          `json:"sequence"`
}

// PendingRequest returns the request for the current actor, if any.
func PendingRequest(s *GameState) (ActionRequest, bool) {
	p := s.Actor()
	if p == nil || !p.CanAct() {
		return ActionRequest{}, false
	}
	toCall := s.HighBet - p.CurrentBet
	if toCall > p.Chips {
		toCall = p.Chips
	}
	req := ActionRequest{
		PlayerID:   p.ID(),
		SeatNumber: s.ActorSeat,
		ToCall:     toCall,
		Pot:        s.PotTotal(),
		TimeBank:   p.TimeBank,
		HandNumber: s.HandNumber,
		Sequence:   s.ActionSeq,
	}
	req.Actions = append(req.Actions, ActionFold)
	if s.HighBet == p.CurrentBet {
		req.Actions = append(req.Actions, ActionCheck)
	} else {
		req.Actions = append(req.Actions, ActionCall)
	}
	stack := p.Chips + p.CurrentBet
	switch {
	case s.HighBet == 0 && p.Chips > 0:
		req.Actions = append(req.Actions, ActionBet)
		req.MinBet = min(s.Rules.BigBlind, p.Chips)
		req.MaxRaiseTo = p.Chips
	case s.HighBet > 0 && stack > s.HighBet:
		req.Actions = append(req.Actions, ActionRaise)
		req.MinRaiseTo = min(s.HighBet+s.MinRaise, stack)
		req.MaxRaiseTo = stack
	}
	return req, true
}
