package game

import (
	"slices"

	"github.com/lazharichir/pokerroom/cards"
	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/lazharichir/pokerroom/pot"
	"github.com/sanity-io/litter"
)

// Phase represents the current phase of a table
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseHandStart    Phase = "HAND_START"
	PhasePreFlop      Phase = "PRE_FLOP"
	PhaseFlop         Phase = "FLOP"
	PhaseTurn         Phase = "TURN"
	PhaseRiver        Phase = "RIVER"
	PhaseShowdown     Phase = "SHOWDOWN"
	PhaseHandComplete Phase = "HAND_COMPLETE"
	PhaseEnd          Phase = "END"
)

// IsBetting reports whether players act in this phase.
func (p Phase) IsBetting() bool {
	switch p {
	case PhasePreFlop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

// InHand reports whether a hand is being played and can still be aborted.
func (p Phase) InHand() bool {
	return p == PhaseHandStart || p.IsBetting()
}

// Rules are the betting rules of a table
type Rules struct {
	Variant    hands.Variant `json:"variant"`
	SmallBlind int64         `json:"smallBlind"`
	BigBlind   int64         `json:"bigBlind"`
	Ante       int64         `json:"ante"`
}

// GameState is the aggregate root of a table. Only the Engine mutates it.
type GameState struct {
	Rules          Rules            `json:"rules"`
	Table          *domain.Table    `json:"table"`
	Deck           *cards.Deck      `json:"deck"`
	Pots           *pot.Manager     `json:"pots"`
	CommunityCards []cards.Card     `json:"communityCards"`
	Phase          Phase            `json:"phase"`
	HandNumber     int              `json:"handNumber"`
	DealerSeat     int              `json:"dealerSeat"`
	SmallBlindSeat int              `json:"smallBlindSeat"`
	BigBlindSeat   int              `json:"bigBlindSeat"`
	ActorSeat      int              `json:"actorSeat"`
	HighBet        int64            `json:"highBet"`
	MinRaise       int64            `json:"minRaise"`
	ActionSeq      int              `json:"actionSeq"`
	DeadBets       map[string]int64 `json:"deadBets,omitempty"`
	Winners        []events.Winner  `json:"winners,omitempty"`
	Rake           int64            `json:"rake"`
}

// NewGameState creates an idle table with maxSeats empty seats
func NewGameState(rules Rules, maxSeats int) *GameState {
	return &GameState{
		Rules:          rules,
		Table:          domain.NewTable(maxSeats),
		Deck:           cards.NewDeck(),
		Pots:           pot.NewManager(),
		CommunityCards: []cards.Card{},
		Phase:          PhaseIdle,
	}
}

// Actor returns the player whose turn it is, or nil.
func (s *GameState) Actor() *domain.PlayerState {
	if s.ActorSeat == 0 || !s.Phase.IsBetting() {
		return nil
	}
	return s.Table.PlayerAt(s.ActorSeat)
}

// PotTotal returns the chips in the pots plus the bets of the current round.
func (s *GameState) PotTotal() int64 {
	total := s.Pots.Total()
	for _, p := range s.Table.Players() {
		total += p.CurrentBet
	}
	for _, b := range s.DeadBets {
		total += b
	}
	return total
}

// Contenders returns the players still in the hand, in seat order.
func (s *GameState) Contenders() []*domain.PlayerState {
	var out []*domain.PlayerState
	for _, p := range s.Table.Players() {
		if p.InHand() {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy that shares nothing with s.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Table = s.Table.Clone()
	cp.Deck = s.Deck.Clone()
	cp.Pots = s.Pots.Clone()
	cp.CommunityCards = slices.Clone(s.CommunityCards)
	if s.DeadBets != nil {
		cp.DeadBets = make(map[string]int64, len(s.DeadBets))
		for k, v := range s.DeadBets {
			cp.DeadBets[k] = v
		}
	}
	cp.Winners = slices.Clone(s.Winners)
	return &cp
}

// Normalize fills in anything a decoded snapshot may have left nil.
func (s *GameState) Normalize(maxSeats int) {
	if s.Table == nil {
		s.Table = domain.NewTable(maxSeats)
	}
	if s.Deck == nil {
		s.Deck = cards.NewDeck()
	}
	if s.Pots == nil {
		s.Pots = pot.NewManager()
	}
	if s.CommunityCards == nil {
		s.CommunityCards = []cards.Card{}
	}
	if s.Phase == "" {
		s.Phase = PhaseIdle
	}
	for _, p := range s.Table.Players() {
		if p.HoleCards == nil {
			p.HoleCards = []cards.DealtCard{}
		}
	}
}

// Dump renders the state for debug logs.
func (s *GameState) Dump() string {
	return litter.Sdump(s)
}
