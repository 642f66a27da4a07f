package domain

import "github.com/lazharichir/pokerroom/cards"

// Player is a stable identity
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerStatus string

const (
	StatusWaiting      PlayerStatus = "WAITING"
	StatusActive       PlayerStatus = "ACTIVE"
	StatusFolded       PlayerStatus = "FOLDED"
	StatusAllIn        PlayerStatus = "ALL_IN"
	StatusSittingOut   PlayerStatus = "SITTING_OUT"
	StatusDisconnected PlayerStatus = "DISCONNECTED"
)

// PlayerState binds a player to a seat. It is created on seating, reset at
// the end of every hand and dropped when the player stands up.
//
// Disconnected and SittingOut are sticky flags: a player who drops or asks
// to sit out in the middle of a hand keeps their hand status until it ends.
type PlayerState struct {
	Player       Player            `json:"player"`
	Chips        int64             `json:"chips"`
	HoleCards    []cards.DealtCard `json:"holeCards"`
	Status       PlayerStatus      `json:"status"`
	CurrentBet   int64             `json:"currentBet"`
	TotalBet     int64             `json:"totalBet"`
	IsDealer     bool              `json:"isDealer"`
	IsSmallBlind bool              `json:"isSmallBlind"`
	IsBigBlind   bool              `json:"isBigBlind"`
	HasActed     bool              `json:"hasActed"`
	TimeBank     int               `json:"timeBank"`
	Disconnected bool              `json:"disconnected,omitempty"`
	SittingOut   bool              `json:"sittingOut,omitempty"`
}

// NewPlayerState creates the state of a freshly seated player
func NewPlayerState(p Player, chips int64, timeBank int) *PlayerState {
	return &PlayerState{
		Player:    p,
		Chips:     chips,
		HoleCards: []cards.DealtCard{},
		Status:    StatusWaiting,
		TimeBank:  timeBank,
	}
}

// ID is a shorthand for the player id.
func (p *PlayerState) ID() string {
	return p.Player.ID
}

// InHand reports whether the player still contends for the pot.
func (p *PlayerState) InHand() bool {
	return p.Status == StatusActive || p.Status == StatusAllIn
}

// CanAct reports whether the player can still make betting decisions.
func (p *PlayerState) CanAct() bool {
	return p.Status == StatusActive
}

// ResetForNewHand clears cards, bets and flags. The status goes back to
// WAITING unless the player is away or has no chips.
func (p *PlayerState) ResetForNewHand() {
	p.HoleCards = []cards.DealtCard{}
	p.CurrentBet = 0
	p.TotalBet = 0
	p.IsDealer = false
	p.IsSmallBlind = false
	p.IsBigBlind = false
	p.HasActed = false
	p.Status = p.restingStatus()
}

func (p *PlayerState) restingStatus() PlayerStatus {
	switch {
	case p.Disconnected:
		return StatusDisconnected
	case p.SittingOut || p.Chips <= 0:
		return StatusSittingOut
	}
	return StatusWaiting
}

// SetDisconnected flags the player as gone. Outside a hand the status
// changes immediately.
func (p *PlayerState) SetDisconnected(disconnected bool) {
	p.Disconnected = disconnected
	if !p.InHand() && p.Status != StatusFolded {
		p.Status = p.restingStatus()
	}
}

// SetSittingOut flags the player as away from the next hand.
func (p *PlayerState) SetSittingOut(sittingOut bool) {
	p.SittingOut = sittingOut
	if !p.InHand() && p.Status != StatusFolded {
		p.Status = p.restingStatus()
	}
}

// Clone returns a deep copy.
func (p *PlayerState) Clone() *PlayerState {
	if p == nil {
		return nil
	}
	cp := *p
	cp.HoleCards = append([]cards.DealtCard{}, p.HoleCards...)
	return &cp
}
