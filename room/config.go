// Package room hosts one poker table per Room: membership, seating, the
// turn clock and per-viewer state, with every mutation serialized by the
// room's lock.
package room

import (
	"errors"
	"fmt"
	"time"

	"github.com/lazharichir/pokerroom/game"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/lazharichir/pokerroom/pot"
)

var (
	ErrRoomNotFound         = errors.New("room: not found")
	ErrRoomExists           = errors.New("room: already exists")
	ErrRoomClosed           = errors.New("room: closed")
	ErrNotInRoom            = errors.New("room: player is not in the room")
	ErrBuyInTooLow          = errors.New("room: buy-in below the table minimum")
	ErrSpectatorsNotAllowed = errors.New("room: spectators are not allowed")
	ErrEmptyMessage         = errors.New("room: empty chat message")
	ErrInvalidConfig        = errors.New("room: invalid config")
)

// MaxChatLength caps a chat message in bytes
const MaxChatLength = 500

// Config is fixed for the life of a room.
type Config struct {
	ID              string           `json:"roomId"`
	Name            string           `json:"roomName"`
	MaxPlayers      int              `json:"maxPlayers"`
	Variant         hands.Variant    `json:"variant"`
	SmallBlind      int64            `json:"smallBlind"`
	BigBlind        int64            `json:"bigBlind"`
	Ante            int64            `json:"ante"`
	MinBuyIn        int64            `json:"minBuyIn"`
	MaxBuyIn        int64            `json:"maxBuyIn"`
	AllowSpectators bool             `json:"allowSpectators"`
	AutoStart       bool             `json:"autoStart"`
	Rake            *pot.PercentRake `json:"rake,omitempty"`
	Timing          Timing           `json:"timing"`
}

// Timing holds the room clocks. Zero durations disable the matching timer.
type Timing struct {
	ReservationDuration time.Duration `json:"reservationDuration"`
	ActionTimeout       time.Duration `json:"actionTimeout"`
	TimeBank            int           `json:"timeBank"` // seconds granted once per turn after the timeout
	ShowdownDelay       time.Duration `json:"showdownDelay"`
	NextHandDelay       time.Duration `json:"nextHandDelay"`
}

// Rules returns the betting rules of the room's engine.
func (c Config) Rules() game.Rules {
	return game.Rules{Variant: c.Variant, SmallBlind: c.SmallBlind, BigBlind: c.BigBlind, Ante: c.Ante}
}

// Validate checks that the config can run a table.
func (c Config) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidConfig)
	case c.MaxPlayers < 2 || c.MaxPlayers > 10:
		return fmt.Errorf("%w: max players must be 2-10, got %d", ErrInvalidConfig, c.MaxPlayers)
	case c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind:
		return fmt.Errorf("%w: blinds %d/%d", ErrInvalidConfig, c.SmallBlind, c.BigBlind)
	case c.Ante < 0:
		return fmt.Errorf("%w: negative ante", ErrInvalidConfig)
	case c.MinBuyIn <= 0 || (c.MaxBuyIn > 0 && c.MaxBuyIn < c.MinBuyIn):
		return fmt.Errorf("%w: buy-in range %d-%d", ErrInvalidConfig, c.MinBuyIn, c.MaxBuyIn)
	}
	if _, err := hands.ForVariant(c.Variant); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) rake() pot.RakeCalculator {
	if c.Rake == nil {
		return pot.NoRake{}
	}
	return *c.Rake
}

// clampBuyIn applies the table maximum. A MaxBuyIn of 0 means no maximum.
func (c Config) clampBuyIn(amount int64) int64 {
	if c.MaxBuyIn > 0 && amount > c.MaxBuyIn {
		return c.MaxBuyIn
	}
	return amount
}
