package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lazharichir/pokerroom/game"
)

var ErrCorruptSnapshot = errors.New("room: corrupt snapshot")

// Snapshot is the durable form of a room: its config and the full game
// state. Unknown fields are ignored on decode and missing ones take their
// zero value.
type Snapshot struct {
	Config
	Started   bool            `json:"started"`
	SavedAt   time.Time       `json:"savedAt"`
	GameState *game.GameState `json:"gameState"`
}

// EncodeSnapshot renders a snapshot as indented JSON so it can be edited by
// hand.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DecodeSnapshot parses and checks a snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := s.Config.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if s.GameState == nil {
		s.GameState = game.NewGameState(s.Config.Rules(), s.MaxPlayers)
	}
	s.GameState.Normalize(s.MaxPlayers)
	if got := s.GameState.Table.MaxSeats(); got != s.MaxPlayers {
		return Snapshot{}, fmt.Errorf("%w: table has %d seats, config says %d", ErrCorruptSnapshot, got, s.MaxPlayers)
	}
	seen := map[string]bool{}
	for i, seat := range s.GameState.Table.Seats {
		if seat.Number != i+1 {
			return Snapshot{}, fmt.Errorf("%w: seat %d numbered %d", ErrCorruptSnapshot, i+1, seat.Number)
		}
		p := seat.Player
		if p == nil {
			continue
		}
		if p.ID() == "" || seen[p.ID()] {
			return Snapshot{}, fmt.Errorf("%w: bad or duplicate player in seat %d", ErrCorruptSnapshot, seat.Number)
		}
		if p.Chips < 0 {
			return Snapshot{}, fmt.Errorf("%w: negative chips in seat %d", ErrCorruptSnapshot, seat.Number)
		}
		seen[p.ID()] = true
	}
	return s, nil
}
