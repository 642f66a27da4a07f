package domain

import (
	"fmt"
)

// Seat is a numbered slot, empty when Player is nil
type Seat struct {
	Number int          `json:"number"`
	Player *PlayerState `json:"player,omitempty"`
}

// IsEmpty reports whether nobody sits in the seat
func (s Seat) IsEmpty() bool {
	return s.Player == nil
}

// Table is a fixed ring of seats numbered 1..len(Seats). A player occupies
// at most one seat.
type Table struct {
	Seats []Seat `json:"seats"`
}

// NewTable creates a table with maxSeats empty seats
func NewTable(maxSeats int) *Table {
	t := &Table{Seats: make([]Seat, maxSeats)}
	for i := range t.Seats {
		t.Seats[i].Number = i + 1
	}
	return t
}

// MaxSeats returns the seat capacity.
func (t *Table) MaxSeats() int {
	return len(t.Seats)
}

// Seat returns the seat with the given number.
func (t *Table) Seat(number int) (*Seat, error) {
	if number < 1 || number > len(t.Seats) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSeat, number)
	}
	return &t.Seats[number-1], nil
}

// SeatPlayer places a player state in an empty seat.
func (t *Table) SeatPlayer(number int, ps *PlayerState) error {
	seat, err := t.Seat(number)
	if err != nil {
		return err
	}
	if !seat.IsEmpty() {
		return fmt.Errorf("%w: %d", ErrSeatOccupied, number)
	}
	if n := t.SeatOf(ps.ID()); n != 0 {
		return fmt.Errorf("%w at seat %d", ErrAlreadySeated, n)
	}
	seat.Player = ps
	return nil
}

// StandUp vacates the player's seat and returns the state that sat there.
func (t *Table) StandUp(playerID string) (*PlayerState, int, error) {
	n := t.SeatOf(playerID)
	if n == 0 {
		return nil, 0, ErrPlayerNotSeated
	}
	seat := &t.Seats[n-1]
	ps := seat.Player
	seat.Player = nil
	return ps, n, nil
}

// SeatOf returns the seat number of a player, or 0.
func (t *Table) SeatOf(playerID string) int {
	for _, s := range t.Seats {
		if s.Player != nil && s.Player.ID() == playerID {
			return s.Number
		}
	}
	return 0
}

// FindPlayer returns the player's state, or nil.
func (t *Table) FindPlayer(playerID string) *PlayerState {
	if n := t.SeatOf(playerID); n != 0 {
		return t.Seats[n-1].Player
	}
	return nil
}

// PlayerAt returns the state in a seat, or nil.
func (t *Table) PlayerAt(number int) *PlayerState {
	if number < 1 || number > len(t.Seats) {
		return nil
	}
	return t.Seats[number-1].Player
}

// OccupiedSeats lists the taken seats in seat number order.
func (t *Table) OccupiedSeats() []*Seat {
	out := make([]*Seat, 0, len(t.Seats))
	for i := range t.Seats {
		if t.Seats[i].Player != nil {
			out = append(out, &t.Seats[i])
		}
	}
	return out
}

// Players lists every seated player in seat number order.
func (t *Table) Players() []*PlayerState {
	out := make([]*PlayerState, 0, len(t.Seats))
	for _, s := range t.Seats {
		if s.Player != nil {
			out = append(out, s.Player)
		}
	}
	return out
}

// NextSeat walks clockwise (rising seat numbers, wrapping) from the seat
// after from and returns the first occupied seat whose player matches. It
// returns 0 when no seat matches. A nil match accepts any occupied seat.
func (t *Table) NextSeat(from int, match func(*PlayerState) bool) int {
	n := len(t.Seats)
	if n == 0 {
		return 0
	}
	if from < 0 || from > n {
		from = 0
	}
	for step := 1; step <= n; step++ {
		idx := (from - 1 + step) % n
		p := t.Seats[idx].Player
		if p != nil && (match == nil || match(p)) {
			return t.Seats[idx].Number
		}
	}
	return 0
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	cp := &Table{Seats: make([]Seat, len(t.Seats))}
	for i, s := range t.Seats {
		cp.Seats[i] = Seat{Number: s.Number, Player: s.Player.Clone()}
	}
	return cp
}
