package room

import (
	"errors"
	"sort"
	"time"

	"github.com/lazharichir/pokerroom/domain"
)

var ErrSeatReserved = errors.New("seat manager: seat is reserved by another player")

// SeatStatus is what a seat looks like at a given moment
type SeatStatus string

const (
	SeatEmpty    SeatStatus = "EMPTY"
	SeatReserved SeatStatus = "RESERVED"
	SeatOccupied SeatStatus = "OCCUPIED"
)

// Reservation holds a seat for a player until it expires.
type Reservation struct {
	SeatNumber int       `json:"seatNumber"`
	PlayerID   string    `json:"playerId"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SeatInfo describes one seat for lobby listings.
type SeatInfo struct {
	SeatNumber int        `json:"seatNumber"`
	Status     SeatStatus `json:"status"`
	PlayerID   string     `json:"playerId,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// SeatManager tracks reservations next to the table's seating. Expired
// reservations are dropped whenever seats are queried; nothing runs in the
// background.
type SeatManager struct {
	duration     time.Duration
	now          func() time.Time
	reservations map[int]Reservation
}

// NewSeatManager creates a manager whose reservations last duration.
func NewSeatManager(duration time.Duration, now func() time.Time) *SeatManager {
	if now == nil {
		now = time.Now
	}
	return &SeatManager{duration: duration, now: now, reservations: map[int]Reservation{}}
}

func (m *SeatManager) purge() {
	now := m.now()
	for n, r := range m.reservations {
		if !now.Before(r.ExpiresAt) {
			delete(m.reservations, n)
		}
	}
}

// Reserve holds a seat. Re-reserving one's own seat renews it; a player
// holds at most one reservation.
func (m *SeatManager) Reserve(t *domain.Table, seat int, playerID string) (Reservation, error) {
	m.purge()
	s, err := t.Seat(seat)
	if err != nil {
		return Reservation{}, err
	}
	if !s.IsEmpty() {
		return Reservation{}, domain.ErrSeatOccupied
	}
	if r, ok := m.reservations[seat]; ok && r.PlayerID != playerID {
		return Reservation{}, ErrSeatReserved
	}
	m.Cancel(playerID)
	r := Reservation{SeatNumber: seat, PlayerID: playerID, ExpiresAt: m.now().Add(m.duration)}
	m.reservations[seat] = r
	return r, nil
}

// Check reports ErrSeatReserved when someone other than playerID holds a
// live reservation on the seat.
func (m *SeatManager) Check(seat int, playerID string) error {
	m.purge()
	if r, ok := m.reservations[seat]; ok && r.PlayerID != playerID {
		return ErrSeatReserved
	}
	return nil
}

// Consume drops the reservation on a seat once it has been taken.
func (m *SeatManager) Consume(seat int) {
	delete(m.reservations, seat)
}

// Cancel drops every reservation held by a player.
func (m *SeatManager) Cancel(playerID string) {
	for n, r := range m.reservations {
		if r.PlayerID == playerID {
			delete(m.reservations, n)
		}
	}
}

// SeatInfo returns the status of every seat, in seat order.
func (m *SeatManager) SeatInfo(t *domain.Table) []SeatInfo {
	m.purge()
	out := make([]SeatInfo, 0, t.MaxSeats())
	for _, s := range t.Seats {
		info := SeatInfo{SeatNumber: s.Number, Status: SeatEmpty}
		switch r, reserved := m.reservations[s.Number]; {
		case !s.IsEmpty():
			info.Status = SeatOccupied
			info.PlayerID = s.Player.ID()
		case reserved:
			info.Status = SeatReserved
			info.PlayerID = r.PlayerID
			at := r.ExpiresAt
			info.ExpiresAt = &at
		}
		out = append(out, info)
	}
	return out
}

// AvailableSeats lists seats that are neither taken nor reserved.
func (m *SeatManager) AvailableSeats(t *domain.Table) []int {
	var out []int
	for _, info := range m.SeatInfo(t) {
		if info.Status == SeatEmpty {
			out = append(out, info.SeatNumber)
		}
	}
	return out
}

// Reservations returns the live reservations in seat order.
func (m *SeatManager) Reservations() []Reservation {
	m.purge()
	out := make([]Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out
}
