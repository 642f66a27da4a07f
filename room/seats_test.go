package room

import (
	"testing"
	"time"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time      { return c.t }
func (c *fakeClock) Add(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestSeatManagerReserve(t *testing.T) {
	clock := newFakeClock()
	m := NewSeatManager(time.Minute, clock.Now)
	tbl := domain.NewTable(4)
	require.NoError(t, tbl.SeatPlayer(1, domain.NewPlayerState(domain.Player{ID: "seated"}, 100, 0)))

	t.Run("occupied seat", func(t *testing.T) {
		_, err := m.Reserve(tbl, 1, "alice")
		assert.ErrorIs(t, err, domain.ErrSeatOccupied)
	})

	t.Run("invalid seat", func(t *testing.T) {
		_, err := m.Reserve(tbl, 9, "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidSeat)
	})

	t.Run("reserve and renew", func(t *testing.T) {
		r, err := m.Reserve(tbl, 2, "alice")
		require.NoError(t, err)
		assert.Equal(t, clock.t.Add(time.Minute), r.ExpiresAt)

		clock.Add(30 * time.Second)
		r, err = m.Reserve(tbl, 2, "alice")
		require.NoError(t, err)
		assert.Equal(t, clock.t.Add(time.Minute), r.ExpiresAt)
	})

	t.Run("held by someone else", func(t *testing.T) {
		_, err := m.Reserve(tbl, 2, "bob")
		assert.ErrorIs(t, err, ErrSeatReserved)
		assert.ErrorIs(t, m.Check(2, "bob"), ErrSeatReserved)
		assert.NoError(t, m.Check(2, "alice"))
	})

	t.Run("one reservation per player", func(t *testing.T) {
		_, err := m.Reserve(tbl, 3, "alice")
		require.NoError(t, err)
		require.Len(t, m.Reservations(), 1)
		assert.Equal(t, 3, m.Reservations()[0].SeatNumber)
	})

	t.Run("expiry is lazy", func(t *testing.T) {
		clock.Add(time.Minute)
		assert.NoError(t, m.Check(3, "bob"))
		assert.Empty(t, m.Reservations())
		_, err := m.Reserve(tbl, 3, "bob")
		assert.NoError(t, err)
	})
}

func TestSeatInfo(t *testing.T) {
	clock := newFakeClock()
	m := NewSeatManager(time.Minute, clock.Now)
	tbl := domain.NewTable(3)
	require.NoError(t, tbl.SeatPlayer(1, domain.NewPlayerState(domain.Player{ID: "alice"}, 100, 0)))
	_, err := m.Reserve(tbl, 3, "bob")
	require.NoError(t, err)

	info := m.SeatInfo(tbl)
	require.Len(t, info, 3)
	assert.Equal(t, SeatOccupied, info[0].Status)
	assert.Equal(t, "alice", info[0].PlayerID)
	assert.Equal(t, SeatEmpty, info[1].Status)
	assert.Equal(t, SeatReserved, info[2].Status)
	assert.Equal(t, "bob", info[2].PlayerID)
	assert.Equal(t, []int{2}, m.AvailableSeats(tbl))

	m.Cancel("bob")
	assert.Equal(t, []int{2, 3}, m.AvailableSeats(tbl))

	_, err = m.Reserve(tbl, 2, "carol")
	require.NoError(t, err)
	m.Consume(2)
	assert.Equal(t, []int{2, 3}, m.AvailableSeats(tbl))
}
