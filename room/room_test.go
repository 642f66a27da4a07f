package room

import (
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/game"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(id string) Config {
	return Config{
		ID:              id,
		Name:            "Test " + id,
		MaxPlayers:      6,
		Variant:         hands.TexasHoldem,
		SmallBlind:      5,
		BigBlind:        10,
		MinBuyIn:        100,
		MaxBuyIn:        2000,
		AllowSpectators: true,
		Timing: Timing{
			ReservationDuration: time.Minute,
			ActionTimeout:       10 * time.Second,
			TimeBank:            5,
			ShowdownDelay:       time.Second,
			NextHandDelay:       2 * time.Second,
		},
	}
}

type fixture struct {
	room  *Room
	sched *ManualScheduler
	clock *fakeClock

	mu     sync.Mutex
	events []events.Event
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{sched: NewManualScheduler(), clock: newFakeClock()}
	r, err := New(cfg, f.options())
	require.NoError(t, err)
	f.attach(r)
	return f
}

func (f *fixture) options() Options {
	return Options{
		Scheduler: f.sched,
		Dealer:    game.NewStandardDealer(rand.New(rand.NewSource(7))),
		Now:       f.clock.Now,
	}
}

func (f *fixture) attach(r *Room) {
	f.room = r
	r.Subscribe(func(ev events.Event) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, ev)
	})
}

// names drains the recorded event names
func (f *fixture) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Name()
	}
	f.events = nil
	return out
}

func (f *fixture) seat(t *testing.T, id string, seat int, chips int64) {
	t.Helper()
	require.NoError(t, f.room.Join(domain.Player{ID: id, Name: strings.ToUpper(id)}))
	require.NoError(t, f.room.TakeSeat(id, seat, chips))
}

// headsUp seats alice and bob and deals the first hand.
func headsUp(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := newFixture(t, cfg)
	f.seat(t, "alice", 1, 1000)
	f.seat(t, "bob", 2, 1000)
	require.NoError(t, f.room.StartGame("alice"))
	f.names()
	return f
}

func TestJoinAndTakeSeat(t *testing.T) {
	f := newFixture(t, testConfig("join"))
	r := f.room

	require.NoError(t, r.Join(domain.Player{ID: "alice", Name: "Alice"}))
	assert.Equal(t, []string{"SPECTATOR_JOINED"}, f.names())
	assert.True(t, r.CanObserve("alice"))

	tests := []struct {
		name   string
		player string
		seat   int
		buyIn  int64
		err    error
	}{
		{"not a member", "mallory", 1, 500, ErrNotInRoom},
		{"seat out of range", "alice", 9, 500, domain.ErrInvalidSeat},
		{"no seat given", "alice", 0, 500, domain.ErrInvalidSeat},
		{"buy-in too low", "alice", 1, 50, ErrBuyInTooLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.TakeSeat(tt.player, tt.seat, tt.buyIn), tt.err)
		})
	}

	t.Run("buy-in is clamped to the maximum", func(t *testing.T) {
		require.NoError(t, r.TakeSeat("alice", 1, 5000))
		v, err := r.View("alice")
		require.NoError(t, err)
		require.NotNil(t, v.Seat("alice"))
		assert.Equal(t, int64(2000), v.Seat("alice").Player.Chips)
		assert.Equal(t, []string{"PLAYER_SEATED"}, f.names())
		assert.Equal(t, 0, r.Info().Spectators)
	})

	t.Run("same seat again is a no-op", func(t *testing.T) {
		require.NoError(t, r.TakeSeat("alice", 1, 500))
		assert.Empty(t, f.names())
	})

	t.Run("already seated elsewhere", func(t *testing.T) {
		assert.ErrorIs(t, r.TakeSeat("alice", 2, 500), domain.ErrAlreadySeated)
	})

	t.Run("occupied seat", func(t *testing.T) {
		require.NoError(t, r.Join(domain.Player{ID: "bob", Name: "Bob"}))
		assert.ErrorIs(t, r.TakeSeat("bob", 1, 500), domain.ErrSeatOccupied)
	})
}

func TestReservationHoldsSeat(t *testing.T) {
	f := newFixture(t, testConfig("reserve"))
	r := f.room
	require.NoError(t, r.Join(domain.Player{ID: "alice"}))
	require.NoError(t, r.Join(domain.Player{ID: "bob"}))

	res, err := r.ReserveSeat("alice", 2)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(time.Minute), res.ExpiresAt)

	assert.ErrorIs(t, r.TakeSeat("bob", 2, 500), ErrSeatReserved)
	info := r.Info()
	assert.Equal(t, SeatReserved, info.Seats[1].Status)
	assert.Equal(t, "alice", info.Seats[1].PlayerID)

	f.clock.Add(61 * time.Second)
	require.NoError(t, r.TakeSeat("bob", 2, 500))
	assert.Equal(t, SeatOccupied, r.Info().Seats[1].Status)

	t.Run("own reservation is consumed", func(t *testing.T) {
		_, err := r.ReserveSeat("alice", 3)
		require.NoError(t, err)
		require.NoError(t, r.TakeSeat("alice", 3, 500))
		_, err = r.ReserveSeat("alice", 4)
		assert.ErrorIs(t, err, domain.ErrAlreadySeated)
	})
}

func TestStandUpSpectatorPolicy(t *testing.T) {
	t.Run("spectators allowed", func(t *testing.T) {
		f := newFixture(t, testConfig("stand"))
		f.seat(t, "alice", 1, 500)
		f.names()
		require.NoError(t, f.room.StandUp("alice"))
		assert.Equal(t, []string{"PLAYER_STOOD_UP", "SPECTATOR_JOINED"}, f.names())
		assert.Equal(t, []string{"alice"}, f.room.Members())
		assert.True(t, f.room.CanObserve("alice"))
		assert.ErrorIs(t, f.room.StandUp("alice"), domain.ErrPlayerNotSeated)
	})

	t.Run("spectators not allowed", func(t *testing.T) {
		cfg := testConfig("closed")
		cfg.AllowSpectators = false
		f := newFixture(t, cfg)

		require.NoError(t, f.room.Join(domain.Player{ID: "alice"}))
		assert.Equal(t, []string{"PLAYER_JOINED_ROOM"}, f.names())
		_, err := f.room.View("alice")
		assert.ErrorIs(t, err, ErrSpectatorsNotAllowed)

		require.NoError(t, f.room.TakeSeat("alice", 1, 500))
		_, err = f.room.View("alice")
		require.NoError(t, err)
		f.names()

		require.NoError(t, f.room.StandUp("alice"))
		assert.Equal(t, []string{"PLAYER_STOOD_UP", "PLAYER_LEFT_ROOM"}, f.names())
		assert.Empty(t, f.room.Members())
	})
}

func TestViewMasksHoleCards(t *testing.T) {
	f := headsUp(t, testConfig("view"))
	require.NoError(t, f.room.Join(domain.Player{ID: "carol"}))

	alice, err := f.room.View("alice")
	require.NoError(t, err)
	assert.Equal(t, game.PhasePreFlop, alice.Phase)
	for _, c := range alice.Seat("alice").Player.HoleCards {
		assert.False(t, c.Hidden)
	}
	for _, c := range alice.Seat("bob").Player.HoleCards {
		assert.True(t, c.Hidden)
	}

	carol, err := f.room.View("carol")
	require.NoError(t, err)
	for _, id := range []string{"alice", "bob"} {
		require.Len(t, carol.Seat(id).Player.HoleCards, 2)
		for _, c := range carol.Seat(id).Player.HoleCards {
			assert.True(t, c.Hidden, "spectator sees %s's cards", id)
		}
	}

	_, err = f.room.View("stranger")
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestTurnTimeoutSpendsTimeBank(t *testing.T) {
	f := headsUp(t, testConfig("clock"))
	r := f.room

	req, ok := r.PendingAction()
	require.True(t, ok)
	assert.Equal(t, 5, req.TimeBank)
	actor := req.PlayerID

	f.sched.Advance(10 * time.Second)
	req, ok = r.PendingAction()
	require.True(t, ok)
	assert.Equal(t, actor, req.PlayerID, "time bank extends the same turn")
	assert.Equal(t, 0, req.TimeBank)
	assert.Empty(t, f.names())

	// the small blind owes chips, so the default is a fold
	f.sched.Advance(5 * time.Second)
	assert.Equal(t, game.PhaseShowdown, r.Info().Phase)
	names := f.names()
	assert.Contains(t, names, "ACTION_TAKEN")
	assert.Contains(t, names, "HAND_COMPLETE")

	f.sched.Advance(time.Second)
	assert.Equal(t, game.PhaseHandComplete, r.Info().Phase)

	f.sched.Advance(2 * time.Second)
	info := r.Info()
	assert.Equal(t, 2, info.HandNumber)
	assert.Equal(t, game.PhasePreFlop, info.Phase)
}

func TestActionResetsTurnClock(t *testing.T) {
	f := headsUp(t, testConfig("reset"))
	r := f.room

	req, _ := r.PendingAction()
	f.sched.Advance(9 * time.Second)
	require.NoError(t, r.PerformAction(req.PlayerID, game.Action{Kind: game.ActionCall}))

	next, ok := r.PendingAction()
	require.True(t, ok)
	assert.NotEqual(t, req.PlayerID, next.PlayerID)

	// the old clock would have run out here
	f.sched.Advance(2 * time.Second)
	still, ok := r.PendingAction()
	require.True(t, ok)
	assert.Equal(t, next.Sequence, still.Sequence)
	assert.Equal(t, 5, still.TimeBank)

	assert.ErrorIs(t, r.PerformAction(req.PlayerID, game.Action{Kind: game.ActionCheck}), game.ErrNotYourTurn)
}

func TestDisconnectKeepsSeat(t *testing.T) {
	f := headsUp(t, testConfig("drop"))
	r := f.room
	require.NoError(t, r.Join(domain.Player{ID: "carol"}))
	f.names()

	require.NoError(t, r.Disconnected("bob"))
	v, err := r.View("alice")
	require.NoError(t, err)
	bob := v.Seat("bob")
	require.NotNil(t, bob)
	assert.Equal(t, game.PhasePreFlop, v.Phase, "the hand carries on")
	assert.Len(t, bob.Player.HoleCards, 2)

	require.NoError(t, r.Disconnected("carol"))
	assert.Equal(t, []string{"SPECTATOR_LEFT"}, f.names())
	assert.NotContains(t, r.Members(), "carol")

	require.NoError(t, r.Join(domain.Player{ID: "bob"}))
	assert.Equal(t, []string{"PLAYER_JOINED_ROOM"}, f.names())
}

func TestChat(t *testing.T) {
	f := newFixture(t, testConfig("chat"))
	r := f.room
	require.NoError(t, r.Join(domain.Player{ID: "alice", Name: "Alice"}))
	f.names()

	assert.ErrorIs(t, r.Chat("alice", "   "), ErrEmptyMessage)
	assert.ErrorIs(t, r.Chat("bob", "hi"), ErrNotInRoom)

	long := strings.Repeat("é", MaxChatLength)
	require.NoError(t, r.Chat("alice", long))
	f.mu.Lock()
	require.Len(t, f.events, 1)
	msg := f.events[0].(events.ChatMessage)
	f.events = nil
	f.mu.Unlock()
	assert.Equal(t, "Alice", msg.PlayerName)
	assert.LessOrEqual(t, len(msg.Message), MaxChatLength)
	assert.True(t, strings.HasPrefix(long, msg.Message))
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := headsUp(t, testConfig("snap"))
	snap := f.room.Snapshot()

	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	decoded, err := DecodeSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, snap.Config, decoded.Config)
	assert.True(t, snap.Started)
	assert.Equal(t, snap.Started, decoded.Started)
	assert.Equal(t, snap.GameState.Deck, decoded.GameState.Deck)
	assert.Equal(t, snap.GameState.Phase, decoded.GameState.Phase)
	assert.Equal(t, snap.GameState.ActorSeat, decoded.GameState.ActorSeat)
	assert.Equal(t, snap.GameState.PotTotal(), decoded.GameState.PotTotal())
	for _, p := range snap.GameState.Table.Players() {
		got := decoded.GameState.Table.FindPlayer(p.ID())
		require.NotNil(t, got)
		assert.Equal(t, p.Chips, got.Chips)
		assert.Equal(t, p.HoleCards, got.HoleCards)
		assert.Equal(t, p.CurrentBet, got.CurrentBet)
	}

	t.Run("unknown and missing fields", func(t *testing.T) {
		s, err := DecodeSnapshot([]byte(`{"roomId":"x","roomName":"X","maxPlayers":4,"variant":"omaha",
			"smallBlind":1,"bigBlind":2,"minBuyIn":20,"futureField":{"a":1}}`))
		require.NoError(t, err)
		assert.Equal(t, game.PhaseIdle, s.GameState.Phase)
		assert.Equal(t, 4, s.GameState.Table.MaxSeats())
	})

	t.Run("corrupt", func(t *testing.T) {
		for _, data := range []string{
			`not json`,
			`{"roomId":"x","maxPlayers":1,"smallBlind":1,"bigBlind":2,"minBuyIn":20,"variant":"omaha"}`,
		} {
			_, err := DecodeSnapshot([]byte(data))
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		}
	})
}

func TestFromSnapshotResumesHand(t *testing.T) {
	f := headsUp(t, testConfig("resume"))
	req, ok := f.room.PendingAction()
	require.True(t, ok)

	g := &fixture{sched: NewManualScheduler(), clock: newFakeClock()}
	r, err := FromSnapshot(f.room.Snapshot(), g.options())
	require.NoError(t, err)
	g.attach(r)

	restored, ok := r.PendingAction()
	require.True(t, ok)
	assert.Equal(t, req, restored)

	v, err := r.View("alice")
	require.NoError(t, err)
	assert.Equal(t, game.PhasePreFlop, v.Phase)
	assert.Equal(t, []string{"alice", "bob"}, r.Members())

	// seated players come back disconnected
	s := r.Snapshot()
	for _, p := range s.GameState.Table.Players() {
		assert.True(t, p.Disconnected, p.ID())
	}
	require.NoError(t, r.Join(domain.Player{ID: req.PlayerID}))
	assert.False(t, r.Snapshot().GameState.Table.FindPlayer(req.PlayerID).Disconnected)

	// the restored turn clock is live
	g.sched.Advance(15 * time.Second)
	assert.Equal(t, game.PhaseShowdown, r.Info().Phase)
}

func TestRestore(t *testing.T) {
	f := headsUp(t, testConfig("restore"))
	before := f.room.Snapshot()

	req, _ := f.room.PendingAction()
	require.NoError(t, f.room.PerformAction(req.PlayerID, game.Action{Kind: game.ActionFold}))
	assert.Equal(t, game.PhaseShowdown, f.room.Info().Phase)

	var changes []Change
	var frame *Frame
	f.room.OnState(func(fr *Frame, evs []events.Event, c Change) {
		assert.Empty(t, evs)
		changes = append(changes, c)
		frame = fr
	})

	require.NoError(t, f.room.Restore(before))
	assert.Equal(t, []Change{ChangeRestore}, changes)
	require.NotNil(t, frame)
	assert.Equal(t, game.PhasePreFlop, frame.Info().Phase)
	assert.Empty(t, f.names(), "restore publishes no events")

	again, ok := f.room.PendingAction()
	require.True(t, ok)
	assert.Equal(t, req, again)

	other := before
	other.ID = "elsewhere"
	assert.Error(t, f.room.Restore(other))
}

func TestCloseAbortsHand(t *testing.T) {
	f := headsUp(t, testConfig("close"))
	f.room.Close("maintenance")

	names := f.names()
	assert.Contains(t, names, "HAND_ABORTED")
	assert.Equal(t, game.PhaseEnd, f.room.Info().Phase)

	req := game.Action{Kind: game.ActionFold}
	assert.ErrorIs(t, f.room.PerformAction("alice", req), ErrRoomClosed)
	assert.Equal(t, 0, f.sched.Pending())
}

func TestStateListenerGetsFrame(t *testing.T) {
	f := newFixture(t, testConfig("frames"))
	var got []string
	var seen *Frame
	f.room.OnState(func(fr *Frame, evs []events.Event, c Change) {
		assert.Equal(t, ChangeMutation, c)
		for _, ev := range evs {
			got = append(got, ev.Name())
		}
		seen = fr
	})

	f.seat(t, "alice", 2, 500)
	assert.Equal(t, []string{"SPECTATOR_JOINED", "PLAYER_SEATED"}, got)
	require.NotNil(t, seen)
	assert.True(t, seen.CanObserve("alice"))
	v, err := seen.View("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(500), v.Seat("alice").Player.Chips)

	// the frame does not follow the live room
	require.NoError(t, f.room.StandUp("alice"))
	assert.Equal(t, 1, seen.Info().Players)
	assert.Equal(t, 0, f.room.Info().Players)
}

func TestHoldDefersDelivery(t *testing.T) {
	f := newFixture(t, testConfig("hold"))
	require.NoError(t, f.room.Join(domain.Player{ID: "alice", Name: "Alice"}))

	delivered := make(chan []events.Event, 1)
	f.room.OnState(func(_ *Frame, evs []events.Event, _ Change) { delivered <- evs })

	done := make(chan error, 1)
	f.room.Hold(func(fr *Frame) {
		assert.Equal(t, []string{"alice"}, fr.Members())
		go func() { done <- f.room.Chat("alice", "hi") }()
		time.Sleep(50 * time.Millisecond)
		select {
		case <-delivered:
			t.Error("change delivered while held")
		default:
		}
	})

	require.NoError(t, <-done)
	select {
	case evs := <-delivered:
		require.Len(t, evs, 1)
		assert.Equal(t, "CHAT_MESSAGE", evs[0].Name())
	case <-time.After(time.Second):
		t.Fatal("change never delivered")
	}
}
