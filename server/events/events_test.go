package events

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/game"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/lazharichir/pokerroom/room"
	"github.com/lazharichir/pokerroom/server/connection"
	"github.com/lazharichir/pokerroom/server/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	player, room string

	mu   sync.Mutex
	sent []protocol.ServerMessage
}

func (s *recorder) ID() string       { return "s-" + s.player }
func (s *recorder) PlayerID() string { return s.player }
func (s *recorder) RoomID() string   { return s.room }
func (s *recorder) Close() error     { return nil }

func (s *recorder) Send(msg protocol.ServerMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// take drains the messages received so far.
func (s *recorder) take() []protocol.ServerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sent
	s.sent = nil
	return out
}

func count(msgs []protocol.ServerMessage, t protocol.ServerMessageType) int {
	n := 0
	for _, m := range msgs {
		if m.Type == t {
			n++
		}
	}
	return n
}

func eventNames(msgs []protocol.ServerMessage) []string {
	var out []string
	for _, m := range msgs {
		if env, ok := m.Payload.(protocol.EventEnvelope); ok {
			out = append(out, env.Name)
		}
	}
	return out
}

func config(id string, spectators bool) room.Config {
	return room.Config{
		ID:              id,
		Name:            id,
		MaxPlayers:      6,
		Variant:         hands.TexasHoldem,
		SmallBlind:      5,
		BigBlind:        10,
		MinBuyIn:        100,
		MaxBuyIn:        1000,
		AllowSpectators: spectators,
		Timing: room.Timing{
			ReservationDuration: time.Minute,
			ActionTimeout:       30 * time.Second,
			ShowdownDelay:       time.Second,
			NextHandDelay:       time.Second,
		},
	}
}

type table struct {
	room  *room.Room
	conns *connection.Manager
	disp  *Dispatcher
	peers map[string]*recorder
}

func newTable(t *testing.T, cfg room.Config) *table {
	t.Helper()
	r, err := room.New(cfg, room.Options{
		Scheduler: room.NewManualScheduler(),
		Dealer:    game.NewStandardDealer(rand.New(rand.NewSource(3))),
	})
	require.NoError(t, err)
	conns := connection.NewManager(nil)
	d := NewDispatcher(conns, nil)
	d.Attach(r)
	return &table{room: r, conns: conns, disp: d, peers: map[string]*recorder{}}
}

// connect joins a player and registers a session for them.
func (tb *table) connect(t *testing.T, id string) *recorder {
	t.Helper()
	s := &recorder{player: id, room: tb.room.ID()}
	tb.conns.AddConnection(s)
	tb.peers[id] = s
	require.NoError(t, tb.room.Join(domain.Player{ID: id, Name: id}))
	return s
}

func (tb *table) drain() {
	for _, s := range tb.peers {
		s.take()
	}
}

func TestDispatcherRoutesHoleCards(t *testing.T) {
	tb := newTable(t, config("route", true))
	alice := tb.connect(t, "alice")
	bob := tb.connect(t, "bob")
	carol := tb.connect(t, "carol")
	require.NoError(t, tb.room.TakeSeat("alice", 1, 500))
	require.NoError(t, tb.room.TakeSeat("bob", 2, 500))
	tb.drain()

	require.NoError(t, tb.room.StartGame("alice"))
	a, b, c := alice.take(), bob.take(), carol.take()

	holeCards := func(msgs []protocol.ServerMessage) []string {
		var owners []string
		for _, m := range msgs {
			if env, ok := m.Payload.(protocol.EventEnvelope); ok {
				if e, ok := env.Event.(events.HoleCardsDealt); ok {
					owners = append(owners, e.PlayerID)
				}
			}
		}
		return owners
	}
	assert.Equal(t, []string{"alice"}, holeCards(a))
	assert.Equal(t, []string{"bob"}, holeCards(b))
	assert.Empty(t, holeCards(c), "spectators never get hole cards")
	assert.Contains(t, eventNames(c), "HAND_STARTED")

	for name, msgs := range map[string][]protocol.ServerMessage{"alice": a, "bob": b, "carol": c} {
		require.Equal(t, 1, count(msgs, protocol.GameStateUpdate), name)
		last := msgs[len(msgs)-1]
		if last.Type == protocol.ActionRequired {
			last = msgs[len(msgs)-2]
		}
		require.Equal(t, protocol.GameStateUpdate, last.Type, name)
		view := last.Payload.(protocol.GameStatePayload).State
		assert.Equal(t, name, view.ViewerID)
		for _, s := range view.Seats {
			if s.Player == nil {
				continue
			}
			for _, card := range s.Player.HoleCards {
				assert.Equal(t, s.Player.ID != name, card.Hidden, "%s sees %s", name, s.Player.ID)
			}
		}
	}
}

func TestDispatcherPromptsActorOnce(t *testing.T) {
	tb := newTable(t, config("prompt", true))
	tb.connect(t, "alice")
	tb.connect(t, "bob")
	watcher := tb.connect(t, "carol")
	require.NoError(t, tb.room.TakeSeat("alice", 1, 500))
	require.NoError(t, tb.room.TakeSeat("bob", 2, 500))
	require.NoError(t, tb.room.StartGame("alice"))

	req, ok := tb.room.PendingAction()
	require.True(t, ok)
	actor := tb.peers[req.PlayerID]
	msgs := actor.take()
	require.Equal(t, 1, count(msgs, protocol.ActionRequired))
	assert.Equal(t, protocol.ActionRequired, msgs[len(msgs)-1].Type)
	assert.Zero(t, count(watcher.take(), protocol.ActionRequired))

	t.Run("unrelated change does not prompt again", func(t *testing.T) {
		require.NoError(t, tb.room.Chat("carol", "gl"))
		msgs := actor.take()
		assert.Equal(t, []string{"CHAT_MESSAGE"}, eventNames(msgs))
		assert.Zero(t, count(msgs, protocol.ActionRequired))
	})

	t.Run("next actor is prompted", func(t *testing.T) {
		tb.drain()
		require.NoError(t, tb.room.PerformAction(req.PlayerID, game.Action{Kind: game.ActionCall}))
		next, ok := tb.room.PendingAction()
		require.True(t, ok)
		require.NotEqual(t, req.PlayerID, next.PlayerID)
		assert.Equal(t, 1, count(tb.peers[next.PlayerID].take(), protocol.ActionRequired))
		assert.Zero(t, count(actor.take(), protocol.ActionRequired))
	})
}

func TestDispatcherWithoutSpectators(t *testing.T) {
	tb := newTable(t, config("closed", false))
	tb.connect(t, "alice")
	tb.connect(t, "bob")
	dave := tb.connect(t, "dave")
	require.NoError(t, tb.room.TakeSeat("alice", 1, 500))
	require.NoError(t, tb.room.TakeSeat("bob", 2, 500))
	tb.drain()

	require.NoError(t, tb.room.StartGame("alice"))
	require.NoError(t, tb.room.Chat("alice", "hi"))
	msgs := dave.take()
	assert.Zero(t, count(msgs, protocol.GameStateUpdate))
	assert.Equal(t, []string{"CHAT_MESSAGE"}, eventNames(msgs))
}

func TestDispatcherDetach(t *testing.T) {
	tb := newTable(t, config("detach", true))
	alice := tb.connect(t, "alice")
	require.True(t, tb.disp.Attached("detach"))
	assert.NotEmpty(t, alice.take())

	tb.disp.Detach("detach")
	assert.False(t, tb.disp.Attached("detach"))
	require.NoError(t, tb.room.Chat("alice", "anyone?"))
	assert.Empty(t, alice.take())
}

func TestDispatcherRestoreResetsPrompt(t *testing.T) {
	tb := newTable(t, config("restore", true))
	tb.connect(t, "alice")
	tb.connect(t, "bob")
	require.NoError(t, tb.room.TakeSeat("alice", 1, 500))
	require.NoError(t, tb.room.TakeSeat("bob", 2, 500))
	require.NoError(t, tb.room.StartGame("alice"))

	req, ok := tb.room.PendingAction()
	require.True(t, ok)
	tb.drain()

	require.NoError(t, tb.room.Restore(tb.room.Snapshot()))
	msgs := tb.peers[req.PlayerID].take()
	assert.Equal(t, 1, count(msgs, protocol.GameStateUpdate))
	assert.Equal(t, 1, count(msgs, protocol.ActionRequired), "restored turn is prompted again")
}
