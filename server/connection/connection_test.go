package connection

import (
	"errors"
	"sync"
	"testing"

	"github.com/lazharichir/pokerroom/server/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id, player, room string

	mu     sync.Mutex
	sent   []protocol.ServerMessage
	closed bool
	fail   bool
	onSend func()
}

func (s *fakeSession) ID() string       { return s.id }
func (s *fakeSession) PlayerID() string { return s.player }
func (s *fakeSession) RoomID() string   { return s.room }

func (s *fakeSession) Send(msg protocol.ServerMessage) error {
	if s.onSend != nil {
		s.onSend()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broken pipe")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) types() []protocol.ServerMessageType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.ServerMessageType, len(s.sent))
	for i, m := range s.sent {
		out[i] = m.Type
	}
	return out
}

func session(id, player, room string) *fakeSession {
	return &fakeSession{id: id, player: player, room: room}
}

func TestAddConnectionReplaces(t *testing.T) {
	m := NewManager(nil)
	old := session("s1", "alice", "r1")
	assert.Nil(t, m.AddConnection(old))

	fresh := session("s2", "alice", "r1")
	assert.Same(t, old, m.AddConnection(fresh))
	assert.False(t, old.closed, "the replaced session is abandoned, not closed")
	assert.False(t, m.Current(old))
	assert.True(t, m.Current(fresh))

	t.Run("stale session cannot remove its successor", func(t *testing.T) {
		assert.False(t, m.RemoveConnection(old))
		assert.Equal(t, []string{"alice"}, m.Connections("r1"))
	})

	t.Run("remove current", func(t *testing.T) {
		assert.True(t, m.RemoveConnection(fresh))
		assert.Empty(t, m.Connections("r1"))
		assert.False(t, m.RemoveConnection(fresh))
	})
}

func TestBroadcastSkipsDeadSessions(t *testing.T) {
	m := NewManager(nil)
	alice := session("a", "alice", "r1")
	bob := session("b", "bob", "r1")
	bob.fail = true
	carol := session("c", "carol", "r1")
	other := session("d", "dave", "r2")
	for _, s := range []*fakeSession{alice, bob, carol, other} {
		m.AddConnection(s)
	}

	m.Broadcast("r1", protocol.NewPlayerDisconnected("x"))
	assert.Len(t, alice.types(), 1)
	assert.Len(t, carol.types(), 1, "a failing session does not stop delivery")
	assert.Empty(t, other.types())

	m.BroadcastExcept("r1", "alice", protocol.NewPlayerConnected("x", "X"))
	assert.Len(t, alice.types(), 1)
	assert.Len(t, carol.types(), 2)

	assert.True(t, m.SendTo("r1", "alice", protocol.NewWelcome("alice")))
	assert.True(t, m.SendTo("r1", "bob", protocol.NewWelcome("bob")))
	assert.False(t, m.SendTo("r1", "nobody", protocol.NewWelcome("nobody")))
	assert.Equal(t, []protocol.ServerMessageType{protocol.PlayerDisconnected, protocol.Welcome}, alice.types())

	m.BroadcastTo("r1", func(id string) bool { return id == "carol" }, protocol.NewWelcome("c"))
	assert.Len(t, carol.types(), 3)
	assert.Len(t, alice.types(), 2)
}

func TestBroadcastToleratesRemovalMidIteration(t *testing.T) {
	m := NewManager(nil)
	alice := session("a", "alice", "r1")
	bob := session("b", "bob", "r1")
	alice.onSend = func() { m.RemoveConnection(bob) }
	m.AddConnection(alice)
	m.AddConnection(bob)

	m.Broadcast("r1", protocol.NewWelcome("x"))
	assert.Len(t, alice.types(), 1)
	assert.Len(t, bob.types(), 1, "the iteration works on a copy")
	assert.Equal(t, []string{"alice"}, m.Connections("r1"))
}

func TestDisconnectRoom(t *testing.T) {
	m := NewManager(nil)
	alice := session("a", "alice", "r1")
	bob := session("b", "bob", "r1")
	m.AddConnection(alice)
	m.AddConnection(bob)

	bye := protocol.NewError("ROOM_RELOADED", "reloaded")
	ids := m.DisconnectRoom("r1", &bye)
	assert.Equal(t, []string{"alice", "bob"}, ids)
	for _, s := range []*fakeSession{alice, bob} {
		require.Equal(t, []protocol.ServerMessageType{protocol.Error}, s.types())
		assert.True(t, s.closed)
	}
	assert.Empty(t, m.Connections("r1"))
	assert.False(t, m.RemoveConnection(alice))
}
