// Package connection tracks the live sessions of every room: one session
// per player per room, the most recent connection winning.
package connection

import (
	"sort"
	"sync"

	"github.com/lazharichir/pokerroom/server/protocol"
	"go.uber.org/zap"
)

// Session is one live transport to a player.
type Session interface {
	ID() string
	PlayerID() string
	RoomID() string
	Send(msg protocol.ServerMessage) error
	Close() error
}

// Manager maps room -> player -> session. Delivery never holds the lock, so
// a session removed mid-broadcast is harmless and a slow send never blocks
// registration.
type Manager struct {
	mutex  sync.RWMutex
	rooms  map[string]map[string]Session
	logger *zap.Logger
}

// NewManager creates a new connection manager
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rooms:  make(map[string]map[string]Session),
		logger: logger,
	}
}

// AddConnection registers s for its player in its room and returns the
// session it replaced, if any. The old session is not closed.
func (m *Manager) AddConnection(s Session) (previous Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	players, ok := m.rooms[s.RoomID()]
	if !ok {
		players = make(map[string]Session)
		m.rooms[s.RoomID()] = players
	}
	previous = players[s.PlayerID()]
	players[s.PlayerID()] = s
	return previous
}

// RemoveConnection unregisters s. It reports false when s had already been
// replaced or removed, in which case nothing changes.
func (m *Manager) RemoveConnection(s Session) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	players, ok := m.rooms[s.RoomID()]
	if !ok {
		return false
	}
	if current, ok := players[s.PlayerID()]; !ok || current.ID() != s.ID() {
		return false
	}
	delete(players, s.PlayerID())
	if len(players) == 0 {
		delete(m.rooms, s.RoomID())
	}
	return true
}

// Current reports whether s is still the registered session of its player.
func (m *Manager) Current(s Session) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	current, ok := m.rooms[s.RoomID()][s.PlayerID()]
	return ok && current.ID() == s.ID()
}

func (m *Manager) sessions(roomID string, match func(playerID string) bool) []Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]Session, 0, len(m.rooms[roomID]))
	for playerID, s := range m.rooms[roomID] {
		if match == nil || match(playerID) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID() < out[j].PlayerID() })
	return out
}

func (m *Manager) deliver(sessions []Session, msg protocol.ServerMessage) {
	for _, s := range sessions {
		if err := s.Send(msg); err != nil {
			m.logger.Debug("send failed",
				zap.String("room_id", s.RoomID()),
				zap.String("player_id", s.PlayerID()),
				zap.String("type", string(msg.Type)),
				zap.Error(err),
			)
		}
	}
}

// Broadcast sends msg to everyone connected to the room.
func (m *Manager) Broadcast(roomID string, msg protocol.ServerMessage) {
	m.deliver(m.sessions(roomID, nil), msg)
}

// BroadcastExcept sends msg to everyone in the room but one player.
func (m *Manager) BroadcastExcept(roomID, exceptPlayerID string, msg protocol.ServerMessage) {
	m.deliver(m.sessions(roomID, func(id string) bool { return id != exceptPlayerID }), msg)
}

// BroadcastTo sends msg to the connected players accepted by match.
func (m *Manager) BroadcastTo(roomID string, match func(playerID string) bool, msg protocol.ServerMessage) {
	m.deliver(m.sessions(roomID, match), msg)
}

// SendTo sends msg to one player. It reports whether the player had a
// session; a failed send still counts.
func (m *Manager) SendTo(roomID, playerID string, msg protocol.ServerMessage) bool {
	sessions := m.sessions(roomID, func(id string) bool { return id == playerID })
	m.deliver(sessions, msg)
	return len(sessions) > 0
}

// Connections lists the connected player ids of a room, sorted.
func (m *Manager) Connections(roomID string) []string {
	sessions := m.sessions(roomID, nil)
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.PlayerID()
	}
	return out
}

// DisconnectRoom removes every session of a room, sends them farewell when
// given and closes them. It returns the players that were connected.
func (m *Manager) DisconnectRoom(roomID string, farewell *protocol.ServerMessage) []string {
	m.mutex.Lock()
	players := m.rooms[roomID]
	delete(m.rooms, roomID)
	m.mutex.Unlock()

	ids := make([]string, 0, len(players))
	sessions := make([]Session, 0, len(players))
	for id, s := range players {
		ids = append(ids, id)
		sessions = append(sessions, s)
	}
	sort.Strings(ids)
	if farewell != nil {
		m.deliver(sessions, *farewell)
	}
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			m.logger.Debug("close failed", zap.String("room_id", roomID), zap.String("player_id", s.PlayerID()), zap.Error(err))
		}
	}
	return ids
}
