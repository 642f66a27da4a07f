package history

import (
	"context"
	"sync"

	"github.com/lazharichir/pokerroom/domain/events"
)

// DefaultMemoryLimit is how many events the memory recorder keeps per room
const DefaultMemoryLimit = 5000

// InMemoryRecorder keeps the most recent events of every room in memory.
type InMemoryRecorder struct {
	mutex  sync.RWMutex
	events map[string][]Entry
	seq    int64
	limit  int
}

// NewInMemoryRecorder keeps up to limit events per room; zero keeps all.
func NewInMemoryRecorder(limit int) *InMemoryRecorder {
	return &InMemoryRecorder{
		events: make(map[string][]Entry),
		limit:  limit,
	}
}

// Append adds a new event to the room's history.
func (s *InMemoryRecorder) Append(_ context.Context, event events.Event) error {
	entry, err := NewEntry(event)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.seq++
	entry.Seq = s.seq
	list := append(s.events[entry.RoomID], entry)
	if s.limit > 0 && len(list) > s.limit {
		list = append([]Entry(nil), list[len(list)-s.limit:]...)
	}
	s.events[entry.RoomID] = list
	return nil
}

// LoadEvents returns a copy of the room's recent events.
func (s *InMemoryRecorder) LoadEvents(_ context.Context, roomID string, limit int) ([]Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	list := s.events[roomID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	result := make([]Entry, len(list))
	copy(result, list)
	return result, nil
}

// Forget drops a room's history
func (s *InMemoryRecorder) Forget(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.events, roomID)
}

func (s *InMemoryRecorder) Close() error { return nil }
