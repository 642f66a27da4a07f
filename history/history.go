// Package history records the domain events rooms publish, giving each
// room a queryable hand history.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lazharichir/pokerroom/domain/events"
	"go.uber.org/zap"
)

var ErrNoRoom = errors.New("history: event has no room id")

// Entry is one recorded event.
type Entry struct {
	Seq     int64           `json:"seq"`
	RoomID  string          `json:"roomId"`
	Name    string          `json:"name"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Recorder stores events and reads them back per room in publish order.
type Recorder interface {
	Append(ctx context.Context, event events.Event) error
	// LoadEvents returns the last limit events of a room, oldest first. A
	// limit of zero returns everything.
	LoadEvents(ctx context.Context, roomID string, limit int) ([]Entry, error)
	Close() error
}

// NewEntry renders an event for storage. Seq is assigned by the recorder.
func NewEntry(event events.Event) (Entry, error) {
	if event.Room() == "" {
		return Entry{}, ErrNoRoom
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return Entry{}, fmt.Errorf("history: encode %s: %w", event.Name(), err)
	}
	return Entry{
		RoomID:  event.Room(),
		Name:    event.Name(),
		At:      event.OccurredAt().UTC(),
		Payload: payload,
	}, nil
}

// Handler returns a room event handler that records into rec. Failures are
// logged and never reach the room.
func Handler(rec Recorder, logger *zap.Logger) events.EventHandler {
	return func(event events.Event) {
		if err := rec.Append(context.Background(), event); err != nil {
			logger.Warn("record event",
				zap.String("room_id", event.Room()),
				zap.String("event", event.Name()),
				zap.Error(err),
			)
		}
	}
}

// Open builds the recorder for a backend name: memory, sqlite, postgres or
// none. dsn is the database path for sqlite and the connection string for
// postgres.
func Open(ctx context.Context, backend, dsn string) (Recorder, error) {
	switch backend {
	case "memory":
		return NewInMemoryRecorder(DefaultMemoryLimit), nil
	case "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	case "none", "":
		return Discard{}, nil
	}
	return nil, fmt.Errorf("history: unknown backend %q", backend)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Append(context.Context, events.Event) error { return nil }
func (Discard) Close() error                               { return nil }

func (Discard) LoadEvents(context.Context, string, int) ([]Entry, error) {
	return []Entry{}, nil
}
