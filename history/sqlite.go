package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lazharichir/pokerroom/domain/events"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRecorder appends events to a local SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS room_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			name TEXT NOT NULL,
			at INTEGER NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS room_events_room ON room_events (room_id, seq);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func (s *SQLiteRecorder) Append(ctx context.Context, event events.Event) error {
	e, err := NewEntry(event)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO room_events (room_id, name, at, payload) VALUES (?, ?, ?, ?)",
		e.RoomID, e.Name, e.At.UnixNano(), string(e.Payload))
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

func (s *SQLiteRecorder) LoadEvents(ctx context.Context, roomID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, room_id, name, at, payload FROM (
			SELECT * FROM room_events WHERE room_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq
	`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var at int64
		var payload string
		if err := rows.Scan(&e.Seq, &e.RoomID, &e.Name, &at, &payload); err != nil {
			return nil, fmt.Errorf("history: load: %w", err)
		}
		e.At = time.Unix(0, at).UTC()
		e.Payload = []byte(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteRecorder) Close() error { return s.db.Close() }
