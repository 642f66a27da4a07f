package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps snapshots as rows; updated_at plays the part of a file
// modification time.
type SQLiteStore struct {
	db *sql.DB

	mu   sync.Mutex
	last int64
}

// OpenSQLite opens (or creates) the database at path and its table.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS room_snapshots (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// stamp returns a strictly increasing unix nano timestamp.
func (s *SQLiteStore) stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixNano()
	if now <= s.last {
		now = s.last + 1
	}
	s.last = now
	return now
}

func (s *SQLiteStore) Put(ctx context.Context, id string, data []byte) (time.Time, error) {
	if err := ValidateID(id); err != nil {
		return time.Time{}, err
	}
	ts := s.stamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_snapshots (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, id, data, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: put %s: %w", id, err)
	}
	return time.Unix(0, ts), nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	var data []byte
	var ts int64
	err := s.db.QueryRowContext(ctx, "SELECT data, updated_at FROM room_snapshots WHERE id = ?", id).Scan(&data, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	return Record{ID: id, Data: data, ModTime: time.Unix(0, ts)}, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM room_snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, updated_at FROM room_snapshots ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &ts); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		e.ModTime = time.Unix(0, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
