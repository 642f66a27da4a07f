package history

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lazharichir/pokerroom/domain/events"
)

//go:embed schema.sql
var schema embed.FS

// PostgresRecorder appends events to a shared PostgreSQL database.
type PostgresRecorder struct{ *pgxpool.Pool }

// OpenPostgres connects and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	rec := &PostgresRecorder{p}
	if err := Migrate(ctx, rec); err != nil {
		p.Close()
		return nil, err
	}
	return rec, nil
}

// Migrate creates the history table when missing.
func Migrate(ctx context.Context, db *PostgresRecorder) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err = db.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

func (db *PostgresRecorder) Append(ctx context.Context, event events.Event) error {
	e, err := NewEntry(event)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO room_events (room_id, name, at, payload) VALUES ($1, $2, $3, $4)
	`, e.RoomID, e.Name, e.At, string(e.Payload))
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

func (db *PostgresRecorder) LoadEvents(ctx context.Context, roomID string, limit int) ([]Entry, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := db.Query(ctx, `
		SELECT seq, room_id, name, at, payload::text FROM (
			SELECT * FROM room_events WHERE room_id = $1 ORDER BY seq DESC LIMIT $2
		) recent ORDER BY seq
	`, roomID, lim)
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var payload string
		if err := rows.Scan(&e.Seq, &e.RoomID, &e.Name, &e.At, &payload); err != nil {
			return nil, fmt.Errorf("history: load: %w", err)
		}
		e.At = e.At.UTC()
		e.Payload = []byte(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *PostgresRecorder) Close() error {
	db.Pool.Close()
	return nil
}
