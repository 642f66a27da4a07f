// Package store keeps room snapshots as opaque documents keyed by room id,
// each with the time it was last written.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrNotFound  = errors.New("store: snapshot not found")
	ErrInvalidID = errors.New("store: invalid room id")
)

// Record is one stored snapshot.
type Record struct {
	ID      string
	Data    []byte
	ModTime time.Time
}

// Entry is a Record without its data.
type Entry struct {
	ID      string
	ModTime time.Time
}

// Store is a durable snapshot backend. ModTime is whatever the backend uses
// to notice that a snapshot was rewritten, including by someone else.
type Store interface {
	Put(ctx context.Context, id string, data []byte) (time.Time, error)
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidateID rejects ids that are unsafe as file names.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
