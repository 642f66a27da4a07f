package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "rooms"))
	require.NoError(t, err)
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "poker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"file": fs, "sqlite": sq}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)

			first, err := s.Put(ctx, "room-b", []byte(`{"v":1}`))
			require.NoError(t, err)
			_, err = s.Put(ctx, "room-a", []byte(`{"v":1}`))
			require.NoError(t, err)

			rec, err := s.Get(ctx, "room-b")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":1}`), rec.Data)
			assert.True(t, rec.ModTime.Equal(first))

			entries, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "room-a", entries[0].ID)
			assert.Equal(t, "room-b", entries[1].ID)

			time.Sleep(10 * time.Millisecond)
			second, err := s.Put(ctx, "room-b", []byte(`{"v":2}`))
			require.NoError(t, err)
			assert.False(t, second.Before(first))
			rec, err = s.Get(ctx, "room-b")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":2}`), rec.Data)

			require.NoError(t, s.Delete(ctx, "room-b"))
			entries, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, 1)

			_, err = s.Put(ctx, "../escape", []byte(`{}`))
			assert.ErrorIs(t, err, ErrInvalidID)
		})
	}
}

func TestFileStoreSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".room.123.tmp"), []byte("{}"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))
	_, err = s.Put(context.Background(), "real", []byte("{}"))
	require.NoError(t, err)

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "real", entries[0].ID)
}

func TestFileStoreSeesExternalEdits(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	written, err := s.Put(context.Background(), "room", []byte("{}"))
	require.NoError(t, err)

	later := written.Add(time.Minute)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "room.json"), []byte(`{"edited":true}`), 0o600))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "room.json"), later, later))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].ModTime.After(written))
}
