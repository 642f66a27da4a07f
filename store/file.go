package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const fileExt = ".json"

// FileStore keeps one JSON file per room in a directory. Files may be
// edited or removed by hand; the file modification time reveals it.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the snapshot directory
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Put writes the snapshot to a temporary file and renames it into place so
// readers never see a partial write.
func (s *FileStore) Put(_ context.Context, id string, data []byte) (time.Time, error) {
	if err := ValidateID(id); err != nil {
		return time.Time{}, err
	}
	tmp, err := os.CreateTemp(s.dir, "."+id+".*.tmp")
	if err != nil {
		return time.Time{}, fmt.Errorf("store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return time.Time{}, fmt.Errorf("store: write %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return time.Time{}, fmt.Errorf("store: sync %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return time.Time{}, fmt.Errorf("store: close %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		return time.Time{}, fmt.Errorf("store: rename %s: %w", id, err)
	}
	info, err := os.Stat(s.path(id))
	if err != nil {
		return time.Time{}, fmt.Errorf("store: stat %s: %w", id, err)
	}
	return info.ModTime(), nil
}

func (s *FileStore) Get(_ context.Context, id string) (Record, error) {
	if err := ValidateID(id); err != nil {
		return Record{}, err
	}
	f, err := os.Open(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("store: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Record{}, fmt.Errorf("store: stat %s: %w", id, err)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return Record{}, fmt.Errorf("store: read %s: %w", id, err)
	}
	return Record{ID: id, Data: data, ModTime: info.ModTime()}, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// List returns every snapshot file, sorted by id. Temporary and foreign
// files are skipped.
func (s *FileStore) List(_ context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", s.dir, err)
	}
	var out []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(name, fileExt)
		if ValidateID(id) != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, Entry{ID: id, ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) Close() error { return nil }
