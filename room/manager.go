package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/store"
	"go.uber.org/zap"
)

// HookKind says what happened to a room in the registry
type HookKind string

const (
	HookCreated  HookKind = "CREATED"
	HookReloaded HookKind = "RELOADED"
	HookEvicted  HookKind = "EVICTED"
	HookDeleted  HookKind = "DELETED"
)

// Hook is called when a room is created, reloaded, evicted or deleted. For
// reloads and evictions it runs before the in-memory room changes, so
// sessions can be told and disconnected first.
type Hook func(kind HookKind, r *Room)

type managed struct {
	room     *Room
	unlisten func()

	saveMu  sync.Mutex
	modTime time.Time
	savedAt time.Time
	saves   int
}

// Manager is the registry of rooms. It writes a snapshot after every change
// and reconciles the registry with the store on a schedule.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*managed

	store  store.Store
	opts   Options
	logger *zap.Logger

	hmu   sync.Mutex
	hooks []Hook

	// rmu serializes LoadAll and Reconcile
	rmu     sync.Mutex
	corrupt map[string]time.Time
}

// NewManager creates a registry on top of a snapshot store. Every room it
// creates or loads gets opts.
func NewManager(st store.Store, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		rooms:   map[string]*managed{},
		store:   st,
		opts:    opts,
		logger:  opts.Logger,
		corrupt: map[string]time.Time{},
	}
}

// AddHook registers a registry hook.
func (m *Manager) AddHook(h Hook) {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	m.hooks = append(m.hooks, h)
}

func (m *Manager) fire(kind HookKind, r *Room) {
	m.hmu.Lock()
	hooks := append([]Hook(nil), m.hooks...)
	m.hmu.Unlock()
	for _, h := range hooks {
		h(kind, r)
	}
}

// CreateRoom registers and persists a new room. An empty id gets a fresh
// uuid.
func (m *Manager) CreateRoom(ctx context.Context, cfg Config) (*Room, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if err := store.ValidateID(cfg.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	r, err := New(cfg, m.opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, ok := m.rooms[cfg.ID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRoomExists, cfg.ID)
	}
	if _, err := m.store.Get(ctx, cfg.ID); err == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is in storage", ErrRoomExists, cfg.ID)
	}
	mr := m.track(r)
	m.mu.Unlock()

	if err := m.save(ctx, mr, r.Snapshot()); err != nil {
		m.mu.Lock()
		delete(m.rooms, cfg.ID)
		m.mu.Unlock()
		mr.unlisten()
		r.Close("create failed")
		return nil, err
	}
	m.logger.Info("room created", zap.String("room_id", cfg.ID), zap.String("name", cfg.Name))
	m.fire(HookCreated, r)
	return r, nil
}

// track registers r. Callers hold mu.
func (m *Manager) track(r *Room) *managed {
	mr := &managed{room: r}
	mr.unlisten = r.OnState(func(f *Frame, _ []events.Event, change Change) {
		if change == ChangeRestore {
			return
		}
		if err := m.save(context.Background(), mr, f.Snapshot()); err != nil {
			m.logger.Error("save snapshot", zap.String("room_id", f.ID()), zap.Error(err))
		}
	})
	m.rooms[r.ID()] = mr
	return mr
}

func (m *Manager) save(ctx context.Context, mr *managed, snap Snapshot) error {
	mr.saveMu.Lock()
	defer mr.saveMu.Unlock()
	if snap.SavedAt.Before(mr.savedAt) {
		// a later frame is already stored
		return nil
	}
	mr.savedAt = snap.SavedAt
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("room: encode snapshot: %w", err)
	}
	mod, err := m.store.Put(ctx, mr.room.ID(), data)
	if err != nil {
		return err
	}
	mr.modTime = mod
	mr.saves++
	return nil
}

// GetRoom returns a registered room
func (m *Manager) GetRoom(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mr, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return mr.room, nil
}

// Rooms lists the registered rooms sorted by id.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, mr := range m.rooms {
		out = append(out, mr.room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// DeleteRoom closes a room and removes its snapshot.
func (m *Manager) DeleteRoom(ctx context.Context, id string) error {
	m.mu.Lock()
	mr, ok := m.rooms[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	delete(m.rooms, id)
	m.mu.Unlock()

	m.fire(HookDeleted, mr.room)
	mr.unlisten()
	mr.room.Close("room deleted")
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	m.logger.Info("room deleted", zap.String("room_id", id))
	return nil
}

// LoadAll registers every room in the store that is not yet in memory.
// Corrupt snapshots are logged and skipped.
func (m *Manager) LoadAll(ctx context.Context) (int, error) {
	m.rmu.Lock()
	defer m.rmu.Unlock()
	entries, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		m.mu.RLock()
		_, known := m.rooms[e.ID]
		m.mu.RUnlock()
		if known {
			continue
		}
		if _, ok := m.load(ctx, e); ok {
			n++
		}
	}
	return n, nil
}

// load reads one stored room and registers it.
func (m *Manager) load(ctx context.Context, e store.Entry) (*Room, bool) {
	snap, mod, ok := m.read(ctx, e)
	if !ok {
		return nil, false
	}
	r, err := FromSnapshot(snap, m.opts)
	if err != nil {
		m.skip(e, err)
		return nil, false
	}
	m.mu.Lock()
	if _, exists := m.rooms[e.ID]; exists {
		m.mu.Unlock()
		r.Close("duplicate load")
		return nil, false
	}
	mr := m.track(r)
	mr.modTime = mod
	m.mu.Unlock()
	m.logger.Info("room loaded", zap.String("room_id", e.ID), zap.Int("hand", snap.GameState.HandNumber))
	return r, true
}

// read fetches and decodes a snapshot. Failures are logged once per
// modification time.
func (m *Manager) read(ctx context.Context, e store.Entry) (Snapshot, time.Time, bool) {
	if seen, ok := m.corrupt[e.ID]; ok && seen.Equal(e.ModTime) {
		return Snapshot{}, time.Time{}, false
	}
	rec, err := m.store.Get(ctx, e.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("read snapshot", zap.String("room_id", e.ID), zap.Error(err))
		}
		return Snapshot{}, time.Time{}, false
	}
	snap, err := DecodeSnapshot(rec.Data)
	if err == nil && snap.ID != e.ID {
		err = fmt.Errorf("%w: snapshot for %q stored as %q", ErrCorruptSnapshot, snap.ID, e.ID)
	}
	if err != nil {
		m.skip(store.Entry{ID: e.ID, ModTime: rec.ModTime}, err)
		return Snapshot{}, time.Time{}, false
	}
	delete(m.corrupt, e.ID)
	return snap, rec.ModTime, true
}

func (m *Manager) skip(e store.Entry, err error) {
	m.corrupt[e.ID] = e.ModTime
	m.logger.Warn("skipping snapshot", zap.String("room_id", e.ID), zap.Error(err))
}

// Reconcile brings the registry in line with the store. A snapshot written
// since the last save or load replaces the room's state, a missing snapshot
// evicts the room and an unknown one is loaded.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.rmu.Lock()
	defer m.rmu.Unlock()
	entries, err := m.store.List(ctx)
	if err != nil {
		return err
	}
	onDisk := make(map[string]store.Entry, len(entries))
	for _, e := range entries {
		onDisk[e.ID] = e
	}

	m.mu.RLock()
	current := make(map[string]*managed, len(m.rooms))
	for id, mr := range m.rooms {
		current[id] = mr
	}
	m.mu.RUnlock()

	for id, mr := range current {
		e, ok := onDisk[id]
		if !ok {
			m.evict(mr)
			continue
		}
		m.reload(ctx, mr, e)
	}
	for id, e := range onDisk {
		if _, ok := current[id]; ok {
			continue
		}
		if r, ok := m.load(ctx, e); ok {
			m.fire(HookCreated, r)
		}
	}
	for id := range m.corrupt {
		if _, ok := onDisk[id]; !ok {
			delete(m.corrupt, id)
		}
	}
	return nil
}

func (m *Manager) evict(mr *managed) {
	id := mr.room.ID()
	m.mu.Lock()
	if m.rooms[id] != mr {
		m.mu.Unlock()
		return
	}
	delete(m.rooms, id)
	m.mu.Unlock()

	m.logger.Info("room evicted, snapshot removed", zap.String("room_id", id))
	m.fire(HookEvicted, mr.room)
	mr.unlisten()
	mr.room.Close("snapshot removed")
}

func (m *Manager) reload(ctx context.Context, mr *managed, e store.Entry) {
	mr.saveMu.Lock()
	stale := !e.ModTime.Equal(mr.modTime)
	saves := mr.saves
	mr.saveMu.Unlock()
	if !stale {
		return
	}
	snap, mod, ok := m.read(ctx, e)
	if !ok {
		return
	}
	mr.saveMu.Lock()
	if mr.saves != saves {
		// our own write landed after the listing
		mr.saveMu.Unlock()
		return
	}
	mr.modTime = mod
	mr.saveMu.Unlock()

	m.logger.Info("room reloaded from snapshot",
		zap.String("room_id", e.ID),
		zap.Int("hand", snap.GameState.HandNumber),
	)
	m.fire(HookReloaded, mr.room)
	if err := mr.room.Restore(snap); err != nil {
		m.logger.Error("restore snapshot", zap.String("room_id", e.ID), zap.Error(err))
		return
	}

	// a live change saved between the read and the restore would leave the
	// store ahead of memory
	mr.saveMu.Lock()
	raced := mr.saves != saves
	mr.saveMu.Unlock()
	if raced {
		if err := m.save(ctx, mr, mr.room.Snapshot()); err != nil {
			m.logger.Error("save snapshot", zap.String("room_id", e.ID), zap.Error(err))
		}
	}
}

// Run reconciles every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Reconcile(ctx); err != nil {
				m.logger.Error("reconcile rooms", zap.Error(err))
			}
		}
	}
}

// Close closes every room without touching the store.
func (m *Manager) Close() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = map[string]*managed{}
	m.mu.Unlock()
	for _, mr := range rooms {
		mr.unlisten()
		mr.room.Close("server shutting down")
	}
}
