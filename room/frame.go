package room

import (
	"sort"
	"time"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/game"
)

// Frame is a copy of a room taken at the end of a change. It shares nothing
// with the live room, so it can be read while the room moves on.
type Frame struct {
	cfg        Config
	state      *game.GameState
	seats      []SeatInfo
	members    map[string]domain.Player
	spectators map[string]bool
	started    bool
	at         time.Time
}

// frameLocked copies the room. Callers hold mu.
func (r *Room) frameLocked() *Frame {
	f := &Frame{
		cfg:        r.cfg,
		state:      r.state().Clone(),
		seats:      r.seats.SeatInfo(r.state().Table),
		members:    make(map[string]domain.Player, len(r.members)),
		spectators: make(map[string]bool, len(r.spectators)),
		started:    r.started,
		at:         r.now().UTC(),
	}
	for id, p := range r.members {
		f.members[id] = p
	}
	for id, ok := range r.spectators {
		f.spectators[id] = ok
	}
	return f
}

// Frame copies the room as it is now.
func (r *Room) Frame() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameLocked()
}

// Hold runs fn with a copy of the room while no change is being delivered.
// Changes made meanwhile reach listeners after fn returns, so whatever fn
// sends is ordered before them. fn must not call back into the room.
func (r *Room) Hold(fn func(*Frame)) {
	r.mu.Lock()
	f := r.frameLocked()
	r.pubMu.Lock()
	r.mu.Unlock()
	defer r.pubMu.Unlock()
	fn(f)
}

func (f *Frame) ID() string { return f.cfg.ID }

func (f *Frame) Config() Config { return f.cfg }

func (f *Frame) isMember(playerID string) bool {
	_, ok := f.members[playerID]
	return ok || f.state.Table.FindPlayer(playerID) != nil
}

// CanObserve reports whether a member receives the game feed: seated
// players always do, others only when the room admits spectators.
func (f *Frame) CanObserve(playerID string) bool {
	if f.state.Table.SeatOf(playerID) != 0 {
		return true
	}
	_, member := f.members[playerID]
	return member && f.cfg.AllowSpectators
}

// View returns the game state as viewerID may see it.
func (f *Frame) View(viewerID string) (StateView, error) {
	if !f.isMember(viewerID) {
		return StateView{}, ErrNotInRoom
	}
	if !f.CanObserve(viewerID) {
		return StateView{}, ErrSpectatorsNotAllowed
	}
	return buildView(f.cfg.ID, viewerID, f.state, f.seats), nil
}

// PendingAction returns the request for whoever must act.
func (f *Frame) PendingAction() (game.ActionRequest, bool) {
	return game.PendingRequest(f.state)
}

// Info summarizes the room for listings
type Info struct {
	Config
	Phase      game.Phase `json:"phase"`
	HandNumber int        `json:"handNumber"`
	Started    bool       `json:"started"`
	Players    int        `json:"players"`
	Spectators int        `json:"spectators"`
	Seats      []SeatInfo `json:"seats"`
}

func (f *Frame) Info() Info {
	return Info{
		Config:     f.cfg,
		Phase:      f.state.Phase,
		HandNumber: f.state.HandNumber,
		Started:    f.started,
		Players:    len(f.state.Table.Players()),
		Spectators: len(f.spectators),
		Seats:      f.seats,
	}
}

// Members lists the ids of everyone in the room, sorted.
func (f *Frame) Members() []string {
	out := make([]string, 0, len(f.members))
	for id := range f.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the durable form of the frame.
func (f *Frame) Snapshot() Snapshot {
	return Snapshot{
		Config:    f.cfg,
		Started:   f.started,
		SavedAt:   f.at,
		GameState: f.state.Clone(),
	}
}
