package room

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/game"
	"go.uber.org/zap"
)

// Change tells state listeners why the room changed
type Change int

const (
	ChangeMutation Change = iota // a player or timer changed the game
	ChangeRestore                // the state was replaced from storage
)

// StateListener is told after a change has been applied and its events
// published. It gets a frame taken when the change completed together with
// the events the change produced; it must not call back into the room's
// read methods, which would wait on the next mutation.
type StateListener func(f *Frame, evs []events.Event, change Change)

// Options are the collaborators of a room. Zero values pick the defaults.
type Options struct {
	Scheduler Scheduler
	Dealer    game.Dealer
	Logger    *zap.Logger
	Now       func() time.Time
}

type turnKey struct {
	hand int
	seq  int
}

// Room owns one table. Every mutation runs under mu; events and state
// notifications are delivered afterwards under pubMu, in mutation order, so
// slow listeners never hold up the table and never see a half-applied
// change.
type Room struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	cfg        Config
	engine     *game.Engine
	seats      *SeatManager
	members    map[string]domain.Player
	spectators map[string]bool
	started    bool
	closed     bool

	bus       *events.Bus
	lmu       sync.Mutex
	listeners map[int]StateListener
	nextLisID int
	pending   []events.Event
	dirty     bool

	sched  Scheduler
	dealer game.Dealer
	logger *zap.Logger
	now    func() time.Time

	turnTimer     Timer
	turn          turnKey
	extended      bool
	showdownTimer Timer
	showdownFor   int
	nextTimer     Timer
	nextFor       int
}

// New creates an empty room.
func New(cfg Config, opts Options) (*Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newRoom(cfg, game.NewGameState(cfg.Rules(), cfg.MaxPlayers), opts)
}

// FromSnapshot rebuilds a room from storage. Seated players start out
// disconnected until they join again.
func FromSnapshot(s Snapshot, opts Options) (*Room, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	state := s.GameState.Clone()
	if state == nil {
		state = game.NewGameState(s.Config.Rules(), s.MaxPlayers)
	}
	r, err := newRoom(s.Config, state, opts)
	if err != nil {
		return nil, err
	}
	r.started = s.Started
	r.resetMembers()
	r.mu.Lock()
	r.armTimers()
	r.mu.Unlock()
	return r, nil
}

func newRoom(cfg Config, state *game.GameState, opts Options) (*Room, error) {
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &Room{
		cfg:         cfg,
		members:     map[string]domain.Player{},
		spectators:  map[string]bool{},
		bus:         &events.Bus{},
		listeners:   map[int]StateListener{},
		sched:       opts.Scheduler,
		dealer:      opts.Dealer,
		logger:      opts.Logger.With(zap.String("room_id", cfg.ID)),
		now:         opts.Now,
		showdownFor: -1,
		nextFor:     -1,
		started:     cfg.AutoStart,
	}
	if err := r.setState(state); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Room) setState(state *game.GameState) error {
	state.Rules = r.cfg.Rules()
	state.Normalize(r.cfg.MaxPlayers)
	engine, err := game.NewEngine(r.cfg.ID, state, r.dealer, r.cfg.rake(), r.logger)
	if err != nil {
		return err
	}
	r.engine = engine
	r.seats = NewSeatManager(r.cfg.Timing.ReservationDuration, r.now)
	return nil
}

func (r *Room) resetMembers() {
	r.members = map[string]domain.Player{}
	r.spectators = map[string]bool{}
	for _, p := range r.engine.State.Table.Players() {
		p.SetDisconnected(true)
		r.members[p.ID()] = p.Player
	}
}

// ID returns the room id
func (r *Room) ID() string { return r.cfg.ID }

// Config returns the room config
func (r *Room) Config() Config { return r.cfg }

// Subscribe registers a domain event handler.
func (r *Room) Subscribe(h events.EventHandler) (unsubscribe func()) {
	return r.bus.Subscribe(h)
}

// OnState registers a listener called after every applied change.
func (r *Room) OnState(l StateListener) (remove func()) {
	r.lmu.Lock()
	defer r.lmu.Unlock()
	id := r.nextLisID
	r.nextLisID++
	r.listeners[id] = l
	return func() {
		r.lmu.Lock()
		defer r.lmu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *Room) notify(f *Frame, evs []events.Event, change Change) {
	r.lmu.Lock()
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	ls := make([]StateListener, len(ids))
	for i, id := range ids {
		ls[i] = r.listeners[id]
	}
	r.lmu.Unlock()
	for _, l := range ls {
		l(f, evs, change)
	}
}

func (r *Room) collect() {
	r.pending = append(r.pending, r.engine.TakeEvents()...)
}

func (r *Room) emit(ev events.Event) {
	r.collect()
	r.pending = append(r.pending, ev)
}

func (r *Room) meta() events.Meta {
	return events.Meta{RoomID: r.cfg.ID, At: r.now().UTC()}
}

// do runs fn as one serialized mutation and then publishes what it produced.
func (r *Room) do(fn func() error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	err := fn()
	r.collect()
	evs := r.pending
	r.pending = nil
	changed := len(evs) > 0 || r.dirty
	r.dirty = false
	r.armTimers()
	var f *Frame
	if changed {
		f = r.frameLocked()
	}

	r.pubMu.Lock()
	r.mu.Unlock()
	defer r.pubMu.Unlock()
	if len(evs) > 0 {
		r.bus.Publish(evs...)
	}
	if changed {
		r.notify(f, evs, ChangeMutation)
	}
	return err
}

func (r *Room) state() *game.GameState {
	return r.engine.State
}

func (r *Room) isMember(playerID string) bool {
	_, ok := r.members[playerID]
	return ok || r.state().Table.FindPlayer(playerID) != nil
}

// Join admits a player. A seated player coming back is marked connected
// again; anyone else watches as a spectator when the room allows it.
func (r *Room) Join(p domain.Player) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing player id", ErrNotInRoom)
	}
	return r.do(func() error {
		if ps := r.state().Table.FindPlayer(p.ID); ps != nil {
			r.members[p.ID] = ps.Player
			r.connectedLocked(ps)
			r.emit(events.PlayerJoinedRoom{Meta: r.meta(), PlayerID: p.ID, PlayerName: ps.Player.Name})
			return nil
		}
		_, already := r.members[p.ID]
		r.members[p.ID] = p
		if r.cfg.AllowSpectators {
			if !r.spectators[p.ID] {
				r.spectators[p.ID] = true
				r.emit(events.SpectatorJoined{Meta: r.meta(), PlayerID: p.ID, PlayerName: p.Name})
			}
			return nil
		}
		if !already {
			r.emit(events.PlayerJoinedRoom{Meta: r.meta(), PlayerID: p.ID, PlayerName: p.Name})
		}
		return nil
	})
}

// Leave takes a player out of the room, standing them up first.
func (r *Room) Leave(playerID string) error {
	return r.do(func() error {
		if !r.isMember(playerID) {
			return ErrNotInRoom
		}
		if r.state().Table.SeatOf(playerID) != 0 {
			if err := r.standUpLocked(playerID); err != nil {
				return err
			}
		}
		r.seats.Cancel(playerID)
		delete(r.members, playerID)
		if r.spectators[playerID] {
			delete(r.spectators, playerID)
			r.emit(events.SpectatorLeft{Meta: r.meta(), PlayerID: playerID})
			return nil
		}
		r.emit(events.PlayerLeftRoom{Meta: r.meta(), PlayerID: playerID})
		return nil
	})
}

// ReserveSeat holds an empty seat for the configured reservation time.
func (r *Room) ReserveSeat(playerID string, seat int) (Reservation, error) {
	var res Reservation
	err := r.do(func() error {
		if !r.isMember(playerID) {
			return ErrNotInRoom
		}
		if r.state().Table.SeatOf(playerID) != 0 {
			return domain.ErrAlreadySeated
		}
		var err error
		if res, err = r.seats.Reserve(r.state().Table, seat, playerID); err != nil {
			return err
		}
		r.dirty = true
		return nil
	})
	return res, err
}

// TakeSeat sits a room member down with buyIn chips, clamped to the table
// maximum. Taking the seat one already holds is a no-op.
func (r *Room) TakeSeat(playerID string, seat int, buyIn int64) error {
	return r.do(func() error {
		p, ok := r.members[playerID]
		if !ok {
			return ErrNotInRoom
		}
		t := r.state().Table
		s, err := t.Seat(seat)
		if err != nil {
			return err
		}
		if t.SeatOf(playerID) == seat {
			return nil
		}
		if buyIn < r.cfg.MinBuyIn {
			return fmt.Errorf("%w: %d < %d", ErrBuyInTooLow, buyIn, r.cfg.MinBuyIn)
		}
		if !s.IsEmpty() {
			return domain.ErrSeatOccupied
		}
		if err := r.seats.Check(seat, playerID); err != nil {
			return err
		}
		if t.SeatOf(playerID) != 0 {
			return domain.ErrAlreadySeated
		}

		buyIn = r.cfg.clampBuyIn(buyIn)
		ps := domain.NewPlayerState(p, buyIn, r.cfg.Timing.TimeBank)
		if err := t.SeatPlayer(seat, ps); err != nil {
			return err
		}
		delete(r.spectators, playerID)
		r.seats.Consume(seat)
		r.seats.Cancel(playerID)
		r.emit(events.PlayerSeated{Meta: r.meta(), PlayerID: playerID, PlayerName: p.Name, SeatNumber: seat, Chips: buyIn})
		return nil
	})
}

// StandUp vacates a player's seat. The player keeps watching when
// spectators are allowed and leaves the room otherwise.
func (r *Room) StandUp(playerID string) error {
	return r.do(func() error {
		if err := r.standUpLocked(playerID); err != nil {
			return err
		}
		r.seats.Cancel(playerID)
		if r.cfg.AllowSpectators {
			r.spectators[playerID] = true
			p := r.members[playerID]
			r.emit(events.SpectatorJoined{Meta: r.meta(), PlayerID: playerID, PlayerName: p.Name})
			return nil
		}
		delete(r.members, playerID)
		r.emit(events.PlayerLeftRoom{Meta: r.meta(), PlayerID: playerID})
		return nil
	})
}

func (r *Room) standUpLocked(playerID string) error {
	s := r.state()
	if s.Table.SeatOf(playerID) == 0 {
		return domain.ErrPlayerNotSeated
	}
	if err := r.engine.LeaveHand(playerID); err != nil && !errors.Is(err, game.ErrPlayerNotInHand) {
		return err
	}
	ps, seat, err := s.Table.StandUp(playerID)
	if err != nil {
		return err
	}
	r.emit(events.PlayerStoodUp{Meta: r.meta(), PlayerID: playerID, SeatNumber: seat, Chips: ps.Chips})
	return nil
}

// SitOut keeps a seated player out of the next hands.
func (r *Room) SitOut(playerID string) error {
	return r.setSittingOut(playerID, true)
}

// SitIn deals a sitting-out player back in from the next hand.
func (r *Room) SitIn(playerID string) error {
	return r.setSittingOut(playerID, false)
}

func (r *Room) setSittingOut(playerID string, out bool) error {
	return r.do(func() error {
		ps := r.state().Table.FindPlayer(playerID)
		if ps == nil {
			return domain.ErrPlayerNotSeated
		}
		if ps.SittingOut == out {
			return nil
		}
		ps.SetSittingOut(out)
		if out {
			r.emit(events.PlayerSatOut{Meta: r.meta(), PlayerID: playerID})
		} else {
			r.emit(events.PlayerSatIn{Meta: r.meta(), PlayerID: playerID})
		}
		return nil
	})
}

// StartGame switches the room to dealing and starts a hand when none is
// being played. Later hands follow on their own.
func (r *Room) StartGame(playerID string) error {
	return r.do(func() error {
		if !r.isMember(playerID) {
			return ErrNotInRoom
		}
		if !r.started {
			r.started = true
			r.dirty = true
		}
		switch r.state().Phase {
		case game.PhaseIdle, game.PhaseHandComplete:
			return r.engine.StartHand()
		}
		return nil
	})
}

// PerformAction applies a betting decision.
func (r *Room) PerformAction(playerID string, a game.Action) error {
	return r.do(func() error {
		return r.engine.ApplyAction(playerID, a)
	})
}

// Chat relays a message to the room. Long messages are cut at
// MaxChatLength bytes.
func (r *Room) Chat(playerID, message string) error {
	return r.do(func() error {
		if !r.isMember(playerID) {
			return ErrNotInRoom
		}
		message = strings.TrimSpace(message)
		if message == "" {
			return ErrEmptyMessage
		}
		if len(message) > MaxChatLength {
			cut := MaxChatLength
			for cut > 0 && !utf8.RuneStart(message[cut]) {
				cut--
			}
			message = message[:cut]
		}
		name := r.members[playerID].Name
		if ps := r.state().Table.FindPlayer(playerID); ps != nil {
			name = ps.Player.Name
		}
		r.emit(events.ChatMessage{Meta: r.meta(), PlayerID: playerID, PlayerName: name, Message: message})
		return nil
	})
}

// AbortHand voids the current hand and refunds everyone's chips.
func (r *Room) AbortHand(reason string) error {
	return r.do(func() error {
		return r.engine.AbortHand(reason)
	})
}

// Connected marks a seated player as back at the table.
func (r *Room) Connected(playerID string) error {
	return r.do(func() error {
		ps := r.state().Table.FindPlayer(playerID)
		if ps == nil {
			return domain.ErrPlayerNotSeated
		}
		r.connectedLocked(ps)
		return nil
	})
}

func (r *Room) connectedLocked(ps *domain.PlayerState) {
	if ps.Disconnected {
		ps.SetDisconnected(false)
		r.dirty = true
	}
}

// Disconnected records that a player's connection dropped. A seated player
// keeps the seat, and any hand in play carries on; other members leave.
func (r *Room) Disconnected(playerID string) error {
	return r.do(func() error {
		if ps := r.state().Table.FindPlayer(playerID); ps != nil {
			if !ps.Disconnected {
				ps.SetDisconnected(true)
				r.dirty = true
			}
			return nil
		}
		if _, ok := r.members[playerID]; !ok {
			return nil
		}
		delete(r.members, playerID)
		if r.spectators[playerID] {
			delete(r.spectators, playerID)
			r.emit(events.SpectatorLeft{Meta: r.meta(), PlayerID: playerID})
			return nil
		}
		r.emit(events.PlayerLeftRoom{Meta: r.meta(), PlayerID: playerID})
		return nil
	})
}

// CanObserve reports whether a member receives the game feed.
func (r *Room) CanObserve(playerID string) bool {
	return r.Frame().CanObserve(playerID)
}

// View returns the game state as viewerID may see it.
func (r *Room) View(viewerID string) (StateView, error) {
	return r.Frame().View(viewerID)
}

// PendingAction returns the request for whoever must act now.
func (r *Room) PendingAction() (game.ActionRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return game.PendingRequest(r.state())
}

// Info describes the room and its seats.
func (r *Room) Info() Info {
	return r.Frame().Info()
}

// Members lists the ids of everyone in the room, sorted.
func (r *Room) Members() []string {
	return r.Frame().Members()
}

// Snapshot captures the room for storage.
func (r *Room) Snapshot() Snapshot {
	return r.Frame().Snapshot()
}

// Dump renders the full state, deck included, for debug logs.
func (r *Room) Dump() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state().Dump()
}

// Restore replaces the room's state with a stored snapshot. Timers restart
// from the restored state, reservations are dropped and every seated player
// is disconnected until they join again.
func (r *Room) Restore(s Snapshot) error {
	if s.ID != r.cfg.ID {
		return fmt.Errorf("room: snapshot for %q restored into %q", s.ID, r.cfg.ID)
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	r.stopTimers()
	prev := r.cfg
	r.cfg = s.Config
	state := s.GameState.Clone()
	if state == nil {
		state = game.NewGameState(s.Config.Rules(), s.MaxPlayers)
	}
	if err := r.setState(state); err != nil {
		r.cfg = prev
		r.armTimers()
		r.mu.Unlock()
		return err
	}
	r.started = s.Started
	r.pending = nil
	r.dirty = false
	r.resetMembers()
	r.armTimers()

	f := r.frameLocked()

	r.pubMu.Lock()
	r.mu.Unlock()
	defer r.pubMu.Unlock()
	r.notify(f, nil, ChangeRestore)
	return nil
}

// Close stops the room. A hand in play is aborted and refunded first.
func (r *Room) Close(reason string) {
	_ = r.do(func() error {
		if r.state().Phase.InHand() {
			if err := r.engine.AbortHand(reason); err != nil {
				return err
			}
		}
		return r.engine.End()
	})
	r.mu.Lock()
	r.closed = true
	r.stopTimers()
	r.mu.Unlock()
}
