// Package events fans room changes out to the connected sessions.
package events

import (
	"sync"

	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/room"
	"github.com/lazharichir/pokerroom/server/connection"
	"github.com/lazharichir/pokerroom/server/protocol"
	"go.uber.org/zap"
)

// prompt identifies an action request already sent, so a change that does
// not move the turn does not prompt the actor again.
type prompt struct {
	playerID string
	hand     int
	seq      int
	timeBank int
}

// Dispatcher handles routing room events to clients
type Dispatcher struct {
	conns  *connection.Manager
	logger *zap.Logger

	mutex    sync.Mutex
	attached map[string]func()
	prompted map[string]prompt
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(conns *connection.Manager, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		conns:    conns,
		logger:   logger,
		attached: make(map[string]func()),
		prompted: make(map[string]prompt),
	}
}

// Attach starts delivering the room's changes. Attaching a room twice
// replaces the earlier registration.
func (d *Dispatcher) Attach(r *room.Room) {
	remove := r.OnState(d.handleState)
	d.mutex.Lock()
	prev := d.attached[r.ID()]
	d.attached[r.ID()] = remove
	delete(d.prompted, r.ID())
	d.mutex.Unlock()
	if prev != nil {
		prev()
	}
	d.logger.Debug("dispatcher attached", zap.String("room_id", r.ID()))
}

// Detach stops delivering a room's changes.
func (d *Dispatcher) Detach(roomID string) {
	d.mutex.Lock()
	remove := d.attached[roomID]
	delete(d.attached, roomID)
	delete(d.prompted, roomID)
	d.mutex.Unlock()
	if remove != nil {
		remove()
	}
}

// Attached reports whether a room is being delivered.
func (d *Dispatcher) Attached(roomID string) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	_, ok := d.attached[roomID]
	return ok
}

func (d *Dispatcher) handleState(f *room.Frame, evs []events.Event, change room.Change) {
	if change == room.ChangeRestore {
		d.mutex.Lock()
		delete(d.prompted, f.ID())
		d.mutex.Unlock()
	}
	for _, ev := range evs {
		d.HandleEvent(f, ev)
	}
	d.sendState(f)
	d.sendPrompt(f)
}

// HandleEvent delivers one event to whoever may see it.
func (d *Dispatcher) HandleEvent(f *room.Frame, ev events.Event) {
	msg := protocol.NewGameEvent(ev)
	roomID := f.ID()

	switch e := ev.(type) {
	case events.HoleCardsDealt:
		// Only send to specific player
		d.conns.SendTo(roomID, e.PlayerID, msg)

	case events.PlayerJoinedRoom, events.PlayerLeftRoom,
		events.SpectatorJoined, events.SpectatorLeft,
		events.PlayerSeated, events.PlayerStoodUp,
		events.ChatMessage:
		d.conns.Broadcast(roomID, msg)

	default:
		d.conns.BroadcastTo(roomID, f.CanObserve, msg)
	}
}

func (d *Dispatcher) sendState(f *room.Frame) {
	for _, pid := range d.conns.Connections(f.ID()) {
		view, err := f.View(pid)
		if err != nil {
			continue
		}
		d.conns.SendTo(f.ID(), pid, protocol.NewGameStateUpdate(view))
	}
}

func (d *Dispatcher) sendPrompt(f *room.Frame) {
	req, ok := f.PendingAction()
	d.mutex.Lock()
	if !ok {
		delete(d.prompted, f.ID())
		d.mutex.Unlock()
		return
	}
	p := prompt{playerID: req.PlayerID, hand: req.HandNumber, seq: req.Sequence, timeBank: req.TimeBank}
	if d.prompted[f.ID()] == p {
		d.mutex.Unlock()
		return
	}
	d.prompted[f.ID()] = p
	d.mutex.Unlock()

	var hint *protocol.HandHint
	if view, err := f.View(req.PlayerID); err == nil {
		hint = protocol.NewHandHint(view, f.Config().Variant, nil)
	}
	if !d.conns.SendTo(f.ID(), req.PlayerID, protocol.NewActionRequired(req, hint)) {
		d.logger.Debug("actor not connected",
			zap.String("room_id", f.ID()),
			zap.String("player_id", req.PlayerID),
			zap.Int("hand", req.HandNumber),
		)
	}
}
