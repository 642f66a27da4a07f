// Package handlers routes client messages to room operations and reports
// their failures back to the client.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/game"
	"github.com/lazharichir/pokerroom/room"
	"github.com/lazharichir/pokerroom/server/connection"
	"github.com/lazharichir/pokerroom/server/protocol"
	"go.uber.org/zap"
)

// Rooms finds the room a session belongs to
type Rooms interface {
	GetRoom(id string) (*room.Room, error)
}

// Router routes incoming messages to the appropriate handler
type Router struct {
	rooms  Rooms
	conns  *connection.Manager
	logger *zap.Logger
}

// NewRouter creates a new message router
func NewRouter(rooms Rooms, conns *connection.Manager, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{rooms: rooms, conns: conns, logger: logger}
}

// HandleRaw parses a frame and handles it.
func (r *Router) HandleRaw(ctx context.Context, s connection.Session, data []byte) error {
	msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		r.reject(s, "", err)
		return err
	}
	return r.Handle(ctx, s, msg)
}

// Handle applies one client message. A failure is also sent to the client
// as an Error message.
func (r *Router) Handle(ctx context.Context, s connection.Session, msg protocol.ClientMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.dispatch(s, msg)
	if err != nil {
		r.reject(s, msg.Type, err)
	}
	return err
}

func (r *Router) reject(s connection.Session, t protocol.ClientMessageType, err error) {
	code := Code(err)
	if code == CodeInternal {
		r.logger.Error("handle message",
			zap.String("room_id", s.RoomID()),
			zap.String("player_id", s.PlayerID()),
			zap.String("type", string(t)),
			zap.Error(err),
		)
	}
	_ = s.Send(protocol.NewError(code, err.Error()))
}

func (r *Router) dispatch(s connection.Session, msg protocol.ClientMessage) error {
	rm, err := r.rooms.GetRoom(s.RoomID())
	if err != nil {
		return err
	}
	if msg.Type == protocol.JoinRoom {
		var p protocol.JoinRoomPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return r.join(rm, s, p)
	}
	// a session replaced by a reconnect may no longer act for its player
	if !r.conns.Current(s) {
		return fmt.Errorf("%w: join the room first", room.ErrNotInRoom)
	}

	pid := s.PlayerID()
	switch msg.Type {
	case protocol.LeaveRoom:
		if err := rm.Leave(pid); err != nil {
			return err
		}
		r.conns.RemoveConnection(s)
		return nil

	case protocol.TakeSeat:
		var p protocol.TakeSeatPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return rm.TakeSeat(pid, p.SeatNumber, p.BuyIn)

	case protocol.LeaveSeat:
		return rm.StandUp(pid)

	case protocol.ReserveSeat:
		var p protocol.ReserveSeatPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		_, err := rm.ReserveSeat(pid, p.SeatNumber)
		return err

	case protocol.PerformAction:
		var p protocol.PerformActionPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return rm.PerformAction(pid, p.Action)

	case protocol.SendChat:
		var p protocol.SendChatPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return rm.Chat(pid, p.Message)

	case protocol.StartGame:
		return rm.StartGame(pid)

	case protocol.SitOut:
		return rm.SitOut(pid)

	case protocol.SitIn:
		return rm.SitIn(pid)
	}
	return fmt.Errorf("%w: unknown type %q", protocol.ErrBadMessage, msg.Type)
}

// join admits the session's player and brings the session up to date.
func (r *Router) join(rm *room.Room, s connection.Session, p protocol.JoinRoomPayload) error {
	pid := s.PlayerID()
	name := strings.TrimSpace(p.PlayerName)
	if name == "" {
		name = pid
	}
	if err := rm.Join(domain.Player{ID: pid, Name: name}); err != nil {
		return err
	}
	// no room change reaches the session before its resync
	var prev connection.Session
	rm.Hold(func(f *room.Frame) {
		prev = r.conns.AddConnection(s)
		Resync(f, s)
	})
	if prev != nil && prev.ID() != s.ID() {
		r.logger.Info("session replaced",
			zap.String("room_id", rm.ID()),
			zap.String("player_id", pid),
			zap.String("previous", prev.ID()),
		)
	}
	r.conns.BroadcastExcept(rm.ID(), pid, protocol.NewPlayerConnected(pid, name))
	return nil
}

// Resync sends a session everything it needs after (re)joining: the room
// info, its view of the game and, when it is the player's turn, the
// pending action request.
func Resync(f *room.Frame, s connection.Session) {
	_ = s.Send(protocol.NewRoomJoined(f.Info()))
	view, err := f.View(s.PlayerID())
	if err != nil {
		return
	}
	_ = s.Send(protocol.NewGameStateUpdate(view))
	if req, ok := f.PendingAction(); ok && req.PlayerID == s.PlayerID() {
		_ = s.Send(protocol.NewActionRequired(req, protocol.NewHandHint(view, f.Config().Variant, nil)))
	}
}

// Disconnect handles the end of a session. A session that was already
// replaced leaves the room untouched.
func (r *Router) Disconnect(s connection.Session) {
	if !r.conns.RemoveConnection(s) {
		return
	}
	rm, err := r.rooms.GetRoom(s.RoomID())
	if err != nil {
		return
	}
	if err := rm.Disconnected(s.PlayerID()); err != nil && !errors.Is(err, room.ErrRoomClosed) {
		r.logger.Warn("disconnect", zap.String("room_id", s.RoomID()), zap.String("player_id", s.PlayerID()), zap.Error(err))
	}
	r.conns.BroadcastExcept(s.RoomID(), s.PlayerID(), protocol.NewPlayerDisconnected(s.PlayerID()))
}

// Error codes sent to clients
const (
	CodeNotYourTurn        = "NOT_YOUR_TURN"
	CodeInvalidSeat        = "INVALID_SEAT"
	CodeSeatOccupied       = "SEAT_OCCUPIED"
	CodeSeatReserved       = "SEAT_RESERVED"
	CodeBuyInTooLow        = "BUY_IN_TOO_LOW"
	CodeAlreadySeated      = "ALREADY_SEATED"
	CodeNotSeated          = "NOT_SEATED"
	CodeInsufficientChips  = "INSUFFICIENT_CHIPS"
	CodeIllegalAction      = "ILLEGAL_ACTION"
	CodeNotEnoughPlayers   = "NOT_ENOUGH_PLAYERS"
	CodeNotInRoom          = "NOT_IN_ROOM"
	CodeSpectatorsDisabled = "SPECTATORS_NOT_ALLOWED"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeRoomClosed         = "ROOM_CLOSED"
	CodeRoomReloaded       = "ROOM_RELOADED"
	CodeBadMessage         = "BAD_MESSAGE"
	CodeInternal           = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{game.ErrNotYourTurn, CodeNotYourTurn},
	{domain.ErrInvalidSeat, CodeInvalidSeat},
	{domain.ErrSeatOccupied, CodeSeatOccupied},
	{room.ErrSeatReserved, CodeSeatReserved},
	{room.ErrBuyInTooLow, CodeBuyInTooLow},
	{domain.ErrAlreadySeated, CodeAlreadySeated},
	{domain.ErrPlayerNotSeated, CodeNotSeated},
	{game.ErrInsufficientChips, CodeInsufficientChips},
	{game.ErrIllegalAction, CodeIllegalAction},
	{game.ErrNotBettingPhase, CodeIllegalAction},
	{game.ErrPlayerNotInHand, CodeIllegalAction},
	{game.ErrHandInProgress, CodeIllegalAction},
	{game.ErrNotEnoughPlayers, CodeNotEnoughPlayers},
	{room.ErrNotInRoom, CodeNotInRoom},
	{room.ErrSpectatorsNotAllowed, CodeSpectatorsDisabled},
	{room.ErrRoomNotFound, CodeRoomNotFound},
	{room.ErrRoomClosed, CodeRoomClosed},
	{room.ErrEmptyMessage, CodeBadMessage},
	{protocol.ErrBadMessage, CodeBadMessage},
}

// Code maps an operation error to its client error code.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
