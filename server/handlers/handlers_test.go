package handlers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/game"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/lazharichir/pokerroom/room"
	"github.com/lazharichir/pokerroom/server/connection"
	"github.com/lazharichir/pokerroom/server/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id, player, room string

	mu   sync.Mutex
	sent []protocol.ServerMessage
}

func (s *fakeSession) ID() string       { return s.id }
func (s *fakeSession) PlayerID() string { return s.player }
func (s *fakeSession) RoomID() string   { return s.room }
func (s *fakeSession) Close() error     { return nil }

func (s *fakeSession) Send(msg protocol.ServerMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSession) take() []protocol.ServerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sent
	s.sent = nil
	return out
}

func types(msgs []protocol.ServerMessage) []protocol.ServerMessageType {
	out := make([]protocol.ServerMessageType, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

type single struct{ r *room.Room }

func (s single) GetRoom(id string) (*room.Room, error) {
	if id != s.r.ID() {
		return nil, fmt.Errorf("%w: %s", room.ErrRoomNotFound, id)
	}
	return s.r, nil
}

func setup(t *testing.T) (*Router, *room.Room, *connection.Manager) {
	t.Helper()
	r, err := room.New(room.Config{
		ID:              "hall",
		Name:            "Hall",
		MaxPlayers:      6,
		Variant:         hands.TexasHoldem,
		SmallBlind:      1,
		BigBlind:        2,
		MinBuyIn:        20,
		AllowSpectators: true,
		Timing:          room.Timing{ActionTimeout: time.Minute, ReservationDuration: time.Minute},
	}, room.Options{
		Scheduler: room.NewManualScheduler(),
		Dealer:    game.NewStandardDealer(rand.New(rand.NewSource(11))),
	})
	require.NoError(t, err)
	conns := connection.NewManager(nil)
	return NewRouter(single{r}, conns, nil), r, conns
}

func message(t *testing.T, typ protocol.ClientMessageType, payload any) protocol.ClientMessage {
	t.Helper()
	data, err := protocol.NewClientMessage(typ, payload)
	require.NoError(t, err)
	msg, err := protocol.ParseClientMessage(data)
	require.NoError(t, err)
	return msg
}

func TestJoinSequence(t *testing.T) {
	router, r, conns := setup(t)
	ctx := context.Background()

	alice := &fakeSession{id: "a1", player: "alice", room: "hall"}
	require.NoError(t, router.Handle(ctx, alice, message(t, protocol.JoinRoom, protocol.JoinRoomPayload{PlayerName: " Alice "})))
	assert.Equal(t, []protocol.ServerMessageType{protocol.RoomJoined, protocol.GameStateUpdate}, types(alice.take()))
	assert.Equal(t, []string{"alice"}, conns.Connections("hall"))
	assert.Equal(t, []string{"alice"}, r.Members())

	bob := &fakeSession{id: "b1", player: "bob", room: "hall"}
	require.NoError(t, router.Handle(ctx, bob, message(t, protocol.JoinRoom, nil)))
	bob.take()
	msgs := alice.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.PlayerConnected, msgs[0].Type)
	assert.Equal(t, protocol.PlayerConnectedPayload{PlayerID: "bob", Name: "bob"}, msgs[0].Payload)

	for i, s := range []*fakeSession{alice, bob} {
		require.NoError(t, router.Handle(ctx, s, message(t, protocol.TakeSeat, protocol.TakeSeatPayload{SeatNumber: i + 1, BuyIn: 100})))
	}
	require.NoError(t, router.Handle(ctx, alice, message(t, protocol.StartGame, nil)))

	req, ok := r.PendingAction()
	require.True(t, ok)
	actor := map[string]*fakeSession{"alice": alice, "bob": bob}[req.PlayerID]

	t.Run("rejoin resends state and prompt", func(t *testing.T) {
		again := &fakeSession{id: actor.id + "-2", player: actor.player, room: "hall"}
		require.NoError(t, router.Handle(ctx, again, message(t, protocol.JoinRoom, nil)))
		assert.Equal(t,
			[]protocol.ServerMessageType{protocol.RoomJoined, protocol.GameStateUpdate, protocol.ActionRequired},
			types(again.take()),
		)

		err := router.Handle(ctx, actor, message(t, protocol.PerformAction, protocol.PerformActionPayload{Action: game.Action{Kind: game.ActionFold}}))
		assert.ErrorIs(t, err, room.ErrNotInRoom, "the replaced session may not act")
		msgs := actor.take()
		require.NotEmpty(t, msgs)
		last := msgs[len(msgs)-1]
		assert.Equal(t, protocol.Error, last.Type)
		assert.Equal(t, CodeNotInRoom, last.Payload.(protocol.ErrorPayload).Code)

		router.Disconnect(actor)
		_, err = r.View(actor.player)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, conns.Connections("hall"), "stale disconnect keeps the new session")
	})
}

func TestHandleErrors(t *testing.T) {
	router, _, _ := setup(t)
	ctx := context.Background()
	s := &fakeSession{id: "c1", player: "carol", room: "hall"}
	require.NoError(t, router.Handle(ctx, s, message(t, protocol.JoinRoom, nil)))
	s.take()

	tests := []struct {
		name string
		msg  protocol.ClientMessage
		code string
	}{
		{"bad seat", message(t, protocol.TakeSeat, protocol.TakeSeatPayload{SeatNumber: 42, BuyIn: 100}), CodeInvalidSeat},
		{"missing seat", message(t, protocol.TakeSeat, protocol.TakeSeatPayload{BuyIn: 100}), CodeInvalidSeat},
		{"low buy-in", message(t, protocol.TakeSeat, protocol.TakeSeatPayload{SeatNumber: 1, BuyIn: 1}), CodeBuyInTooLow},
		{"not seated", message(t, protocol.LeaveSeat, nil), CodeNotSeated},
		{"no hand", message(t, protocol.PerformAction, protocol.PerformActionPayload{Action: game.Action{Kind: game.ActionCheck}}), CodeIllegalAction},
		{"empty chat", message(t, protocol.SendChat, protocol.SendChatPayload{Message: "  "}), CodeBadMessage},
		{"bad payload", protocol.ClientMessage{Type: protocol.TakeSeat, Payload: []byte(`"seat"`)}, CodeBadMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := router.Handle(ctx, s, tt.msg)
			require.Error(t, err)
			assert.Equal(t, tt.code, Code(err))
			msgs := s.take()
			require.Len(t, msgs, 1)
			assert.Equal(t, protocol.NewError(tt.code, err.Error()), msgs[0])
		})
	}

	t.Run("unparseable frame", func(t *testing.T) {
		err := router.HandleRaw(ctx, s, []byte(`{"type":"DANCE"}`))
		assert.ErrorIs(t, err, protocol.ErrBadMessage)
		assert.Equal(t, []protocol.ServerMessageType{protocol.Error}, types(s.take()))
	})

	t.Run("unknown room", func(t *testing.T) {
		lost := &fakeSession{id: "x", player: "x", room: "attic"}
		err := router.Handle(ctx, lost, message(t, protocol.JoinRoom, nil))
		assert.Equal(t, CodeRoomNotFound, Code(err))
	})

	t.Run("leave", func(t *testing.T) {
		require.NoError(t, router.Handle(ctx, s, message(t, protocol.LeaveRoom, nil)))
		err := router.Handle(ctx, s, message(t, protocol.SendChat, protocol.SendChatPayload{Message: "hi"}))
		assert.ErrorIs(t, err, room.ErrNotInRoom)
	})
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeNotYourTurn, Code(fmt.Errorf("wrapped: %w", game.ErrNotYourTurn)))
	assert.Equal(t, CodeSeatOccupied, Code(domain.ErrSeatOccupied))
	assert.Equal(t, CodeInternal, Code(errors.New("disk on fire")))
}
