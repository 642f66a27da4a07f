// Package protocol defines the JSON messages exchanged over a room socket.
// Every message is an envelope {"type": ..., "payload": ...}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/game"
	"github.com/lazharichir/pokerroom/room"
)

var ErrBadMessage = errors.New("protocol: bad message")

type ClientMessageType string

const (
	JoinRoom      ClientMessageType = "JOIN_ROOM"
	LeaveRoom     ClientMessageType = "LEAVE_ROOM"
	TakeSeat      ClientMessageType = "TAKE_SEAT"
	LeaveSeat     ClientMessageType = "LEAVE_SEAT"
	ReserveSeat   ClientMessageType = "RESERVE_SEAT"
	PerformAction ClientMessageType = "PERFORM_ACTION"
	SendChat      ClientMessageType = "SEND_CHAT"
	StartGame     ClientMessageType = "START_GAME"
	SitOut        ClientMessageType = "SIT_OUT"
	SitIn         ClientMessageType = "SIT_IN"
)

// ClientMessage is a decoded envelope whose payload is read later with
// Decode, once the type is known.
type ClientMessage struct {
	Type    ClientMessageType `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

type JoinRoomPayload struct {
	PlayerName string `json:"playerName"`
}

type TakeSeatPayload struct {
	SeatNumber int   `json:"seatNumber"`
	BuyIn      int64 `json:"buyIn"`
}

type ReserveSeatPayload struct {
	SeatNumber int `json:"seatNumber"`
}

type PerformActionPayload struct {
	Action game.Action `json:"action"`
}

type SendChatPayload struct {
	Message string `json:"message"`
}

// ParseClientMessage reads an envelope and checks its type.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	switch msg.Type {
	case JoinRoom, LeaveRoom, TakeSeat, LeaveSeat, ReserveSeat, PerformAction, SendChat, StartGame, SitOut, SitIn:
		return msg, nil
	}
	return ClientMessage{}, fmt.Errorf("%w: unknown type %q", ErrBadMessage, msg.Type)
}

// Decode reads the payload into v. A missing payload leaves v untouched.
func (m ClientMessage) Decode(v any) error {
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrBadMessage, m.Type, err)
	}
	return nil
}

// NewClientMessage builds an envelope, for clients and tests.
func NewClientMessage(t ClientMessageType, payload any) ([]byte, error) {
	msg := struct {
		Type    ClientMessageType `json:"type"`
		Payload any               `json:"payload,omitempty"`
	}{t, payload}
	return json.Marshal(msg)
}

type ServerMessageType string

const (
	Welcome            ServerMessageType = "WELCOME"
	RoomJoined         ServerMessageType = "ROOM_JOINED"
	GameStateUpdate    ServerMessageType = "GAME_STATE_UPDATE"
	GameEventOccurred  ServerMessageType = "GAME_EVENT_OCCURRED"
	ActionRequired     ServerMessageType = "ACTION_REQUIRED"
	Error              ServerMessageType = "ERROR"
	PlayerConnected    ServerMessageType = "PLAYER_CONNECTED"
	PlayerDisconnected ServerMessageType = "PLAYER_DISCONNECTED"
)

// ServerMessage is an outbound envelope. Payload is encoded when the
// message is written to a socket.
type ServerMessage struct {
	Type    ServerMessageType `json:"type"`
	Payload any               `json:"payload"`
}

// Envelope is a ServerMessage as read back by a client.
type Envelope struct {
	Type    ServerMessageType `json:"type"`
	Payload json.RawMessage   `json:"payload"`
}

type WelcomePayload struct {
	PlayerID string `json:"playerId"`
}

type RoomJoinedPayload struct {
	RoomInfo room.Info `json:"roomInfo"`
}

type GameStatePayload struct {
	State room.StateView `json:"state"`
}

// EventEnvelope wraps a domain event with its name for client consumption
type EventEnvelope struct {
	Name  string       `json:"name"`
	Event events.Event `json:"event"`
}

type ActionRequiredPayload struct {
	Request game.ActionRequest `json:"request"`
	Hint    *HandHint          `json:"hint,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PlayerConnectedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type PlayerDisconnectedPayload struct {
	PlayerID string `json:"playerId"`
}

func NewWelcome(playerID string) ServerMessage {
	return ServerMessage{Type: Welcome, Payload: WelcomePayload{PlayerID: playerID}}
}

func NewRoomJoined(info room.Info) ServerMessage {
	return ServerMessage{Type: RoomJoined, Payload: RoomJoinedPayload{RoomInfo: info}}
}

func NewGameStateUpdate(v room.StateView) ServerMessage {
	return ServerMessage{Type: GameStateUpdate, Payload: GameStatePayload{State: v}}
}

func NewGameEvent(ev events.Event) ServerMessage {
	return ServerMessage{Type: GameEventOccurred, Payload: EventEnvelope{Name: ev.Name(), Event: ev}}
}

func NewActionRequired(req game.ActionRequest, hint *HandHint) ServerMessage {
	return ServerMessage{Type: ActionRequired, Payload: ActionRequiredPayload{Request: req, Hint: hint}}
}

func NewError(code, message string) ServerMessage {
	return ServerMessage{Type: Error, Payload: ErrorPayload{Code: code, Message: message}}
}

func NewPlayerConnected(playerID, name string) ServerMessage {
	return ServerMessage{Type: PlayerConnected, Payload: PlayerConnectedPayload{PlayerID: playerID, Name: name}}
}

func NewPlayerDisconnected(playerID string) ServerMessage {
	return ServerMessage{Type: PlayerDisconnected, Payload: PlayerDisconnectedPayload{PlayerID: playerID}}
}
