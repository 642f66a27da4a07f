package events

import (
	"github.com/lazharichir/pokerroom/cards"
	"github.com/lazharichir/pokerroom/hands"
)

// Hand lifecycle

type HandStarted struct {
	Meta
	HandNumber int      `json:"handNumber"`
	DealerSeat int      `json:"dealerSeat"`
	Players    []string `json:"players"`
}

func (HandStarted) Name() string { return "HAND_STARTED" }

// Winner is one award of a pot at the end of a hand.
type Winner struct {
	PlayerID    string `json:"playerId"`
	PotIndex    int    `json:"potIndex"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	Low         bool   `json:"low,omitempty"`
}

type HandCompleted struct {
	Meta
	HandNumber int      `json:"handNumber"`
	Winners    []Winner `json:"winners"`
	Rake       int64    `json:"rake"`
}

func (HandCompleted) Name() string { return "HAND_COMPLETE" }

type HandAborted struct {
	Meta
	HandNumber int              `json:"handNumber"`
	Reason     string           `json:"reason"`
	Refunds    map[string]int64 `json:"refunds"`

	// Forfeited holds what players who left during the hand had put in.
	// Those chips are not returned.
	Forfeited map[string]int64 `json:"forfeited,omitempty"`
}

func (HandAborted) Name() string { return "HAND_ABORTED" }

type PhaseChanged struct {
	Meta
	HandNumber int    `json:"handNumber"`
	From       string `json:"from"`
	To         string `json:"to"`
}

func (PhaseChanged) Name() string { return "PHASE_CHANGED" }

// Betting

type BlindPosted struct {
	Meta
	PlayerID string `json:"playerId"`
	Kind     string `json:"kind"` // SMALL_BLIND, BIG_BLIND or ANTE
	Amount   int64  `json:"amount"`
}

func (BlindPosted) Name() string { return "BLIND_POSTED" }

type ActionTaken struct {
	Meta
	PlayerID  string `json:"playerId"`
	Action    string `json:"action"`
	Amount    int64  `json:"amount"`
	AllIn     bool   `json:"allIn,omitempty"`
	Automatic bool   `json:"automatic,omitempty"`
}

func (ActionTaken) Name() string { return "ACTION_TAKEN" }

type TurnChanged struct {
	Meta
	PlayerID   string `json:"playerId"`
	SeatNumber int    `json:"seatNumber"`
}

func (TurnChanged) Name() string { return "TURN_CHANGED" }

// Cards

// HoleCardsDealt is private to PlayerID; fan-out must not show Cards to
// anyone else.
type HoleCardsDealt struct {
	Meta
	PlayerID string       `json:"playerId"`
	Cards    []cards.Card `json:"cards"`
}

func (HoleCardsDealt) Name() string { return "HOLE_CARDS_DEALT" }

type CommunityCardsDealt struct {
	Meta
	Phase string       `json:"phase"`
	Cards []cards.Card `json:"cards"`
}

func (CommunityCardsDealt) Name() string { return "COMMUNITY_CARDS_DEALT" }

type HandRevealed struct {
	Meta
	PlayerID string                `json:"playerId"`
	Cards    []cards.Card          `json:"cards"`
	Hands    []hands.EvaluatedHand `json:"hands"`
}

func (HandRevealed) Name() string { return "HAND_REVEALED" }

// Room membership

type PlayerJoinedRoom struct {
	Meta
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

func (PlayerJoinedRoom) Name() string { return "PLAYER_JOINED_ROOM" }

type PlayerLeftRoom struct {
	Meta
	PlayerID string `json:"playerId"`
}

func (PlayerLeftRoom) Name() string { return "PLAYER_LEFT_ROOM" }

type PlayerSeated struct {
	Meta
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	SeatNumber int    `json:"seatNumber"`
	Chips      int64  `json:"chips"`
}

func (PlayerSeated) Name() string { return "PLAYER_SEATED" }

type PlayerStoodUp struct {
	Meta
	PlayerID   string `json:"playerId"`
	SeatNumber int    `json:"seatNumber"`
	Chips      int64  `json:"chips"`
}

func (PlayerStoodUp) Name() string { return "PLAYER_STOOD_UP" }

type SpectatorJoined struct {
	Meta
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

func (SpectatorJoined) Name() string { return "SPECTATOR_JOINED" }

type SpectatorLeft struct {
	Meta
	PlayerID string `json:"playerId"`
}

func (SpectatorLeft) Name() string { return "SPECTATOR_LEFT" }

type PlayerSatOut struct {
	Meta
	PlayerID string `json:"playerId"`
}

func (PlayerSatOut) Name() string { return "PLAYER_SAT_OUT" }

type PlayerSatIn struct {
	Meta
	PlayerID string `json:"playerId"`
}

func (PlayerSatIn) Name() string { return "PLAYER_SAT_IN" }

type ChatMessage struct {
	Meta
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

func (ChatMessage) Name() string { return "CHAT_MESSAGE" }
