package room

import (
	"github.com/lazharichir/pokerroom/cards"
	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/game"
	"github.com/lazharichir/pokerroom/pot"
)

// PlayerView is a seated player as one viewer is allowed to see them.
type PlayerView struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Chips        int64               `json:"chips"`
	Status       domain.PlayerStatus `json:"status"`
	CurrentBet   int64               `json:"currentBet"`
	TotalBet     int64               `json:"totalBet"`
	IsDealer     bool                `json:"isDealer"`
	IsSmallBlind bool                `json:"isSmallBlind"`
	IsBigBlind   bool                `json:"isBigBlind"`
	HasActed     bool                `json:"hasActed"`
	TimeBank     int                 `json:"timeBank"`
	HoleCards    []cards.DealtCard   `json:"holeCards"`
}

// SeatView is one seat of a StateView
type SeatView struct {
	SeatNumber int         `json:"seatNumber"`
	Status     SeatStatus  `json:"status"`
	ReservedBy string      `json:"reservedBy,omitempty"`
	Player     *PlayerView `json:"player,omitempty"`
}

// StateView is the game state filtered for a single viewer. It never carries
// the deck.
type StateView struct {
	RoomID         string          `json:"roomId"`
	ViewerID       string          `json:"viewerId"`
	Phase          game.Phase      `json:"phase"`
	HandNumber     int             `json:"handNumber"`
	DealerSeat     int             `json:"dealerSeat"`
	SmallBlindSeat int             `json:"smallBlindSeat"`
	BigBlindSeat   int             `json:"bigBlindSeat"`
	ActorSeat      int             `json:"actorSeat"`
	HighBet        int64           `json:"highBet"`
	MinRaise       int64           `json:"minRaise"`
	PotTotal       int64           `json:"potTotal"`
	Pots           []pot.Pot       `json:"pots"`
	CommunityCards []cards.Card    `json:"communityCards"`
	Seats          []SeatView      `json:"seats"`
	Winners        []events.Winner `json:"winners,omitempty"`
	Rake           int64           `json:"rake,omitempty"`
}

// Seat returns the seat a player occupies in the view, or nil
func (v StateView) Seat(playerID string) *SeatView {
	for i := range v.Seats {
		if p := v.Seats[i].Player; p != nil && p.ID == playerID {
			return &v.Seats[i]
		}
	}
	return nil
}

// buildView filters state for viewerID: a viewer always sees their own hole
// cards and sees other players' cards only at showdown once they have been
// turned face up.
func buildView(roomID, viewerID string, s *game.GameState, seats []SeatInfo) StateView {
	v := StateView{
		RoomID:         roomID,
		ViewerID:       viewerID,
		Phase:          s.Phase,
		HandNumber:     s.HandNumber,
		DealerSeat:     s.DealerSeat,
		SmallBlindSeat: s.SmallBlindSeat,
		BigBlindSeat:   s.BigBlindSeat,
		ActorSeat:      s.ActorSeat,
		HighBet:        s.HighBet,
		MinRaise:       s.MinRaise,
		PotTotal:       s.PotTotal(),
		CommunityCards: append([]cards.Card{}, s.CommunityCards...),
		Rake:           s.Rake,
	}
	for _, p := range s.Pots.Pots {
		v.Pots = append(v.Pots, pot.Pot{Amount: p.Amount, Eligible: append([]string{}, p.Eligible...), Main: p.Main})
	}
	v.Winners = append(v.Winners, s.Winners...)

	for i, seat := range s.Table.Seats {
		sv := SeatView{SeatNumber: seat.Number, Status: SeatEmpty}
		if i < len(seats) {
			sv.Status = seats[i].Status
			if sv.Status == SeatReserved {
				sv.ReservedBy = seats[i].PlayerID
			}
		}
		if p := seat.Player; p != nil {
			sv.Status = SeatOccupied
			sv.Player = viewPlayer(p, viewerID, s.Phase)
		}
		v.Seats = append(v.Seats, sv)
	}
	return v
}

func viewPlayer(p *domain.PlayerState, viewerID string, phase game.Phase) *PlayerView {
	pv := &PlayerView{
		ID:           p.ID(),
		Name:         p.Player.Name,
		Chips:        p.Chips,
		Status:       p.Status,
		CurrentBet:   p.CurrentBet,
		TotalBet:     p.TotalBet,
		IsDealer:     p.IsDealer,
		IsSmallBlind: p.IsSmallBlind,
		IsBigBlind:   p.IsBigBlind,
		HasActed:     p.HasActed,
		TimeBank:     p.TimeBank,
		HoleCards:    make([]cards.DealtCard, len(p.HoleCards)),
	}
	own := p.ID() == viewerID
	for i, c := range p.HoleCards {
		if own || (phase == game.PhaseShowdown && c.Visibility == cards.Public) {
			pv.HoleCards[i] = c
		} else {
			pv.HoleCards[i] = c.Masked()
		}
	}
	return pv
}
