package game

import (
	"sort"

	"github.com/lazharichir/pokerroom/cards"
	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/lazharichir/pokerroom/pot"
	"go.uber.org/zap"
)

func plainCards(p *domain.PlayerState) []cards.Card {
	return cards.Plain(p.HoleCards)
}

// rakePots withholds the house fee. Nothing is taken from a hand that ended
// before the flop.
func (e *Engine) rakePots(pots []pot.Pot) []int64 {
	if len(e.State.CommunityCards) < 3 {
		return make([]int64, len(pots))
	}
	fees, total := pot.RakePots(e.Rake, pots)
	e.State.Rake = total
	return fees
}

// settleUncontested gives everything to the last player standing. Their
// cards stay hidden.
func (e *Engine) settleUncontested() {
	s := e.State
	contenders := s.Contenders()
	pots := s.Pots.Pots
	fees := e.rakePots(pots)

	var winners []events.Winner
	if len(contenders) == 1 {
		w := contenders[0]
		for i, p := range pots {
			amount := p.Amount - fees[i]
			if amount <= 0 {
				continue
			}
			w.Chips += amount
			winners = append(winners, events.Winner{PlayerID: w.ID(), PotIndex: i, Amount: amount})
		}
	} else {
		e.Logger.Error("hand ended with no contenders",
			zap.String("room_id", e.RoomID),
			zap.Int("hand", s.HandNumber),
			zap.Int64("pot", s.Pots.Total()),
		)
	}
	e.finish(winners)
}

// showdown reveals every contender's cards and pays each pot to its best
// eligible hands.
func (e *Engine) showdown() {
	s := e.State
	e.setPhase(PhaseShowdown)

	best := map[string][]hands.EvaluatedHand{}
	for _, p := range s.Contenders() {
		for i := range p.HoleCards {
			p.HoleCards[i].Reveal()
		}
		hole := plainCards(p)
		found, err := e.Evaluator.FindBestHand(hole, s.CommunityCards)
		if err != nil {
			e.Logger.Error("evaluate hand",
				zap.String("room_id", e.RoomID),
				zap.String("player_id", p.ID()),
				zap.Error(err),
			)
			continue
		}
		best[p.ID()] = found
		e.emit(events.HandRevealed{Meta: e.meta(), PlayerID: p.ID(), Cards: hole, Hands: found})
	}

	pots := s.Pots.Pots
	fees := e.rakePots(pots)
	var winners []events.Winner
	for i, p := range pots {
		net := p.Amount - fees[i]
		if net <= 0 {
			continue
		}
		high := map[string]hands.EvaluatedHand{}
		low := map[string]hands.EvaluatedHand{}
		for _, id := range p.Eligible {
			found, ok := best[id]
			if !ok {
				continue
			}
			high[id] = found[0]
			if len(found) > 1 && found[1].Low {
				low[id] = found[1]
			}
		}
		if len(high) == 0 {
			e.Logger.Error("pot has no eligible hands",
				zap.String("room_id", e.RoomID),
				zap.Int("pot", i),
				zap.Int64("amount", net),
			)
			continue
		}
		if len(low) > 0 {
			lowHalf := net / 2
			winners = append(winners, e.award(i, net-lowHalf, high, false)...)
			winners = append(winners, e.award(i, lowHalf, low, true)...)
			continue
		}
		winners = append(winners, e.award(i, net, high, false)...)
	}
	e.finish(winners)
}

// award splits amount between the best hands. Odd chips go one at a time
// clockwise starting left of the button.
func (e *Engine) award(potIndex int, amount int64, contenders map[string]hands.EvaluatedHand, low bool) []events.Winner {
	ranked, err := hands.RankPlayers(contenders)
	if err != nil || amount <= 0 {
		return nil
	}
	var ids []string
	for _, r := range ranked {
		if r.IsWinner {
			ids = append(ids, r.PlayerID)
		}
	}
	e.orderFromButton(ids)

	share := amount / int64(len(ids))
	odd := amount % int64(len(ids))
	out := make([]events.Winner, 0, len(ids))
	for i, id := range ids {
		won := share
		if int64(i) < odd {
			won++
		}
		e.State.Table.FindPlayer(id).Chips += won
		out = append(out, events.Winner{
			PlayerID:    id,
			PotIndex:    potIndex,
			Amount:      won,
			Description: hands.Describe(contenders[id]),
			Low:         low,
		})
	}
	return out
}

func (e *Engine) orderFromButton(ids []string) {
	t := e.State.Table
	n := t.MaxSeats()
	dist := func(id string) int {
		return (t.SeatOf(id) - e.State.DealerSeat - 1 + n) % n
	}
	sort.Slice(ids, func(i, j int) bool { return dist(ids[i]) < dist(ids[j]) })
}

func (e *Engine) finish(winners []events.Winner) {
	s := e.State
	s.Winners = winners
	s.Pots.Clear()
	s.ActorSeat = 0
	s.HighBet = 0
	e.setPhase(PhaseShowdown)
	e.emit(events.HandCompleted{Meta: e.meta(), HandNumber: s.HandNumber, Winners: winners, Rake: s.Rake})
}
