package room

import (
	"errors"
	"time"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/game"
	"go.uber.org/zap"
)

// armTimers brings the turn clock and the hand lifecycle timers in line with
// the current state. It runs under mu at the end of every mutation.
func (r *Room) armTimers() {
	if r.closed {
		return
	}
	s := r.state()

	req, ok := game.PendingRequest(s)
	key := turnKey{hand: req.HandNumber, seq: req.Sequence}
	switch {
	case !ok || r.cfg.Timing.ActionTimeout <= 0:
		r.stopTurnTimer()
	case key != r.turn:
		r.stopTurnTimer()
		r.turn = key
		r.extended = false
		r.turnTimer = r.sched.AfterFunc(r.cfg.Timing.ActionTimeout, func() { r.onTurnTimeout(key) })
	}

	if s.Phase == game.PhaseShowdown && r.showdownFor != s.HandNumber {
		hand := s.HandNumber
		r.showdownFor = hand
		r.showdownTimer = r.sched.AfterFunc(r.cfg.Timing.ShowdownDelay, func() { r.completeHand(hand) })
	}

	dealable := s.Phase == game.PhaseIdle || s.Phase == game.PhaseHandComplete
	if r.started && dealable && r.nextFor != s.HandNumber && r.eligiblePlayers() >= 2 {
		hand := s.HandNumber
		r.nextFor = hand
		r.nextTimer = r.sched.AfterFunc(r.cfg.Timing.NextHandDelay, func() { r.startNextHand(hand) })
	}
}

func (r *Room) eligiblePlayers() int {
	n := 0
	for _, p := range r.state().Table.Players() {
		if p.Status == domain.StatusWaiting && p.Chips > 0 {
			n++
		}
	}
	return n
}

func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.turn = turnKey{}
	r.extended = false
}

func (r *Room) stopTimers() {
	r.stopTurnTimer()
	for _, t := range []Timer{r.showdownTimer, r.nextTimer} {
		if t != nil {
			t.Stop()
		}
	}
	r.showdownTimer, r.nextTimer = nil, nil
	r.showdownFor, r.nextFor = -1, -1
}

// onTurnTimeout runs when the actor's clock expires. The first expiry
// spends the player's time bank; the next one plays the default action.
func (r *Room) onTurnTimeout(key turnKey) {
	_ = r.do(func() error {
		if r.turn != key {
			return nil
		}
		actor := r.state().Actor()
		if actor == nil {
			return nil
		}
		if !r.extended && actor.TimeBank > 0 {
			extra := time.Duration(actor.TimeBank) * time.Second
			r.extended = true
			actor.TimeBank = 0
			r.dirty = true
			r.turnTimer = r.sched.AfterFunc(extra, func() { r.onTurnTimeout(key) })
			r.logger.Info("time bank started",
				zap.String("player_id", actor.ID()),
				zap.Int("hand", key.hand),
				zap.Duration("extra", extra),
			)
			return nil
		}
		r.logger.Info("turn timed out",
			zap.String("player_id", actor.ID()),
			zap.Int("hand", key.hand),
		)
		if err := r.engine.DefaultAction(actor.ID()); err != nil {
			r.logger.Error("default action", zap.String("player_id", actor.ID()), zap.Error(err))
		}
		return nil
	})
}

func (r *Room) completeHand(hand int) {
	_ = r.do(func() error {
		s := r.state()
		if s.HandNumber != hand || s.Phase != game.PhaseShowdown {
			return nil
		}
		return r.engine.CompleteHand()
	})
}

func (r *Room) startNextHand(hand int) {
	err := r.do(func() error {
		s := r.state()
		if !r.started || s.HandNumber != hand {
			return nil
		}
		if s.Phase != game.PhaseIdle && s.Phase != game.PhaseHandComplete {
			return nil
		}
		err := r.engine.StartHand()
		if errors.Is(err, game.ErrNotEnoughPlayers) {
			r.nextFor = -1
			return nil
		}
		return err
	})
	if err != nil && !errors.Is(err, ErrRoomClosed) {
		r.logger.Error("start next hand", zap.Int("hand", hand+1), zap.Error(err))
	}
}
