package game

import (
	"errors"
	"fmt"

	"github.com/lazharichir/pokerroom/domain"
	"github.com/lazharichir/pokerroom/domain/events"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/lazharichir/pokerroom/pot"
	"go.uber.org/zap"
)

// Engine drives a GameState through the phases of a hand. It is not safe for
// concurrent use; the owning room serializes every call.
//
// Events produced by a call are buffered and handed out by TakeEvents, so the
// caller can publish them once its lock is released.
type Engine struct {
	RoomID    string
	State     *GameState
	Dealer    Dealer
	Evaluator hands.Evaluator
	Rake      pot.RakeCalculator
	Logger    *zap.Logger

	pending []events.Event
}

// NewEngine creates an engine over state. A nil dealer deals from a clock
// seeded shuffle and a nil rake takes nothing.
func NewEngine(roomID string, state *GameState, dealer Dealer, rake pot.RakeCalculator, logger *zap.Logger) (*Engine, error) {
	eval, err := hands.ForVariant(state.Rules.Variant)
	if err != nil {
		return nil, err
	}
	if dealer == nil {
		dealer = NewStandardDealer(nil)
	}
	if rake == nil {
		rake = pot.NoRake{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		RoomID:    roomID,
		State:     state,
		Dealer:    dealer,
		Evaluator: eval,
		Rake:      rake,
		Logger:    logger,
	}, nil
}

// TakeEvents returns and clears the buffered events.
func (e *Engine) TakeEvents() []events.Event {
	out := e.pending
	e.pending = nil
	return out
}

func (e *Engine) emit(ev events.Event) {
	e.pending = append(e.pending, ev)
}

func (e *Engine) meta() events.Meta {
	return events.NewMeta(e.RoomID)
}

func (e *Engine) setPhase(to Phase) {
	from := e.State.Phase
	if from == to {
		return
	}
	e.State.Phase = to
	e.emit(events.PhaseChanged{Meta: e.meta(), HandNumber: e.State.HandNumber, From: string(from), To: string(to)})
}

func eligibleForHand(p *domain.PlayerState) bool {
	return p.Status == domain.StatusWaiting && p.Chips > 0
}

// StartHand posts antes and blinds, deals hole cards and hands the turn to
// the first player to act.
func (e *Engine) StartHand() error {
	s := e.State
	if s.Phase != PhaseIdle && s.Phase != PhaseHandComplete {
		return ErrHandInProgress
	}

	var dealtIn []*domain.PlayerState
	for _, p := range s.Table.Players() {
		if eligibleForHand(p) {
			dealtIn = append(dealtIn, p)
		}
	}
	if len(dealtIn) < 2 {
		return ErrNotEnoughPlayers
	}

	s.HandNumber++
	s.CommunityCards = s.CommunityCards[:0]
	s.Pots = pot.NewManager()
	s.DeadBets = nil
	s.Winners = nil
	s.Rake = 0
	s.HighBet = 0
	s.MinRaise = s.Rules.BigBlind
	s.ActorSeat = 0
	e.setPhase(PhaseHandStart)

	if dealer := s.Table.PlayerAt(s.DealerSeat); dealer == nil || !eligibleForHand(dealer) {
		s.DealerSeat = s.Table.NextSeat(s.DealerSeat, eligibleForHand)
	}
	s.Table.PlayerAt(s.DealerSeat).IsDealer = true

	ids := make([]string, len(dealtIn))
	for i, p := range dealtIn {
		ids[i] = p.ID()
	}
	e.emit(events.HandStarted{Meta: e.meta(), HandNumber: s.HandNumber, DealerSeat: s.DealerSeat, Players: ids})

	e.Dealer.Shuffle(s)
	e.postAntes(dealtIn)
	e.postBlinds(len(dealtIn))

	e.setPhase(PhasePreFlop)
	if err := e.Dealer.DealHoleCards(s, e.Evaluator.HoleCards(), nil); err != nil {
		e.abort(err.Error())
		return err
	}
	for _, p := range dealtIn {
		if p.Chips == 0 {
			p.Status = domain.StatusAllIn
		}
		e.emit(events.HoleCardsDealt{Meta: e.meta(), PlayerID: p.ID(), Cards: plainCards(p)})
	}

	s.ActorSeat = s.BigBlindSeat
	return e.progress()
}

func (e *Engine) postAntes(dealtIn []*domain.PlayerState) {
	s := e.State
	if s.Rules.Ante <= 0 {
		return
	}
	antes := make(map[string]int64, len(dealtIn))
	for _, p := range dealtIn {
		amount := min(s.Rules.Ante, p.Chips)
		p.Chips -= amount
		p.TotalBet += amount
		antes[p.ID()] = amount
		e.emit(events.BlindPosted{Meta: e.meta(), PlayerID: p.ID(), Kind: "ANTE", Amount: amount})
	}
	s.Pots.PostAntes(antes)
}

func (e *Engine) postBlinds(players int) {
	s := e.State
	if players == 2 {
		s.SmallBlindSeat = s.DealerSeat
	} else {
		s.SmallBlindSeat = s.Table.NextSeat(s.DealerSeat, eligibleForHand)
	}
	s.BigBlindSeat = s.Table.NextSeat(s.SmallBlindSeat, eligibleForHand)

	sb := s.Table.PlayerAt(s.SmallBlindSeat)
	bb := s.Table.PlayerAt(s.BigBlindSeat)
	sb.IsSmallBlind = true
	bb.IsBigBlind = true
	e.emit(events.BlindPosted{Meta: e.meta(), PlayerID: sb.ID(), Kind: "SMALL_BLIND", Amount: e.commit(sb, s.Rules.SmallBlind)})
	e.emit(events.BlindPosted{Meta: e.meta(), PlayerID: bb.ID(), Kind: "BIG_BLIND", Amount: e.commit(bb, s.Rules.BigBlind)})
	s.HighBet = max(s.Rules.BigBlind, sb.CurrentBet, bb.CurrentBet)
	s.MinRaise = s.Rules.BigBlind
}

// commit moves up to amount chips from the player's stack into their bet and
// returns what was moved.
func (e *Engine) commit(p *domain.PlayerState, amount int64) int64 {
	amount = min(amount, p.Chips)
	if amount < 0 {
		amount = 0
	}
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	if p.Chips == 0 && p.Status == domain.StatusActive {
		p.Status = domain.StatusAllIn
	}
	return amount
}

// ApplyAction applies a betting decision from the current actor.
func (e *Engine) ApplyAction(playerID string, a Action) error {
	return e.apply(playerID, a, false)
}

// DefaultAction plays for a player whose time ran out: check when free,
// otherwise fold.
func (e *Engine) DefaultAction(playerID string) error {
	req, ok := PendingRequest(e.State)
	if !ok || req.PlayerID != playerID {
		return ErrNotYourTurn
	}
	a := Action{Kind: ActionFold}
	if req.ToCall == 0 {
		a = Action{Kind: ActionCheck}
	}
	return e.apply(playerID, a, true)
}

func (e *Engine) apply(playerID string, a Action, automatic bool) error {
	s := e.State
	if !s.Phase.IsBetting() {
		return ErrNotBettingPhase
	}
	p := s.Table.FindPlayer(playerID)
	if p == nil {
		return ErrPlayerNotInHand
	}
	actor := s.Actor()
	if actor == nil || actor.ID() != playerID {
		return fmt.Errorf("%w: waiting on seat %d", ErrNotYourTurn, s.ActorSeat)
	}
	if !p.CanAct() {
		return ErrPlayerNotInHand
	}

	toCall := s.HighBet - p.CurrentBet
	var moved int64
	switch a.Kind {
	case ActionFold:
		p.Status = domain.StatusFolded
		s.Pots.RemovePlayer(p.ID())
	case ActionCheck:
		if toCall != 0 {
			return fmt.Errorf("%w: cannot check facing %d", ErrIllegalAction, toCall)
		}
	case ActionCall:
		if toCall <= 0 {
			return fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
		moved = e.commit(p, toCall)
	case ActionBet:
		if s.HighBet != 0 {
			return fmt.Errorf("%w: there is already a bet, raise instead", ErrIllegalAction)
		}
		if a.Amount > p.Chips {
			return fmt.Errorf("%w: bet %d with %d behind", ErrInsufficientChips, a.Amount, p.Chips)
		}
		if a.Amount <= 0 || (a.Amount < s.Rules.BigBlind && a.Amount != p.Chips) {
			return fmt.Errorf("%w: minimum bet is %d", ErrIllegalAction, s.Rules.BigBlind)
		}
		moved = e.commit(p, a.Amount)
		s.HighBet = p.CurrentBet
		s.MinRaise = max(p.CurrentBet, s.Rules.BigBlind)
		e.reopen(p)
	case ActionRaise:
		if s.HighBet == 0 {
			return fmt.Errorf("%w: nothing to raise, bet instead", ErrIllegalAction)
		}
		need := a.Amount - p.CurrentBet
		if need > p.Chips {
			return fmt.Errorf("%w: raise to %d with %d behind", ErrInsufficientChips, a.Amount, p.Chips)
		}
		if a.Amount <= s.HighBet {
			return fmt.Errorf("%w: raise must exceed %d", ErrIllegalAction, s.HighBet)
		}
		raiseBy := a.Amount - s.HighBet
		allIn := need == p.Chips
		if raiseBy < s.MinRaise && !allIn {
			return fmt.Errorf("%w: minimum raise is to %d", ErrIllegalAction, s.HighBet+s.MinRaise)
		}
		moved = e.commit(p, need)
		if raiseBy >= s.MinRaise {
			s.MinRaise = raiseBy
		}
		s.HighBet = a.Amount
		e.reopen(p)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrIllegalAction, a.Kind)
	}

	p.HasActed = true
	s.ActionSeq++
	e.emit(events.ActionTaken{
		Meta:      e.meta(),
		PlayerID:  p.ID(),
		Action:    string(a.Kind),
		Amount:    moved,
		AllIn:     p.Status == domain.StatusAllIn,
		Automatic: automatic,
	})
	return e.progress()
}

// reopen gives everyone else a new decision after a bet or raise.
func (e *Engine) reopen(aggressor *domain.PlayerState) {
	for _, p := range e.State.Table.Players() {
		if p != aggressor && p.CanAct() {
			p.HasActed = false
		}
	}
}

// LeaveHand folds a player who is leaving the table mid-hand. Their bet in
// the current round stays in the pot as a dead bet.
func (e *Engine) LeaveHand(playerID string) error {
	s := e.State
	p := s.Table.FindPlayer(playerID)
	if p == nil {
		return ErrPlayerNotInHand
	}
	if !s.Phase.IsBetting() || !p.InHand() {
		if p.CurrentBet > 0 {
			e.addDeadBet(p)
		}
		return nil
	}
	if actor := s.Actor(); actor != nil && actor.ID() == playerID {
		if err := e.apply(playerID, Action{Kind: ActionFold}, true); err != nil {
			return err
		}
		e.addDeadBet(p)
		return nil
	}
	p.Status = domain.StatusFolded
	s.Pots.RemovePlayer(playerID)
	e.addDeadBet(p)
	s.ActionSeq++
	e.emit(events.ActionTaken{Meta: e.meta(), PlayerID: playerID, Action: string(ActionFold), Automatic: true})
	// the actor keeps the turn unless the fold settled the round
	if len(s.Contenders()) <= 1 || e.bettingClosed() {
		return e.progress()
	}
	return nil
}

func (e *Engine) addDeadBet(p *domain.PlayerState) {
	if p.CurrentBet == 0 {
		return
	}
	if e.State.DeadBets == nil {
		e.State.DeadBets = map[string]int64{}
	}
	e.State.DeadBets[p.ID()] += p.CurrentBet
	p.CurrentBet = 0
}

// progress moves the hand forward until somebody has to act or the hand is
// settled.
func (e *Engine) progress() error {
	s := e.State
	for {
		if len(s.Contenders()) <= 1 {
			e.collectBets()
			e.settleUncontested()
			return nil
		}
		if e.bettingClosed() || e.roundComplete() {
			if s.Phase == PhaseRiver {
				e.collectBets()
				e.showdown()
				return nil
			}
			if err := e.nextStreet(); err != nil {
				if errors.Is(err, ErrDeckExhausted) {
					e.abort(err.Error())
					return nil
				}
				return err
			}
			continue
		}
		next := s.Table.NextSeat(s.ActorSeat, e.needsToAct)
		s.ActorSeat = next
		s.ActionSeq++
		e.emit(events.TurnChanged{Meta: e.meta(), PlayerID: s.Table.PlayerAt(next).ID(), SeatNumber: next})
		return nil
	}
}

func (e *Engine) needsToAct(p *domain.PlayerState) bool {
	return p.CanAct() && (!p.HasActed || p.CurrentBet < e.State.HighBet)
}

// roundComplete is true once every player who can still bet has acted and
// matched the high bet.
func (e *Engine) roundComplete() bool {
	for _, p := range e.State.Table.Players() {
		if e.needsToAct(p) {
			return false
		}
	}
	return true
}

// bettingClosed is true when no further betting is possible: nobody can act,
// or a single player can and owes nothing.
func (e *Engine) bettingClosed() bool {
	var able []*domain.PlayerState
	for _, p := range e.State.Table.Players() {
		if p.CanAct() {
			able = append(able, p)
		}
	}
	switch len(able) {
	case 0:
		return true
	case 1:
		return able[0].CurrentBet >= e.State.HighBet
	}
	return false
}

// returnUncalled gives back the part of the top bet nobody matched.
func (e *Engine) returnUncalled() {
	var top, second int64
	var topPlayer *domain.PlayerState
	for _, p := range e.State.Table.Players() {
		switch {
		case p.CurrentBet > top:
			second = top
			top, topPlayer = p.CurrentBet, p
		case p.CurrentBet > second:
			second = p.CurrentBet
		}
	}
	for _, b := range e.State.DeadBets {
		if b > second {
			second = min(b, top)
		}
	}
	if topPlayer == nil || top <= second {
		return
	}
	excess := top - second
	topPlayer.CurrentBet -= excess
	topPlayer.TotalBet -= excess
	topPlayer.Chips += excess
	if topPlayer.Status == domain.StatusAllIn && topPlayer.Chips > 0 {
		topPlayer.Status = domain.StatusActive
	}
}

// collectBets moves the round's bets into the pots.
func (e *Engine) collectBets() {
	s := e.State
	e.returnUncalled()
	bets := map[string]int64{}
	for _, p := range s.Table.Players() {
		if p.CurrentBet > 0 {
			bets[p.ID()] = p.CurrentBet
		}
		p.CurrentBet = 0
	}
	for id, b := range s.DeadBets {
		bets[id] += b
	}
	s.DeadBets = nil
	s.Pots.CollectBets(bets)
	s.HighBet = 0
}

func (e *Engine) nextStreet() error {
	s := e.State
	e.collectBets()
	for _, p := range s.Table.Players() {
		p.HasActed = false
	}
	s.MinRaise = s.Rules.BigBlind

	var next Phase
	count := 1
	switch s.Phase {
	case PhasePreFlop:
		next, count = PhaseFlop, 3
	case PhaseFlop:
		next = PhaseTurn
	case PhaseTurn:
		next = PhaseRiver
	default:
		return fmt.Errorf("game: no street after %s", s.Phase)
	}
	dealt, err := e.Dealer.DealCommunityCards(s, count, true)
	if err != nil {
		return err
	}
	e.setPhase(next)
	e.emit(events.CommunityCardsDealt{Meta: e.meta(), Phase: string(next), Cards: dealt})
	s.ActorSeat = s.DealerSeat
	return nil
}

// CompleteHand resets every player, moves the button and ends the hand.
func (e *Engine) CompleteHand() error {
	s := e.State
	if s.Phase != PhaseShowdown {
		return ErrNotAtShowdown
	}
	for _, p := range s.Table.Players() {
		p.ResetForNewHand()
	}
	if next := s.Table.NextSeat(s.DealerSeat, nil); next != 0 {
		s.DealerSeat = next
	}
	s.ActorSeat = 0
	s.HighBet = 0
	s.DeadBets = nil
	e.setPhase(PhaseHandComplete)
	return nil
}

// AbortHand voids the hand in progress and returns every seated player's
// contribution.
func (e *Engine) AbortHand(reason string) error {
	if !e.State.Phase.InHand() {
		return ErrNoHandInProgress
	}
	e.abort(reason)
	return nil
}

func (e *Engine) abort(reason string) {
	s := e.State
	forfeited := e.forfeited()
	refunds := map[string]int64{}
	for _, p := range s.Table.Players() {
		if p.TotalBet > 0 {
			p.Chips += p.TotalBet
			refunds[p.ID()] = p.TotalBet
		}
		p.ResetForNewHand()
	}
	var lost int64
	for _, amount := range forfeited {
		lost += amount
	}
	e.Logger.Warn("hand aborted",
		zap.String("room_id", e.RoomID),
		zap.Int("hand", s.HandNumber),
		zap.String("reason", reason),
		zap.Int64("forfeited", lost),
	)
	s.Pots = pot.NewManager()
	s.DeadBets = nil
	s.ActorSeat = 0
	s.HighBet = 0
	e.emit(events.HandAborted{Meta: e.meta(), HandNumber: s.HandNumber, Reason: reason, Refunds: refunds, Forfeited: forfeited})
	e.setPhase(PhaseHandComplete)
}

// forfeited totals, per player no longer seated, the chips they left in the
// pots and dead bets.
func (e *Engine) forfeited() map[string]int64 {
	s := e.State
	out := map[string]int64{}
	add := func(id string, amount int64) {
		if amount > 0 && s.Table.FindPlayer(id) == nil {
			out[id] += amount
		}
	}
	for id, amount := range s.Pots.Contributions {
		add(id, amount)
	}
	for id, amount := range s.Pots.Antes {
		add(id, amount)
	}
	for id, amount := range s.DeadBets {
		add(id, amount)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// End closes the table for good. It refuses while a hand is being played.
func (e *Engine) End() error {
	if e.State.Phase.InHand() {
		return ErrHandInProgress
	}
	e.setPhase(PhaseEnd)
	return nil
}
