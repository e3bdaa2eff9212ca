package table

import (
	"sort"
	"time"

	"github.com/riverline/holdem-table/internal/betting"
	"github.com/riverline/holdem-table/internal/deck"
	"github.com/riverline/holdem-table/internal/evaluator"
	"github.com/riverline/holdem-table/internal/potmgr"
)

// maybeStartHand transitions waiting_for_players -> starting_hand once
// two or more seats are occupied and no hand is already live.
func (t *Table) maybeStartHand() {
	if t.isHandActive {
		return
	}
	if t.occupiedCount() < 2 {
		if t.stage != WaitingForPlayers {
			t.stage = WaitingForPlayers
			t.emitStateChange()
		}
		return
	}
	t.startHand()
}

// startHand deals a fresh hand: rotates the button, computes blinds,
// shuffles, deals hole cards in two passes, posts blinds, and opens
// preflop action.
func (t *Table) startHand() {
	t.stage = StartingHand
	t.handNum++
	t.board = nil
	t.winners = nil
	t.lastAction = nil

	for _, p := range t.seats {
		if p == nil {
			continue
		}
		p.Folded = false
		p.AllIn = false
		p.Acted = false
		p.CurrentBet = 0
		p.TotalBetThisHand = 0
		p.LastAction = 0
		p.HoleCards = nil
		p.IsDealer = false
		p.IsSmallBlind = false
		p.IsBigBlind = false
	}

	t.rotateDealer()
	sbSeat, bbSeat, firstToAct := t.computeBlindSeats()
	t.sbSeat, t.bbSeat = sbSeat, bbSeat
	t.seats[t.dealerSeat].IsDealer = true
	t.seats[sbSeat].IsSmallBlind = true
	t.seats[bbSeat].IsBigBlind = true

	t.deckC.Reset()
	if !t.deckC.IsPrearranged() {
		t.deckC.Shuffle(t.shuffler)
	}

	for pass := 0; pass < 2; pass++ {
		for _, seat := range t.occupiedSeats() {
			t.seats[seat].HoleCards = append(t.seats[seat].HoleCards, t.deckC.DealOne())
		}
	}

	t.postBlind(sbSeat, t.cfg.SmallBlind)
	t.postBlind(bbSeat, t.cfg.BigBlind)

	// The live bet to match is always the full big blind, even when the
	// blind itself posted short as an all-in.
	t.round = &betting.Round{CurrentBet: t.cfg.BigBlind, LastRaiser: -1}
	t.isHandActive = true
	t.stage = Preflop
	t.beginActionStage(firstToAct)
}

func (t *Table) postBlind(seat, amount int) {
	p := t.seats[seat]
	posted := amount
	if posted > p.Chips {
		posted = p.Chips
	}
	p.Chips -= posted
	p.CurrentBet = posted
	p.TotalBetThisHand = posted
	if p.Chips == 0 {
		p.AllIn = true
	}
}

func (t *Table) rotateDealer() {
	if t.dealerSeat == -1 {
		t.dealerSeat = t.occupiedSeats()[0]
		return
	}
	t.dealerSeat = t.nextOccupiedSeat(t.dealerSeat)
}

// computeBlindSeats implements spec.md's heads-up vs 3+ blind rules.
func (t *Table) computeBlindSeats() (sb, bb, firstToAct int) {
	if len(t.occupiedSeats()) == 2 {
		sb = t.dealerSeat
		bb = t.nextOccupiedSeat(t.dealerSeat)
		firstToAct = sb
		return
	}
	sb = t.nextOccupiedSeat(t.dealerSeat)
	bb = t.nextOccupiedSeat(sb)
	firstToAct = t.nextOccupiedSeat(bb)
	return
}

// beginActionStage opens a betting stage with desiredFirst as the
// nominal first actor, skipping forward over anyone already folded or
// all-in. If nobody remains able to act, the stage fast-forwards to
// showdown instead of stalling.
func (t *Table) beginActionStage(desiredFirst int) {
	n := len(t.seats)
	from := ((desiredFirst-1)%n + n) % n
	seat := betting.GetNextPlayerToAct(t.bettingPlayers(), from, t.round)
	if seat == -1 {
		t.fastForwardToShowdown()
		return
	}
	t.currentSeat = seat
	t.emitStateChange()
	t.scheduleActionTimer(seat)
	t.emitActionRequest(seat)
}

// ProcessAction validates that it's playerID's turn, applies the
// action through the betting engine, and advances the hand.
func (t *Table) ProcessAction(playerID string, action betting.Action, amount int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isHandActive || !t.stage.IsActionStage() {
		return ErrNoBettingRound
	}
	seat, p := t.findByID(playerID)
	if p == nil {
		return ErrNotSeated
	}
	if seat != t.currentSeat {
		return ErrNotYourTurn
	}

	t.cancelActionTimer()

	if err := betting.ApplyAction(t.bettingPlayers(), seat, action, amount, t.round, t.cfg.BigBlind); err != nil {
		t.scheduleActionTimer(seat)
		return err
	}

	t.lastAction = &ActionResult{Seat: seat, PlayerID: p.ID, Action: action, Amount: amount, Timestamp: time.Now()}
	t.emitStateChange()
	t.advanceOrProgress(seat)
	return nil
}

// resolveIfHandOver checks the two hand-ending conditions that
// preempt normal round-completion: too few players left to bet against
// each other, or everyone left is all-in. Returns true if it acted.
func (t *Table) resolveIfHandOver() bool {
	if t.nonFoldedCount() < 2 {
		t.foldWinPath()
		return true
	}
	if t.allNonFoldedAllIn() {
		t.fastForwardToShowdown()
		return true
	}
	return false
}

// advanceOrProgress is the shared tail of ProcessAction, the action
// timeout path, and a mid-hand departure: decide whether the hand is
// over, whether the round is complete, or who acts next.
func (t *Table) advanceOrProgress(fromSeat int) {
	if t.resolveIfHandOver() {
		return
	}
	if betting.IsRoundComplete(t.bettingPlayers(), t.round) {
		t.advanceStage()
		return
	}
	next := betting.GetNextPlayerToAct(t.bettingPlayers(), fromSeat, t.round)
	if next == -1 {
		t.advanceStage()
		return
	}
	t.currentSeat = next
	t.emitStateChange()
	t.scheduleActionTimer(next)
	t.emitActionRequest(next)
}

// checkHandProgress re-evaluates hand state after a departure that
// didn't belong to the current actor.
func (t *Table) checkHandProgress() {
	if t.resolveIfHandOver() {
		return
	}
	if betting.IsRoundComplete(t.bettingPlayers(), t.round) {
		t.advanceStage()
	}
}

// advanceStage moves preflop->flop->turn->river->showdown, dealing the
// street's community cards and opening a fresh action stage (or, from
// the river, running showdown directly).
func (t *Table) advanceStage() {
	switch t.stage {
	case Preflop:
		t.dealBurnAndCommunity(3)
		t.stage = Flop
		betting.ResetForNextStage(t.round, t.bettingPlayers(), false)
		t.beginActionStage(t.nextOccupiedSeat(t.dealerSeat))
	case Flop:
		t.dealBurnAndCommunity(1)
		t.stage = Turn
		betting.ResetForNextStage(t.round, t.bettingPlayers(), false)
		t.beginActionStage(t.nextOccupiedSeat(t.dealerSeat))
	case Turn:
		t.dealBurnAndCommunity(1)
		t.stage = River
		betting.ResetForNextStage(t.round, t.bettingPlayers(), false)
		t.beginActionStage(t.nextOccupiedSeat(t.dealerSeat))
	case River:
		t.stage = Showdown
		t.runShowdown()
	}
}

// fastForwardToShowdown deals every remaining street with no further
// betting once all live players are committed, then runs showdown.
func (t *Table) fastForwardToShowdown() {
	t.cancelActionTimer()
	t.currentSeat = -1

	for t.stage != River {
		switch t.stage {
		case Preflop:
			t.dealBurnAndCommunity(3)
			t.stage = Flop
		case Flop:
			t.dealBurnAndCommunity(1)
			t.stage = Turn
		case Turn:
			t.dealBurnAndCommunity(1)
			t.stage = River
		default:
			t.stage = River
		}
	}
	t.emitStateChange()
	t.stage = Showdown
	t.runShowdown()
}

func (t *Table) dealBurnAndCommunity(n int) {
	t.deckC.DealOne()
	t.board = append(t.board, t.deckC.DealMany(n)...)
}

// computePots derives the current pot structure from every seated
// player's totalBetThisHand. It's pure and cheap enough to call for
// every broadcast rather than caching pot state on the table.
func (t *Table) computePots() []potmgr.Pot {
	var contributors []potmgr.Contributor
	for _, p := range t.seats {
		if p == nil {
			continue
		}
		contributors = append(contributors, potmgr.Contributor{
			Seat:             p.Seat,
			TotalBetThisHand: p.TotalBetThisHand,
			Folded:           p.Folded,
		})
	}
	return potmgr.ComputeSidePots(contributors)
}

// runShowdown evaluates every non-folded hand, ranks them, computes
// pots from the whole hand's contributions, and distributes.
func (t *Table) runShowdown() {
	t.cancelActionTimer()
	t.currentSeat = -1

	type evaluated struct {
		seat   int
		result evaluator.Result
	}

	var evaluations []evaluated
	for _, p := range t.seats {
		if p == nil || p.Folded {
			continue
		}
		cards := make([]deck.Card, 0, len(p.HoleCards)+len(t.board))
		cards = append(cards, p.HoleCards...)
		cards = append(cards, t.board...)
		evaluations = append(evaluations, evaluated{seat: p.Seat, result: evaluator.Evaluate(cards)})
	}

	sort.Slice(evaluations, func(i, j int) bool {
		return evaluations[i].result.Value > evaluations[j].result.Value
	})

	rankOf := make(map[int]int, len(evaluations))
	evalBySeat := make(map[int]evaluator.Result, len(evaluations))
	rank := 0
	for i, e := range evaluations {
		if i > 0 && evaluator.Compare(e.result, evaluations[i-1].result) != 0 {
			rank = i
		}
		rankOf[e.seat] = rank
		evalBySeat[e.seat] = e.result
	}

	pots := t.computePots()
	winnings := potmgr.Distribute(pots, rankOf)

	var winners []WinnerResult
	for seat, amount := range winnings {
		if amount == 0 {
			continue
		}
		p := t.seats[seat]
		p.Chips += amount
		wr := WinnerResult{Seat: seat, PlayerID: p.ID, Amount: amount, WentToShowdown: true}
		if res, ok := evalBySeat[seat]; ok {
			wr.Category = res.Category
			wr.BestFive = res.BestFive
		}
		winners = append(winners, wr)
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].Seat < winners[j].Seat })
	t.winners = winners

	t.stage = Payouts
	t.emitStateChange()
	t.scheduleDelay(t.cfg.PayoutDisplay, t.onPayoutDisplayElapsed)
}

// foldWinPath awards the entire hand's contributions to the sole
// remaining player without revealing or evaluating any hand.
func (t *Table) foldWinPath() {
	t.cancelActionTimer()
	t.currentSeat = -1

	winnerSeat := -1
	total := 0
	for _, p := range t.seats {
		if p == nil {
			continue
		}
		total += p.TotalBetThisHand
		if !p.Folded {
			winnerSeat = p.Seat
		}
	}

	var winners []WinnerResult
	if winnerSeat != -1 {
		p := t.seats[winnerSeat]
		p.Chips += total
		winners = append(winners, WinnerResult{Seat: winnerSeat, PlayerID: p.ID, Amount: total, WentToShowdown: false})
	}
	t.winners = winners

	t.stage = Payouts
	t.emitStateChange()
	t.scheduleDelay(t.cfg.PayoutDisplay, t.onPayoutDisplayElapsed)
}

// onPayoutDisplayElapsed fires after the fixed payout-display delay and
// runs hand_cleanup.
func (t *Table) onPayoutDisplayElapsed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanupHand()
}

// cleanupHand clears winners, evicts busted players, and either starts
// the next hand after a short delay or returns to waiting_for_players.
func (t *Table) cleanupHand() {
	t.winners = nil
	t.isHandActive = false
	t.stage = HandCleanup
	t.lastAction = nil

	for i, p := range t.seats {
		if p != nil && p.Chips == 0 {
			t.seats[i] = nil
		}
	}

	t.emitStateChange()

	if t.occupiedCount() >= 2 {
		t.scheduleDelay(t.cfg.InterHandDelay, t.onInterHandDelayElapsed)
		return
	}
	t.stage = WaitingForPlayers
	t.emitStateChange()
}

func (t *Table) onInterHandDelayElapsed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeStartHand()
}
