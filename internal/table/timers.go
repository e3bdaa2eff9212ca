package table

import (
	"time"

	"github.com/riverline/holdem-table/internal/betting"
)

// scheduleActionTimer arms the action clock for seat. Every call bumps
// actionTimerGen, so a timer that fires after being superseded or
// cancelled finds a stale generation and becomes a no-op instead of
// auto-folding the wrong actor.
func (t *Table) scheduleActionTimer(seat int) {
	t.cancelActionTimer()
	t.actionTimerGen++
	gen := t.actionTimerGen
	t.actionTimer = t.clock.AfterFunc(t.cfg.ActionTimeout, func() {
		t.onActionTimeout(seat, gen)
	})
}

// cancelActionTimer stops any pending action timer and invalidates its
// generation, so a fire that races the Stop call is ignored.
func (t *Table) cancelActionTimer() {
	if t.actionTimer != nil {
		t.actionTimer.Stop()
		t.actionTimer = nil
	}
	t.actionTimerGen++
}

func (t *Table) onActionTimeout(seat int, gen int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.actionTimerGen {
		return
	}
	if !t.isHandActive || t.currentSeat != seat {
		return
	}
	p := t.seats[seat]
	if p == nil {
		return
	}

	t.logger.Info().Int("seat", seat).Str("player_id", p.ID).Msg("action timed out, auto-folding")

	if err := betting.ApplyAction(t.bettingPlayers(), seat, betting.Fold, 0, t.round, t.cfg.BigBlind); err != nil {
		return
	}
	t.lastAction = &ActionResult{Seat: seat, PlayerID: p.ID, Action: betting.Fold, Timestamp: time.Now()}
	t.emitStateChange()
	t.advanceOrProgress(seat)
}

// scheduleDelay arms a one-shot suspension timer, used for the fixed
// payout-display pause and the gap before the next hand deals in.
func (t *Table) scheduleDelay(d time.Duration, fn func()) {
	t.cancelDelay()
	t.delayTimer = t.clock.AfterFunc(d, fn)
}

func (t *Table) cancelDelay() {
	if t.delayTimer != nil {
		t.delayTimer.Stop()
		t.delayTimer = nil
	}
}
