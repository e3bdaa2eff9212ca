package table_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/riverline/holdem-table/internal/betting"
	"github.com/riverline/holdem-table/internal/deck"
	"github.com/riverline/holdem-table/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedDeck builds a full 52-card deck.NewPrearranged sequence that
// deals exactly prefix first, then the rest of the deck in canonical
// order so the whole sequence is a valid permutation.
func fixedDeck(prefix []deck.Card) *deck.Deck {
	used := make(map[deck.Card]bool, len(prefix))
	for _, c := range prefix {
		used[c] = true
	}
	all := append([]deck.Card(nil), prefix...)
	for _, s := range []deck.Suit{deck.Clubs, deck.Diamonds, deck.Hearts, deck.Spades} {
		for r := deck.Two; r <= deck.Ace; r++ {
			c := deck.Card{Rank: r, Suit: s}
			if !used[c] {
				all = append(all, c)
			}
		}
	}
	return deck.NewPrearranged(all)
}

func testConfig() table.Config {
	cfg := table.DefaultConfig()
	cfg.MaxPlayers = 5
	cfg.SmallBlind = 5
	cfg.BigBlind = 10
	cfg.StartingStack = 1000
	cfg.ActionTimeout = time.Second
	cfg.PayoutDisplay = time.Second
	cfg.InterHandDelay = time.Second
	return cfg
}

type harness struct {
	t        *testing.T
	tb       *table.Table
	clock    *quartz.Mock
	states   []table.TableState
	requests []int
}

func newHarness(t *testing.T, cfg table.Config) *harness {
	clock := quartz.NewMock(t)
	h := &harness{t: t, clock: clock}
	h.tb = table.New("t1", cfg, clock, rand.New(rand.NewSource(1)),
		func(s table.TableState) { h.states = append(h.states, s) },
		func(seat int, opts betting.Options, timeLeft time.Duration) { h.requests = append(h.requests, seat) },
	)
	return h
}

func (h *harness) last() table.TableState {
	return h.states[len(h.states)-1]
}

// advance moves the mock clock forward by d in total. The quartz mock
// refuses a single Advance call that overshoots the next pending
// timer/ticker event, so step up to each pending event before
// advancing the remainder.
func (h *harness) advance(d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	remaining := d
	for {
		next, ok := h.clock.Peek()
		if !ok || next > remaining {
			h.clock.Advance(remaining).MustWait(ctx)
			return
		}
		h.clock.Advance(next).MustWait(ctx)
		remaining -= next
	}
}

// threeHanded seats three players for a genuinely three-way hand. A
// join only deals a player into the *next* hand that starts after
// they're seated (spec.md's starting_hand transition fires as soon as
// two are seated), so the third player is added during the first
// hand's payout pause and is only dealt in once hand two deals.
func threeHanded(t *testing.T, cfg table.Config) *harness {
	h := newHarness(t, cfg)

	_, err := h.tb.AddPlayer("a", "Alice")
	require.NoError(t, err)
	_, err = h.tb.AddPlayer("b", "Bob")
	require.NoError(t, err)

	state := h.last()
	require.NoError(t, h.tb.ProcessAction(state.Seats[state.CurrentSeat].ID, betting.Fold, 0))

	_, err = h.tb.AddPlayer("c", "Carol")
	require.NoError(t, err)

	h.advance(cfg.PayoutDisplay + time.Millisecond)
	h.advance(cfg.InterHandDelay + time.Millisecond)

	state = h.last()
	require.True(t, state.IsHandActive)
	require.Equal(t, table.Preflop, state.Stage)
	occupied := 0
	for _, p := range state.Seats {
		if p != nil {
			occupied++
		}
	}
	require.Equal(t, 3, occupied)
	return h
}

func TestHeadsUpBlindsAndFirstToAct(t *testing.T) {
	h := newHarness(t, testConfig())

	seatA, err := h.tb.AddPlayer("a", "Alice")
	require.NoError(t, err)
	_, err = h.tb.AddPlayer("b", "Bob")
	require.NoError(t, err)

	state := h.last()
	require.True(t, state.IsHandActive)
	require.Equal(t, table.Preflop, state.Stage)

	// heads-up: dealer posts SB and acts first preflop.
	assert.Equal(t, seatA, state.DealerSeat)
	assert.Equal(t, seatA, state.SmallBlindSeat)
	assert.Equal(t, seatA, state.CurrentSeat)
	assert.Equal(t, 5, state.Seats[seatA].CurrentBet)
	assert.Equal(t, 10, state.Seats[state.BigBlindSeat].CurrentBet)

	require.NoError(t, h.tb.ProcessAction("a", betting.Call, 0))
	require.NoError(t, h.tb.ProcessAction("b", betting.Check, 0))

	state = h.last()
	require.Equal(t, table.Flop, state.Stage)
	// postflop: first-to-act is left of dealer, i.e. the big blind (B).
	assert.Equal(t, state.BigBlindSeat, state.CurrentSeat)
}

func TestChipConservationThroughShowdown(t *testing.T) {
	h := threeHanded(t, testConfig())

	totalBefore := 0
	for _, p := range h.last().Seats {
		if p != nil {
			totalBefore += p.Chips + p.CurrentBet
		}
	}

	for i := 0; i < 60; i++ {
		state := h.last()
		if state.Stage == table.Payouts || state.Stage == table.HandCleanup {
			break
		}
		if !state.IsHandActive || state.CurrentSeat < 0 {
			continue
		}
		p := state.Seats[state.CurrentSeat]
		action := betting.Check
		if state.Round != nil && state.Round.CurrentBet > p.CurrentBet {
			action = betting.Call
		}
		require.NoError(t, h.tb.ProcessAction(p.ID, action, 0))
	}

	final := h.last()
	require.Equal(t, table.Payouts, final.Stage)
	totalAfter := 0
	for _, p := range final.Seats {
		if p != nil {
			totalAfter += p.Chips + p.CurrentBet
		}
	}
	assert.Equal(t, totalBefore, totalAfter)
	require.NotEmpty(t, final.Winners)
}

// TestShortAllInBlocksReraiseAtTheTable replays the boundary scenario
// end to end: a raise to 40, a short all-in to 45 from a player too
// shallow to make a full raise, and the original raiser left unable to
// do anything but call 5 more or fold.
func TestShortAllInBlocksReraiseAtTheTable(t *testing.T) {
	cfg := testConfig()
	// chosen so hand two's big blind (whose stack is shaped by folding
	// away hand one's small blind) can only shove for a short raise
	// against a 40-chip open: 50 - 5 folded in hand one - 10 posted
	// leaves 35, a shove to 45 total, short of the full raise to 70.
	cfg.StartingStack = 50
	h := threeHanded(t, cfg)

	state := h.last()
	dealerID := state.Seats[state.DealerSeat].ID // first to act preflop, 3-handed after the button
	require.Equal(t, state.CurrentSeat, state.DealerSeat)

	require.NoError(t, h.tb.ProcessAction(dealerID, betting.Raise, 40)) // to 40 total

	state = h.last()
	sbID := state.Seats[state.SmallBlindSeat].ID
	bbID := state.Seats[state.BigBlindSeat].ID
	bbChips := state.Seats[state.BigBlindSeat].Chips
	require.NoError(t, h.tb.ProcessAction(sbID, betting.Fold, 0))
	// Shove the whole remaining stack as a raise, the only way a client
	// can go all-in over the wire: there is no dedicated all-in message.
	require.NoError(t, h.tb.ProcessAction(bbID, betting.Raise, bbChips)) // short all-in to 45

	state = h.last()
	require.Equal(t, state.DealerSeat, state.CurrentSeat) // back to the raiser
	require.Equal(t, 45, state.Seats[state.BigBlindSeat].TotalBetThisHand)

	err := h.tb.ProcessAction(dealerID, betting.Raise, 5)
	require.Error(t, err)
	var rv *betting.RuleViolation
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, betting.Raise, rv.Action)

	require.NoError(t, h.tb.ProcessAction(dealerID, betting.Call, 0))
	state = h.last()
	assert.Equal(t, 45, state.Seats[state.DealerSeat].TotalBetThisHand)
}

func TestActionTimeoutAutoFolds(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)

	_, err := h.tb.AddPlayer("a", "Alice")
	require.NoError(t, err)
	_, err = h.tb.AddPlayer("b", "Bob")
	require.NoError(t, err)

	h.advance(cfg.ActionTimeout + time.Millisecond)

	state := h.last()
	require.NotNil(t, state.LastAction)
	assert.Equal(t, betting.Fold, state.LastAction.Action)
}

// TestActionTimerCancellationIsSafe verifies a timer that races a
// legitimate action never applies its auto-fold: Alice calls before the
// clock advances, so when the clock runs out the only auto-fold is the
// big blind's, from the timer armed for them, never a phantom fold of
// Alice from her own stale timer.
func TestActionTimerCancellationIsSafe(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)

	_, err := h.tb.AddPlayer("a", "Alice")
	require.NoError(t, err)
	_, err = h.tb.AddPlayer("b", "Bob")
	require.NoError(t, err)

	require.NoError(t, h.tb.ProcessAction("a", betting.Call, 0))

	h.advance(cfg.ActionTimeout + time.Millisecond)

	state := h.last()
	require.NotNil(t, state.LastAction)
	assert.Equal(t, betting.Fold, state.LastAction.Action)
	assert.Equal(t, state.BigBlindSeat, state.LastAction.Seat, "the stale preflop timer must not auto-fold Alice")
}

func TestPlayerLeaveMidHandAsCurrentActorEndsHeadsUpHand(t *testing.T) {
	h := newHarness(t, testConfig())

	_, err := h.tb.AddPlayer("a", "Alice")
	require.NoError(t, err)
	_, err = h.tb.AddPlayer("b", "Bob")
	require.NoError(t, err)

	state := h.last()
	currentID := state.Seats[state.CurrentSeat].ID

	require.NoError(t, h.tb.RemovePlayer(currentID))

	state = h.last()
	require.Nil(t, findByID(state, currentID))
	// heads-up with the acting player gone drops below two non-folded
	// players, which ends the hand rather than advancing to anyone.
	require.Equal(t, table.Payouts, state.Stage)
}

func findByID(state table.TableState, id string) *table.Player {
	for _, p := range state.Seats {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

func TestPlayerLeaveMidHandReassignsPositionalMarkers(t *testing.T) {
	h := threeHanded(t, testConfig())

	state := h.last()
	dealerID := state.Seats[state.DealerSeat].ID

	// three-handed, the dealer is the first actor preflop, so act once
	// to move the action on before the dealer leaves.
	require.Equal(t, state.CurrentSeat, state.DealerSeat)
	require.NoError(t, h.tb.ProcessAction(dealerID, betting.Call, 0))

	require.NoError(t, h.tb.RemovePlayer(dealerID))

	state = h.last()
	require.Nil(t, findByID(state, dealerID))
	assert.NotEqual(t, -1, state.DealerSeat)
	assert.True(t, state.Seats[state.DealerSeat] == nil || state.Seats[state.DealerSeat].ID != dealerID)
}

func TestFoldOnlyWinAwardsEntirePot(t *testing.T) {
	h := newHarness(t, testConfig())

	_, err := h.tb.AddPlayer("a", "Alice")
	require.NoError(t, err)
	_, err = h.tb.AddPlayer("b", "Bob")
	require.NoError(t, err)

	state := h.last()
	currentID := state.Seats[state.CurrentSeat].ID

	require.NoError(t, h.tb.ProcessAction(currentID, betting.Fold, 0))

	state = h.last()
	require.Equal(t, table.Payouts, state.Stage)
	require.Len(t, state.Winners, 1)
	assert.False(t, state.Winners[0].WentToShowdown)
	assert.Equal(t, 15, state.Winners[0].Amount) // small blind 5 + big blind 10
}

func TestHandCleanupEvictsBustedPlayersAndReturnsToWaiting(t *testing.T) {
	cfg := testConfig()
	cfg.StartingStack = 10
	cfg.BigBlind = 10
	cfg.SmallBlind = 5
	h := newHarness(t, cfg)

	_, err := h.tb.AddPlayer("a", "Alice")
	require.NoError(t, err)

	// pocket aces for the dealer/small blind, pocket deuces for the big
	// blind, and a harmless board so the pair of aces wins outright.
	h.tb.UseDeck(fixedDeck([]deck.Card{
		{Rank: deck.Ace, Suit: deck.Spades}, {Rank: deck.Two, Suit: deck.Spades},
		{Rank: deck.Ace, Suit: deck.Diamonds}, {Rank: deck.Two, Suit: deck.Diamonds},
		{Rank: deck.Three, Suit: deck.Hearts},
		{Rank: deck.Four, Suit: deck.Hearts}, {Rank: deck.Five, Suit: deck.Hearts}, {Rank: deck.Six, Suit: deck.Hearts},
		{Rank: deck.Seven, Suit: deck.Hearts},
		{Rank: deck.Eight, Suit: deck.Hearts},
		{Rank: deck.Nine, Suit: deck.Hearts},
		{Rank: deck.Ten, Suit: deck.Clubs},
	}))

	_, err = h.tb.AddPlayer("b", "Bob")
	require.NoError(t, err)

	state := h.last()
	require.Equal(t, 5, state.Seats[state.DealerSeat].CurrentBet)  // small blind, dealer heads-up
	require.Equal(t, 10, state.Seats[state.BigBlindSeat].CurrentBet) // already all-in on the blind post

	// dealer/small blind calls, going all-in themselves; both players
	// all-in fast-forwards straight to showdown.
	dealerID := state.Seats[state.DealerSeat].ID
	require.NoError(t, h.tb.ProcessAction(dealerID, betting.Call, 0))

	state = h.last()
	require.Equal(t, table.Payouts, state.Stage)
	require.Len(t, state.Winners, 1)
	assert.Equal(t, dealerID, state.Winners[0].PlayerID)
	assert.Equal(t, 20, state.Winners[0].Amount)

	h.advance(cfg.PayoutDisplay + time.Millisecond)

	final := h.last()
	require.Equal(t, table.WaitingForPlayers, final.Stage)
	remaining := 0
	for _, p := range final.Seats {
		if p != nil {
			remaining++
		}
	}
	assert.Equal(t, 1, remaining, "the big blind lost their entire stack at showdown and was evicted")
}
