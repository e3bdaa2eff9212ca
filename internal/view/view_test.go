package view_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/riverline/holdem-table/internal/betting"
	"github.com/riverline/holdem-table/internal/deck"
	"github.com/riverline/holdem-table/internal/evaluator"
	"github.com/riverline/holdem-table/internal/table"
	"github.com/riverline/holdem-table/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoSeatState() table.TableState {
	alice := &table.Player{
		Player:    betting.Player{Seat: 0, Chips: 500, CurrentBet: 10},
		ID:        "alice",
		Name:      "Alice",
		HoleCards: []deck.Card{{Rank: deck.Ace, Suit: deck.Spades}, {Rank: deck.King, Suit: deck.Spades}},
	}
	bob := &table.Player{
		Player:    betting.Player{Seat: 1, Chips: 490, CurrentBet: 20},
		ID:        "bob",
		Name:      "Bob",
		HoleCards: []deck.Card{{Rank: deck.Two, Suit: deck.Hearts}, {Rank: deck.Three, Suit: deck.Hearts}},
	}
	return table.TableState{
		ID:      "t1",
		Stage:   table.Preflop,
		Seats:   []*table.Player{alice, bob},
		Board:   nil,
		SmallBlind: 5, BigBlind: 10, MaxPlayers: 2,
		IsHandActive: true,
	}
}

func TestSanitizeHidesOtherPlayersHoleCards(t *testing.T) {
	state := twoSeatState()
	v := view.Sanitize(state, "alice")

	require.True(t, v.Seats[0].Occupied)
	assert.Equal(t, state.Seats[0].HoleCards, v.Seats[0].HoleCards)
	assert.True(t, v.Seats[0].HoldsCards)

	require.True(t, v.Seats[1].Occupied)
	assert.Nil(t, v.Seats[1].HoleCards)
	assert.True(t, v.Seats[1].HoldsCards, "hidden cards still report that the seat holds cards")
}

func TestSanitizeIsPureAndDeterministic(t *testing.T) {
	state := twoSeatState()
	v1 := view.Sanitize(state, "bob")
	v2 := view.Sanitize(state, "bob")
	assert.Equal(t, v1, v2)

	// mutating the returned view must not reach back into state.
	v1.Seats[0].Chips = 0
	assert.Equal(t, 500, state.Seats[0].Chips)
}

func TestSanitizeNeverExposesBestFiveForFoldWin(t *testing.T) {
	state := twoSeatState()
	state.Winners = []table.WinnerResult{
		{Seat: 0, PlayerID: "alice", Amount: 100, WentToShowdown: false},
	}
	v := view.Sanitize(state, "bob")
	require.Len(t, v.Winners, 1)
	assert.False(t, v.Winners[0].WentToShowdown)
	assert.Nil(t, v.Winners[0].BestFive)
	assert.Equal(t, evaluator.Category(0), v.Winners[0].Category)
}

func TestSanitizeRevealsBestFiveOnlyForShowdownWinners(t *testing.T) {
	state := twoSeatState()
	bestFive := []deck.Card{
		{Rank: deck.Ace, Suit: deck.Spades}, {Rank: deck.King, Suit: deck.Spades},
		{Rank: deck.Queen, Suit: deck.Spades}, {Rank: deck.Jack, Suit: deck.Spades},
		{Rank: deck.Ten, Suit: deck.Spades},
	}
	state.Winners = []table.WinnerResult{
		{Seat: 0, PlayerID: "alice", Amount: 100, WentToShowdown: true, Category: evaluator.StraightFlush, BestFive: bestFive},
		{Seat: 1, PlayerID: "bob", Amount: 0, WentToShowdown: false},
	}
	v := view.Sanitize(state, "alice")
	require.Len(t, v.Winners, 2)
	assert.Equal(t, bestFive, v.Winners[0].BestFive)
	assert.Nil(t, v.Winners[1].BestFive)
}

func TestSanitizeMarksEmptySeatsUnoccupied(t *testing.T) {
	state := twoSeatState()
	state.Seats = append(state.Seats, nil)
	v := view.Sanitize(state, "alice")
	require.Len(t, v.Seats, 3)
	assert.False(t, v.Seats[2].Occupied)
}

// TestSanitizeMatchesExpectedView diffs the whole projected TableView
// against a hand-built expectation. cmp.Diff pinpoints exactly which
// field regressed, which testify's reflect-based Equal doesn't do for
// a struct this wide.
func TestSanitizeMatchesExpectedView(t *testing.T) {
	state := twoSeatState()
	got := view.Sanitize(state, "alice")

	want := view.TableView{
		Stage: "preflop",
		Seats: []view.SeatView{
			{
				Occupied:   true,
				PlayerID:   "alice",
				Name:       "Alice",
				Chips:      500,
				CurrentBet: 10,
				HoldsCards: true,
				HoleCards:  []deck.Card{{Rank: deck.Ace, Suit: deck.Spades}, {Rank: deck.King, Suit: deck.Spades}},
			},
			{
				Occupied:   true,
				PlayerID:   "bob",
				Name:       "Bob",
				Chips:      490,
				CurrentBet: 20,
				HoldsCards: true,
			},
		},
		Winners:      []view.WinnerView{},
		SmallBlind:   5,
		BigBlind:     10,
		MaxPlayers:   2,
		IsHandActive: true,
		ID:           "t1",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sanitize mismatch (-want +got):\n%s", diff)
	}
}
