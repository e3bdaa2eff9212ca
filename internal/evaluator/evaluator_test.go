package evaluator_test

import (
	"testing"

	"github.com/riverline/holdem-table/internal/deck"
	"github.com/riverline/holdem-table/internal/evaluator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cards(t *testing.T, literals ...string) []deck.Card {
	t.Helper()
	out := make([]deck.Card, len(literals))
	for i, lit := range literals {
		c, err := deck.ParseCard(lit)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

func TestRoyalFlushFromSevenCards(t *testing.T) {
	hand := cards(t, "As", "Ks", "Qs", "Js", "Ts", "2d", "7c")
	result := evaluator.Evaluate(hand)
	assert.Equal(t, evaluator.RoyalFlush, result.Category)
	assert.Len(t, result.BestFive, 5)
}

func TestTwoTriplesResolveToFullHouseWithHigherTripsAndLowerTripsPair(t *testing.T) {
	hand := cards(t, "Kc", "Kd", "Kh", "5c", "5d", "5h", "2s")
	result := evaluator.Evaluate(hand)
	require.Equal(t, evaluator.FullHouse, result.Category)

	// the same shape but with the trips swapped should lose: the higher
	// triple must always become the trips half, never the pair half.
	weaker := cards(t, "5c", "5d", "5h", "2s", "2d", "2h", "Kc")
	weakerResult := evaluator.Evaluate(weaker)
	require.Equal(t, evaluator.FullHouse, weakerResult.Category)
	assert.True(t, evaluator.Compare(result, weakerResult) > 0)
}

func TestWheelStraightHighCardIsFive(t *testing.T) {
	hand := cards(t, "As", "2d", "3h", "4c", "5s", "9d", "Kc")
	result := evaluator.Evaluate(hand)
	assert.Equal(t, evaluator.Straight, result.Category)

	sixHigh := cards(t, "6s", "2d", "3h", "4c", "5s", "9d", "Kc")
	sixHighResult := evaluator.Evaluate(sixHigh)
	assert.True(t, evaluator.Compare(sixHighResult, result) > 0, "6-high straight must beat the wheel")
}

func TestCategoryAlwaysDominatesValue(t *testing.T) {
	pairHand := evaluator.Evaluate(cards(t, "Ac", "Ad", "Kc", "Qd", "Jh"))
	straightHand := evaluator.Evaluate(cards(t, "2c", "3d", "4h", "5s", "6c"))
	assert.True(t, evaluator.Compare(straightHand, pairHand) > 0)

	quadsHand := evaluator.Evaluate(cards(t, "2c", "2d", "2h", "2s", "3c"))
	straightFlushHand := evaluator.Evaluate(cards(t, "2c", "3c", "4c", "5c", "6c"))
	assert.True(t, evaluator.Compare(straightFlushHand, quadsHand) > 0)
}

func TestFlushComparesAllFiveCardsNotJustTheHighCard(t *testing.T) {
	better := evaluator.Evaluate(cards(t, "Ac", "Kc", "9c", "5c", "3c"))
	worse := evaluator.Evaluate(cards(t, "Ac", "Kc", "8c", "5c", "3c"))
	assert.True(t, evaluator.Compare(better, worse) > 0)
}

func TestExactTieIsZero(t *testing.T) {
	a := evaluator.Evaluate(cards(t, "Ac", "Kd", "9h", "5s", "3c"))
	b := evaluator.Evaluate(cards(t, "Ad", "Kh", "9s", "5c", "3d"))
	assert.Equal(t, 0, evaluator.Compare(a, b))
}

func TestFourOfAKindKickerBreaksTies(t *testing.T) {
	withKing := evaluator.Evaluate(cards(t, "7c", "7d", "7h", "7s", "Kc"))
	withQueen := evaluator.Evaluate(cards(t, "7c", "7d", "7h", "7s", "Qc"))
	assert.True(t, evaluator.Compare(withKing, withQueen) > 0)
}

func TestTwoPairComparesBothPairsThenKicker(t *testing.T) {
	acesAndFours := evaluator.Evaluate(cards(t, "Ac", "Ad", "4h", "4s", "2c"))
	acesAndTreys := evaluator.Evaluate(cards(t, "Ac", "Ad", "3h", "3s", "Kc"))
	assert.True(t, evaluator.Compare(acesAndFours, acesAndTreys) > 0)
}

func TestEvaluatePanicsOnOutOfRangeCardCount(t *testing.T) {
	assert.Panics(t, func() { evaluator.Evaluate(cards(t, "Ac", "Kc", "Qc", "Jc")) })
	assert.Panics(t, func() {
		evaluator.Evaluate(cards(t, "Ac", "Kc", "Qc", "Jc", "Tc", "9c", "8c", "7c"))
	})
}

func TestHighCardComparesAllFiveKickers(t *testing.T) {
	better := evaluator.Evaluate(cards(t, "Ac", "Kd", "9h", "5s", "4c"))
	worse := evaluator.Evaluate(cards(t, "Ac", "Kd", "9h", "5s", "3c"))
	assert.True(t, evaluator.Compare(better, worse) > 0)
}
