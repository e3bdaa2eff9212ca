// Package evaluator ranks 5-to-7 card poker hands: it produces a
// category, a totally ordered comparison value, and the best five cards
// that make up that ranking.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/riverline/holdem-table/internal/deck"
)

// Category is one of the ten hand categories, ordered ascending by
// strength so that Category values themselves compare correctly.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "high-card"
	case Pair:
		return "pair"
	case TwoPair:
		return "two-pair"
	case ThreeOfAKind:
		return "three-of-a-kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full-house"
	case FourOfAKind:
		return "four-of-a-kind"
	case StraightFlush:
		return "straight-flush"
	case RoyalFlush:
		return "royal-flush"
	default:
		return "unknown"
	}
}

// tierSize spaces category bases far enough apart that no encoding can
// ever cross into the next tier: the largest possible encode() result
// (5 digits, base digitBase, max digit value 14) is 15^5-1 = 759374.
const tierSize = 1_000_000

// digitBase must exceed the highest rank value (Ace=14) so that ranks
// used as digits never carry into the next position.
const digitBase = 15

// Result is the outcome of evaluating a hand.
type Result struct {
	Category Category
	Value    int
	BestFive []deck.Card
}

// Compare returns a positive number if a beats b, negative if b beats a,
// and exactly 0 on a tie. It is a straight integer subtraction, per
// spec.md §4.2.
func Compare(a, b Result) int {
	return a.Value - b.Value
}

// Evaluate ranks 5 to 7 cards. Fewer than 5 or more than 7 is a
// programmer error (spec.md §4.2, §7.3): no legal hand ever calls this
// with an out-of-range count.
func Evaluate(cards []deck.Card) Result {
	if len(cards) < 5 || len(cards) > 7 {
		panic(fmt.Sprintf("evaluator: Evaluate requires 5-7 cards, got %d", len(cards)))
	}

	if _, flushCards, ok := findFlush(cards); ok {
		if five, high, ok := findStraight(flushCards); ok {
			cat := StraightFlush
			if high == deck.Ace {
				cat = RoyalFlush
			}
			return Result{Category: cat, Value: base(cat) + encode(int(high)), BestFive: five}
		}
	}

	counts := rankCounts(cards)
	quads, trips, pairs, _ := bucketByCount(counts)

	if len(quads) > 0 {
		quadRank := quads[0]
		kickers := remainingCards(cards, quadRank)
		five := append(cardsOfRank(cards, quadRank), kickers[0])
		return Result{Category: FourOfAKind, Value: base(FourOfAKind) + encode(int(quadRank), int(kickers[0].Rank)), BestFive: five}
	}

	if len(trips) > 0 {
		tripsRank := trips[0]
		pairCandidates := make([]deck.Rank, 0, 2)
		if len(trips) >= 2 {
			pairCandidates = append(pairCandidates, trips[1])
		}
		pairCandidates = append(pairCandidates, pairs...)
		sort.Sort(sort.Reverse(rankSlice(pairCandidates)))
		if len(pairCandidates) > 0 {
			pairRank := pairCandidates[0]
			five := append(cardsOfRank(cards, tripsRank), cardsOfRank(cards, pairRank)[:2]...)
			return Result{Category: FullHouse, Value: base(FullHouse) + encode(int(tripsRank), int(pairRank)), BestFive: five}
		}
	}

	if _, flushCards, ok := findFlush(cards); ok {
		five := topN(flushCards, 5)
		ranks := ranksOf(five)
		return Result{Category: Flush, Value: base(Flush) + encode(ranks...), BestFive: five}
	}

	if five, high, ok := findStraight(cards); ok {
		return Result{Category: Straight, Value: base(Straight) + encode(int(high)), BestFive: five}
	}

	if len(trips) > 0 {
		tripsRank := trips[0]
		kickers := remainingCards(cards, tripsRank)[:2]
		five := append(cardsOfRank(cards, tripsRank), kickers...)
		return Result{Category: ThreeOfAKind, Value: base(ThreeOfAKind) + encode(int(tripsRank), int(kickers[0].Rank), int(kickers[1].Rank)), BestFive: five}
	}

	if len(pairs) >= 2 {
		high, low := pairs[0], pairs[1]
		kicker := remainingCards(cards, high, low)[0]
		five := append(append(cardsOfRank(cards, high), cardsOfRank(cards, low)...), kicker)
		return Result{Category: TwoPair, Value: base(TwoPair) + encode(int(high), int(low), int(kicker.Rank)), BestFive: five}
	}

	if len(pairs) == 1 {
		pairRank := pairs[0]
		kickers := remainingCards(cards, pairRank)[:3]
		five := append(cardsOfRank(cards, pairRank), kickers...)
		return Result{
			Category: Pair,
			Value:    base(Pair) + encode(int(pairRank), int(kickers[0].Rank), int(kickers[1].Rank), int(kickers[2].Rank)),
			BestFive: five,
		}
	}

	five := topN(cards, 5)
	ranks := ranksOf(five)
	return Result{Category: HighCard, Value: base(HighCard) + encode(ranks...), BestFive: five}
}

func base(c Category) int {
	return int(c) * tierSize
}

// encode packs up to five ranks into a single integer, most significant
// first, treating ranks as digits in a base larger than the highest
// rank value so no digit ever carries into the next.
func encode(ranks ...int) int {
	v := 0
	for _, r := range ranks {
		v = v*digitBase + r
	}
	return v
}

func rankCounts(cards []deck.Card) map[deck.Rank]int {
	counts := make(map[deck.Rank]int, len(cards))
	for _, c := range cards {
		counts[c.Rank]++
	}
	return counts
}

// bucketByCount groups ranks by how many cards of that rank are present,
// each bucket sorted descending by rank.
func bucketByCount(counts map[deck.Rank]int) (quads, trips, pairs, singles []deck.Rank) {
	for r, n := range counts {
		switch n {
		case 4:
			quads = append(quads, r)
		case 3:
			trips = append(trips, r)
		case 2:
			pairs = append(pairs, r)
		case 1:
			singles = append(singles, r)
		}
	}
	sort.Sort(sort.Reverse(rankSlice(quads)))
	sort.Sort(sort.Reverse(rankSlice(trips)))
	sort.Sort(sort.Reverse(rankSlice(pairs)))
	sort.Sort(sort.Reverse(rankSlice(singles)))
	return
}

type rankSlice []deck.Rank

func (r rankSlice) Len() int           { return len(r) }
func (r rankSlice) Less(i, j int) bool { return r[i] < r[j] }
func (r rankSlice) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }

// findFlush returns the suit and all cards of that suit if any suit has
// 5 or more cards. All suited cards are retained (not just the top 5)
// because straight-flush detection needs the full suited subset.
func findFlush(cards []deck.Card) (deck.Suit, []deck.Card, bool) {
	bySuit := make(map[deck.Suit][]deck.Card, 4)
	for _, c := range cards {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
	}
	for s, cs := range bySuit {
		if len(cs) >= 5 {
			return s, cs, true
		}
	}
	return 0, nil, false
}

// findStraight looks for 5 consecutive distinct rank values among the
// given cards, trying the highest window first, then the wheel
// (A-2-3-4-5, ace low) as a special case.
func findStraight(cards []deck.Card) ([]deck.Card, deck.Rank, bool) {
	byRank := make(map[deck.Rank]deck.Card, len(cards))
	for _, c := range cards {
		if _, exists := byRank[c.Rank]; !exists {
			byRank[c.Rank] = c
		}
	}

	for high := deck.Ace; high >= deck.Six; high-- {
		five := make([]deck.Card, 0, 5)
		complete := true
		for r := high; r > high-5; r-- {
			c, ok := byRank[r]
			if !ok {
				complete = false
				break
			}
			five = append(five, c)
		}
		if complete {
			return five, high, true
		}
	}

	wheel := []deck.Rank{deck.Ace, deck.Five, deck.Four, deck.Three, deck.Two}
	five := make([]deck.Card, 0, 5)
	for _, r := range wheel {
		c, ok := byRank[r]
		if !ok {
			return nil, 0, false
		}
		five = append(five, c)
	}
	return five, deck.Five, true
}

// cardsOfRank returns every card of the given rank, in the order found.
func cardsOfRank(cards []deck.Card, rank deck.Rank) []deck.Card {
	out := make([]deck.Card, 0, 4)
	for _, c := range cards {
		if c.Rank == rank {
			out = append(out, c)
		}
	}
	return out
}

// remainingCards returns cards whose rank is not in excluded, sorted
// descending by rank — the pool kickers are drawn from.
func remainingCards(cards []deck.Card, excluded ...deck.Rank) []deck.Card {
	excl := make(map[deck.Rank]bool, len(excluded))
	for _, r := range excluded {
		excl[r] = true
	}
	out := make([]deck.Card, 0, len(cards))
	for _, c := range cards {
		if !excl[c.Rank] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank > out[j].Rank })
	return out
}

func topN(cards []deck.Card, n int) []deck.Card {
	sorted := make([]deck.Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank > sorted[j].Rank })
	return sorted[:n]
}

func ranksOf(cards []deck.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = int(c.Rank)
	}
	return out
}
