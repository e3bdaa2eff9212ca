// Package potmgr partitions the chips committed during a hand into a
// main pot and any side pots forced by differing all-in amounts, then
// distributes each pot to its winners.
package potmgr

import "sort"

// Contributor is the minimal view of a player potmgr needs: how much
// they put into the pot this hand, and whether they're still live for
// it.
type Contributor struct {
	Seat             int
	TotalBetThisHand int
	Folded           bool
}

// Pot is one main or side pot: an amount and the seats entitled to win
// it.
type Pot struct {
	Amount   int
	Eligible []int
	IsMain   bool
}

// ComputeSidePots partitions contributions into pots. Sort active
// contributors ascending by total bet, then walk distinct bet levels:
// each level L (prior level P) forms a pot of (L-P) times the number of
// contributors who reached at least L, eligible to whichever of those
// contributors didn't fold. A folded player's chips still count toward
// the pot amount; they're just excluded from Eligible.
func ComputeSidePots(players []Contributor) []Pot {
	active := make([]Contributor, 0, len(players))
	for _, p := range players {
		if p.TotalBetThisHand > 0 {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil
	}

	levelSet := make(map[int]bool, len(active))
	for _, p := range active {
		levelSet[p.TotalBetThisHand] = true
	}
	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	pots := make([]Pot, 0, len(levels))
	prev := 0
	carry := 0
	for _, level := range levels {
		count := 0
		var eligible []int
		for _, p := range active {
			if p.TotalBetThisHand >= level {
				count++
				if !p.Folded {
					eligible = append(eligible, p.Seat)
				}
			}
		}
		amount := (level-prev)*count + carry
		if len(eligible) > 0 {
			pots = append(pots, Pot{
				Amount:   amount,
				Eligible: eligible,
				IsMain:   len(pots) == 0,
			})
			carry = 0
		} else {
			// Every contributor who reached this level has folded: dead
			// money with no eligible winner at this level. Carry it into
			// the next level that has one instead of dropping it.
			carry = amount
		}
		prev = level
	}
	if carry > 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += carry
	}
	return pots
}

// Distribute pays out every pot to its winners. rankOf gives each
// non-folded player's showdown rank (0 = best, ties share a rank);
// players absent from rankOf are treated as folded. Within a pot, the
// lowest rank present among its eligible seats wins; ties split the pot
// evenly, with any one-chip remainder going to the lowest-numbered seat
// first — an arbitrary but fixed and tested tie-break.
func Distribute(pots []Pot, rankOf map[int]int) map[int]int {
	winnings := make(map[int]int)
	for _, pot := range pots {
		if pot.Amount == 0 {
			continue
		}

		var candidates []int
		bestRank := 0
		haveBest := false
		for _, seat := range pot.Eligible {
			r, ok := rankOf[seat]
			if !ok {
				continue
			}
			switch {
			case !haveBest || r < bestRank:
				bestRank = r
				candidates = []int{seat}
				haveBest = true
			case r == bestRank:
				candidates = append(candidates, seat)
			}
		}

		// no eligible winner survived to showdown for this pot — not
		// reachable under the state machine's invariants, but split
		// evenly across the eligible set rather than losing the chips.
		if len(candidates) == 0 {
			candidates = append(candidates, pot.Eligible...)
		}

		sort.Ints(candidates)
		share := pot.Amount / len(candidates)
		remainder := pot.Amount % len(candidates)
		for i, seat := range candidates {
			amt := share
			if i < remainder {
				amt++
			}
			winnings[seat] += amt
		}
	}
	return winnings
}

// ValidatePots checks the chip-conservation invariant: every chip
// contributed this hand is accounted for in exactly one pot.
func ValidatePots(players []Contributor, pots []Pot) bool {
	total := 0
	for _, p := range players {
		total += p.TotalBetThisHand
	}
	sum := 0
	for _, pot := range pots {
		sum += pot.Amount
	}
	return sum == total
}
