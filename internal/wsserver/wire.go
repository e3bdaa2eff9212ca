package wsserver

import (
	"time"

	"github.com/riverline/holdem-table/internal/betting"
	"github.com/riverline/holdem-table/internal/deck"
	"github.com/riverline/holdem-table/internal/table"
	"github.com/riverline/holdem-table/internal/view"
)

func cardsToWire(cards []deck.Card) []CardWire {
	out := make([]CardWire, len(cards))
	for i, c := range cards {
		out[i] = CardWire(c.String())
	}
	return out
}

// potsToWire renders pots against state's seat-to-player mapping. A seat
// that has since emptied (a mid-hand leave) contributed chips but is no
// longer represented by a live player, so it's simply omitted from the
// eligible list rather than reported as an unresolvable id.
func potsToWire(state table.TableState, pots []table.PotView) PotUpdateData {
	data := PotUpdateData{SidePots: make([]PotWireView, 0, len(pots))}
	for _, p := range pots {
		wire := PotWireView{Amount: p.Amount, IsMain: p.IsMain}
		for _, seat := range p.Eligible {
			if seat >= 0 && seat < len(state.Seats) && state.Seats[seat] != nil {
				wire.Eligible = append(wire.Eligible, state.Seats[seat].ID)
			}
		}
		data.TotalPot += p.Amount
		if p.IsMain {
			data.MainPot = p.Amount
		} else {
			data.SidePots = append(data.SidePots, wire)
		}
	}
	return data
}

func winnersToWire(winners []view.WinnerView) []WinnerData {
	out := make([]WinnerData, len(winners))
	for i, w := range winners {
		wd := WinnerData{
			PlayerID:       w.PlayerID,
			Amount:         w.Amount,
			WentToShowdown: w.WentToShowdown,
		}
		if w.WentToShowdown {
			wd.HandRank = w.Category.String()
			wd.BestFive = cardsToWire(w.BestFive)
		} else {
			wd.HandRank = "fold"
		}
		out[i] = wd
	}
	return out
}

func actionRequestToWire(playerID string, opts betting.Options, timeLeft time.Duration) ActionRequestData {
	return ActionRequestData{
		PlayerID:   playerID,
		MinBet:     opts.MinBet,
		MinRaise:   opts.MinRaise,
		MaxBet:     opts.MaxBet,
		CanCheck:   opts.CanCheck,
		CanCall:    opts.CanCall,
		CanBet:     opts.CanBet,
		CanRaise:   opts.CanRaise,
		CallAmount: opts.ToCall,
		TimeLeftMs: timeLeft.Milliseconds(),
	}
}
