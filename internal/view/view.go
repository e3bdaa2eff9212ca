// Package view sanitizes authoritative table state into a per-observer
// projection, hiding information the observer isn't entitled to see.
package view

import (
	"github.com/riverline/holdem-table/internal/deck"
	"github.com/riverline/holdem-table/internal/evaluator"
	"github.com/riverline/holdem-table/internal/table"
)

// SeatView is one seat as a given observer is allowed to see it. For
// any seat other than the observer's own, HoleCards is always nil;
// HoldsCards reports only whether the seat has cards without revealing
// them.
type SeatView struct {
	Occupied   bool
	PlayerID   string
	Name       string
	Chips      int
	CurrentBet int
	Folded     bool
	AllIn      bool
	IsDealer   bool
	IsSmallBlind bool
	IsBigBlind bool
	HoldsCards bool
	HoleCards  []deck.Card // populated only for the observer's own seat
}

// WinnerView is one showdown or fold-win payout as shown to any
// observer. BestFive and Category are zero unless WentToShowdown, so a
// fold win never leaks a hand nobody revealed.
type WinnerView struct {
	Seat           int
	PlayerID       string
	Amount         int
	WentToShowdown bool
	Category       evaluator.Category
	BestFive       []deck.Card
}

// TableView is the sanitized projection of table.TableState delivered
// to one observer.
type TableView struct {
	ID      string
	HandNum int
	Stage   string

	Seats []SeatView
	Board []deck.Card

	DealerSeat     int
	SmallBlindSeat int
	BigBlindSeat   int
	CurrentSeat    int

	Pots []table.PotView

	SmallBlind   int
	BigBlind     int
	MaxPlayers   int
	IsHandActive bool

	Winners []WinnerView
}

// Sanitize projects state for observerID. It is a pure function: the
// same (state, observerID) pair always yields an identical view, and
// state is never mutated.
func Sanitize(state table.TableState, observerID string) TableView {
	seats := make([]SeatView, len(state.Seats))
	for i, p := range state.Seats {
		if p == nil {
			continue
		}
		sv := SeatView{
			Occupied:     true,
			PlayerID:     p.ID,
			Name:         p.Name,
			Chips:        p.Chips,
			CurrentBet:   p.CurrentBet,
			Folded:       p.Folded,
			AllIn:        p.AllIn,
			IsDealer:     p.IsDealer,
			IsSmallBlind: p.IsSmallBlind,
			IsBigBlind:   p.IsBigBlind,
			HoldsCards:   len(p.HoleCards) > 0,
		}
		if p.ID == observerID {
			sv.HoleCards = append([]deck.Card(nil), p.HoleCards...)
		}
		seats[i] = sv
	}

	winners := make([]WinnerView, 0, len(state.Winners))
	for _, w := range state.Winners {
		wv := WinnerView{
			Seat:           w.Seat,
			PlayerID:       w.PlayerID,
			Amount:         w.Amount,
			WentToShowdown: w.WentToShowdown,
		}
		if w.WentToShowdown {
			wv.Category = w.Category
			wv.BestFive = append([]deck.Card(nil), w.BestFive...)
		}
		winners = append(winners, wv)
	}

	return TableView{
		ID:             state.ID,
		HandNum:        state.HandNum,
		Stage:          state.Stage.String(),
		Seats:          seats,
		Board:          append([]deck.Card(nil), state.Board...),
		DealerSeat:     state.DealerSeat,
		SmallBlindSeat: state.SmallBlindSeat,
		BigBlindSeat:   state.BigBlindSeat,
		CurrentSeat:    state.CurrentSeat,
		Pots:           append([]table.PotView(nil), state.Pots...),
		SmallBlind:     state.SmallBlind,
		BigBlind:       state.BigBlind,
		MaxPlayers:     state.MaxPlayers,
		IsHandActive:   state.IsHandActive,
		Winners:        winners,
	}
}
