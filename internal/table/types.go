// Package table implements the per-table hand lifecycle: seating,
// dealer and blind rotation, betting-stage transitions, the action
// timer, and showdown payout. Every mutation is serialized through a
// per-table mutex, so the table's invariants never need to be reasoned
// about across interleavings within one table.
package table

import (
	"errors"
	"time"

	"github.com/riverline/holdem-table/internal/betting"
	"github.com/riverline/holdem-table/internal/deck"
	"github.com/riverline/holdem-table/internal/evaluator"
)

// Stage is one state in the hand lifecycle.
type Stage int

const (
	WaitingForPlayers Stage = iota
	StartingHand
	Preflop
	Flop
	Turn
	River
	Showdown
	Payouts
	HandCleanup
)

func (s Stage) String() string {
	switch s {
	case WaitingForPlayers:
		return "waiting_for_players"
	case StartingHand:
		return "starting_hand"
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case Payouts:
		return "payouts"
	case HandCleanup:
		return "hand_cleanup"
	default:
		return "unknown"
	}
}

// IsActionStage reports whether players can act during this stage.
func (s Stage) IsActionStage() bool {
	return s == Preflop || s == Flop || s == Turn || s == River
}

// Config holds the tunables for one table.
type Config struct {
	MaxPlayers     int
	SmallBlind     int
	BigBlind       int
	StartingStack  int
	ActionTimeout  time.Duration
	PayoutDisplay  time.Duration
	InterHandDelay time.Duration
}

// DefaultConfig returns the standard table configuration.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:     5,
		SmallBlind:     5,
		BigBlind:       10,
		StartingStack:  1000,
		ActionTimeout:  20 * time.Second,
		PayoutDisplay:  3 * time.Second,
		InterHandDelay: 2 * time.Second,
	}
}

// Player is one seated participant. The embedded betting.Player carries
// the wagering-round fields (chips, current bet, folded, all-in,
// acted, last action) that the betting package reads and mutates
// directly; Player adds table-level identity and role flags.
type Player struct {
	betting.Player

	ID           string
	Name         string
	HoleCards    []deck.Card
	IsDealer     bool
	IsSmallBlind bool
	IsBigBlind   bool
}

// ActionResult records one applied action for broadcast and history.
type ActionResult struct {
	Seat      int
	PlayerID  string
	Action    betting.Action
	Amount    int
	Timestamp time.Time
}

// WinnerResult describes one player's share of the pot at showdown.
// WentToShowdown is false for an uncontested fold win, in which case
// Category and BestFive are meaningless and must not be shown.
type WinnerResult struct {
	Seat           int
	PlayerID       string
	Amount         int
	WentToShowdown bool
	Category       evaluator.Category
	BestFive       []deck.Card
}

// TableState is an immutable snapshot of the table's authoritative
// state at one point in time, handed to onStateChange and to the view
// sanitizer. Callers must not mutate it.
type TableState struct {
	ID       string
	HandNum  int
	Stage    Stage
	Seats    []*Player // len == MaxPlayers; nil entries are empty seats
	Board    []deck.Card

	DealerSeat     int
	SmallBlindSeat int
	BigBlindSeat   int
	CurrentSeat    int

	Round *betting.Round
	Pots  []PotView

	SmallBlind    int
	BigBlind      int
	MaxPlayers    int
	IsHandActive  bool

	LastAction *ActionResult
	Winners    []WinnerResult
}

// PotView is a read-only rendering of one pot for broadcast.
type PotView struct {
	Amount   int
	Eligible []int
	IsMain   bool
}

var (
	// ErrTableFull is returned by AddPlayer when no seat is free.
	ErrTableFull = errors.New("table: no open seat")
	// ErrNotSeated is returned when an operation names a player not at
	// the table.
	ErrNotSeated = errors.New("table: player is not seated")
	// ErrAlreadySeated is returned by AddPlayer when the id is already
	// seated at the table.
	ErrAlreadySeated = errors.New("table: player is already seated")
	// ErrNoBettingRound is returned by ProcessAction when no betting
	// stage is open.
	ErrNoBettingRound = errors.New("table: no betting round is open")
	// ErrNotYourTurn is returned when a seat other than the current
	// actor submits an action.
	ErrNotYourTurn = errors.New("table: not your turn")
)
