package table

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/riverline/holdem-table/internal/betting"
	"github.com/riverline/holdem-table/internal/deck"
	"github.com/rs/zerolog"
)

// StateChangeFunc is invoked with a fresh snapshot after any
// authoritative change worth broadcasting. Implementations must not
// call back into the Table synchronously from within it — queue work
// instead.
type StateChangeFunc func(TableState)

// ActionRequestFunc is invoked when a new seat becomes current-to-act.
type ActionRequestFunc func(seat int, opts betting.Options, timeLeft time.Duration)

// Table is one hand's worth of authoritative state plus the machinery
// to advance it. All exported methods acquire mu, so callers may treat
// them as the table's single-threaded owner boundary (spec.md's
// "mutex around a small set of entry points" model, chosen here over a
// goroutine-and-mailbox actor because it keeps the whole state machine
// synchronously testable without a scheduler in the loop).
type Table struct {
	mu sync.Mutex

	id  string
	cfg Config

	clock    quartz.Clock
	shuffler deck.Shuffler
	logger   zerolog.Logger

	onStateChange   StateChangeFunc
	onActionRequest ActionRequestFunc

	seats []*Player
	deckC *deck.Deck

	stage   Stage
	board   []deck.Card
	handNum int

	dealerSeat, sbSeat, bbSeat, currentSeat int
	round                                   *betting.Round
	isHandActive                            bool
	lastAction                              *ActionResult
	winners                                 []WinnerResult

	actionTimer    *quartz.Timer
	actionTimerGen int
	delayTimer     *quartz.Timer
}

// New constructs an idle table in waiting_for_players. shuffler seeds
// every hand's shuffle; production tables pass deck.CryptoSource{},
// tests pass a seeded math/rand.Rand for reproducibility.
func New(id string, cfg Config, clock quartz.Clock, shuffler deck.Shuffler, onStateChange StateChangeFunc, onActionRequest ActionRequestFunc) *Table {
	t := &Table{
		id:              id,
		cfg:             cfg,
		clock:           clock,
		shuffler:        shuffler,
		logger:          zerolog.Nop(),
		onStateChange:   onStateChange,
		onActionRequest: onActionRequest,
		seats:           make([]*Player, cfg.MaxPlayers),
		deckC:           deck.New(),
		stage:           WaitingForPlayers,
		dealerSeat:      -1,
		sbSeat:          -1,
		bbSeat:          -1,
		currentSeat:     -1,
	}
	return t
}

// WithLogger attaches a structured logger. A table built with New and
// no WithLogger call logs to zerolog.Nop.
func (t *Table) WithLogger(logger zerolog.Logger) *Table {
	t.logger = logger.With().Str("table_id", t.id).Logger()
	return t
}

// ID returns the table's identifier.
func (t *Table) ID() string { return t.id }

// State returns a fresh snapshot of the table's current authoritative
// state, for callers that need it outside of the onStateChange stream
// (e.g. a table listing or an emptiness check). It takes the table's
// mutex, so it must not be called from inside either callback.
func (t *Table) State() TableState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// UseDeck swaps in a specific deck, typically one built with
// deck.NewPrearranged, so a test can dictate exact hole and community
// cards for a hand that hasn't started yet. Not for production use.
func (t *Table) UseDeck(d *deck.Deck) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deckC = d
}

// AddPlayer seats a new player with the table's configured starting
// stack. It starts a hand automatically once at least two are seated
// and none is currently in progress.
func (t *Table) AddPlayer(id, name string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.seats {
		if p != nil && p.ID == id {
			return 0, ErrAlreadySeated
		}
	}

	seat := -1
	for i, p := range t.seats {
		if p == nil {
			seat = i
			break
		}
	}
	if seat == -1 {
		return 0, ErrTableFull
	}

	t.seats[seat] = &Player{
		Player: betting.Player{Seat: seat, Chips: t.cfg.StartingStack},
		ID:     id,
		Name:   name,
	}
	t.logger.Info().Str("player_id", id).Int("seat", seat).Msg("player joined")

	t.emitStateChange()
	t.maybeStartHand()
	return seat, nil
}

// RemovePlayer removes a seated player, per spec.md's mid-hand leave
// rules: the seat empties immediately; if they were to act, action
// advances; if they held a dealer/blind marker, it's reassigned to the
// next occupied seat but the hand continues; their chips already
// committed stay in the pot but are no longer eligible for it.
func (t *Table) RemovePlayer(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	seat, p := t.findByID(id)
	if p == nil {
		return ErrNotSeated
	}

	wasCurrent := t.isHandActive && t.currentSeat == seat
	wasDealer, wasSB, wasBB := p.IsDealer, p.IsSmallBlind, p.IsBigBlind

	// folding them keeps their totalBetThisHand in the pot while
	// removing them from any further eligibility, exactly matching a
	// player who folded and then disconnected.
	if t.isHandActive {
		p.Folded = true
	}
	t.seats[seat] = nil
	t.cancelActionTimer()

	if t.isHandActive {
		if wasDealer {
			t.dealerSeat = t.nextOccupiedSeat(seat)
		}
		if wasSB {
			t.sbSeat = t.nextOccupiedSeat(seat)
		}
		if wasBB {
			t.bbSeat = t.nextOccupiedSeat(seat)
		}

		if wasCurrent {
			t.currentSeat = -1
			t.advanceOrProgress(seat)
		} else {
			t.checkHandProgress()
		}
	}

	t.emitStateChange()

	if !t.isHandActive {
		t.maybeStartHand()
	}
	return nil
}

func (t *Table) findByID(id string) (int, *Player) {
	for i, p := range t.seats {
		if p != nil && p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (t *Table) occupiedSeats() []int {
	var out []int
	for i, p := range t.seats {
		if p != nil {
			out = append(out, i)
		}
	}
	return out
}

func (t *Table) occupiedCount() int {
	n := 0
	for _, p := range t.seats {
		if p != nil {
			n++
		}
	}
	return n
}

// nextOccupiedSeat returns the next occupied seat clockwise after from,
// not including from itself.
func (t *Table) nextOccupiedSeat(from int) int {
	n := len(t.seats)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if t.seats[idx] != nil {
			return idx
		}
	}
	return -1
}

// bettingPlayers builds a seat-indexed view for the betting package,
// with nil entries for empty seats.
func (t *Table) bettingPlayers() []*betting.Player {
	out := make([]*betting.Player, len(t.seats))
	for i, p := range t.seats {
		if p != nil {
			out[i] = &p.Player
		}
	}
	return out
}

func (t *Table) nonFoldedCount() int {
	n := 0
	for _, p := range t.seats {
		if p != nil && !p.Folded {
			n++
		}
	}
	return n
}

func (t *Table) allNonFoldedAllIn() bool {
	any := false
	for _, p := range t.seats {
		if p == nil || p.Folded {
			continue
		}
		any = true
		if !p.AllIn {
			return false
		}
	}
	return any
}

// snapshot builds an immutable copy of the current state for broadcast.
func (t *Table) snapshot() TableState {
	seatsCopy := make([]*Player, len(t.seats))
	for i, p := range t.seats {
		if p == nil {
			continue
		}
		cp := *p
		cp.HoleCards = append([]deck.Card(nil), p.HoleCards...)
		seatsCopy[i] = &cp
	}

	boardCopy := append([]deck.Card(nil), t.board...)

	var pots []PotView
	for _, pot := range t.computePots() {
		pots = append(pots, PotView{Amount: pot.Amount, Eligible: pot.Eligible, IsMain: pot.IsMain})
	}

	var roundCopy *betting.Round
	if t.round != nil {
		r := *t.round
		roundCopy = &r
	}

	return TableState{
		ID:             t.id,
		HandNum:        t.handNum,
		Stage:          t.stage,
		Seats:          seatsCopy,
		Board:          boardCopy,
		DealerSeat:     t.dealerSeat,
		SmallBlindSeat: t.sbSeat,
		BigBlindSeat:   t.bbSeat,
		CurrentSeat:    t.currentSeat,
		Round:          roundCopy,
		Pots:           pots,
		SmallBlind:     t.cfg.SmallBlind,
		BigBlind:       t.cfg.BigBlind,
		MaxPlayers:     t.cfg.MaxPlayers,
		IsHandActive:   t.isHandActive,
		LastAction:     t.lastAction,
		Winners:        append([]WinnerResult(nil), t.winners...),
	}
}

func (t *Table) emitStateChange() {
	if t.onStateChange != nil {
		t.onStateChange(t.snapshot())
	}
}

func (t *Table) emitActionRequest(seat int) {
	if t.onActionRequest == nil || seat < 0 {
		return
	}
	p := t.seats[seat]
	if p == nil {
		return
	}
	opts := betting.GetBettingOptions(&p.Player, t.round, t.cfg.BigBlind)
	t.onActionRequest(seat, opts, t.cfg.ActionTimeout)
}
