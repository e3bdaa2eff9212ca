package wsserver

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/riverline/holdem-table/internal/betting"
	"github.com/riverline/holdem-table/internal/deck"
	"github.com/riverline/holdem-table/internal/table"
	"github.com/riverline/holdem-table/internal/view"
)

// Room owns one table plus the set of connections watching or seated at
// it. It bridges the table's two callbacks (state change, action
// request) to sanitized broadcasts over the room's connections, and
// routes inbound requests from a Connection into table method calls.
type Room struct {
	id     string
	tbl    *table.Table
	logger *log.Logger

	mu         sync.RWMutex
	seated     map[string]*Connection // playerID -> connection
	spectators map[*Connection]bool

	prevStage      table.Stage
	prevHandNum    int
	lastActionAt   time.Time
	currentActions []betting.ActionRecord

	// lastSeats mirrors the most recent broadcast state's seating, so
	// onActionRequest can map a seat to a player id without calling back
	// into the table — its callback fires with the table's mutex held.
	lastSeats []*table.Player

	// lastHistory retains the most recently completed hand's action log.
	// Persisting these to disk is explicitly out of scope; this only
	// keeps the last one in memory for a caller to inspect.
	lastHistory []betting.ActionRecord
}

func newRoom(id string, cfg table.Config, clock quartz.Clock, logger *log.Logger) *Room {
	r := &Room{
		id:         id,
		logger:     logger.WithPrefix("room").With("table_id", id),
		seated:     make(map[string]*Connection),
		spectators: make(map[*Connection]bool),
		prevStage:  table.WaitingForPlayers,
	}
	r.tbl = table.New(id, cfg, clock, deck.CryptoSource{}, r.onStateChange, r.onActionRequest)
	return r
}

// IsEmpty reports whether the room has no connections at all, seated or
// spectating, and no hand in progress. The reaper only removes rooms
// that are both empty and waiting_for_players (§5).
func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	noConnections := len(r.seated) == 0 && len(r.spectators) == 0
	r.mu.RUnlock()
	if !noConnections {
		return false
	}
	return r.tbl.State().Stage == table.WaitingForPlayers
}

// Join seats or spectates conn at this room. A successful seated join
// broadcasts player_joined to the room; a spectator join broadcasts the
// current table_state instead.
func (r *Room) Join(conn *Connection, name string, spectate bool) (playerID string, seat int, err error) {
	playerID = uuid.NewString()

	if spectate {
		r.mu.Lock()
		r.spectators[conn] = true
		r.mu.Unlock()
		conn.setPlayer(playerID)
		conn.setTable(r.id)
		r.broadcastState(r.tbl.State())
		return playerID, -1, nil
	}

	seat, err = r.tbl.AddPlayer(playerID, name)
	if err != nil {
		return "", 0, err
	}

	r.mu.Lock()
	r.seated[playerID] = conn
	r.mu.Unlock()
	conn.setPlayer(playerID)
	conn.setTable(r.id)

	r.broadcast(MessagePlayerJoined, PlayerJoinedData{PlayerID: playerID, Name: name, Seat: seat})
	return playerID, seat, nil
}

// Leave removes playerID from the table (or drops a spectator) and
// broadcasts player_left. Called both for an explicit leave_table
// request and for a detected disconnect — the two are handled
// identically per spec.md §7.
func (r *Room) Leave(conn *Connection) error {
	playerID := conn.getPlayer()

	r.mu.Lock()
	if r.spectators[conn] {
		delete(r.spectators, conn)
		r.mu.Unlock()
		return nil
	}
	_, wasSeated := r.seated[playerID]
	delete(r.seated, playerID)
	r.mu.Unlock()

	if !wasSeated {
		return table.ErrNotSeated
	}

	if err := r.tbl.RemovePlayer(playerID); err != nil {
		return err
	}
	r.broadcast(MessagePlayerLeft, PlayerLeftData{PlayerID: playerID})
	return nil
}

// Act applies a betting decision on behalf of playerID.
func (r *Room) Act(playerID string, action betting.Action, amount int) error {
	return r.tbl.ProcessAction(playerID, action, amount)
}

// Chat broadcasts a chat message to everyone in the room.
func (r *Room) Chat(playerID, message string) {
	r.broadcast(MessageChatNew, ChatNewData{PlayerID: playerID, Message: message, Timestamp: time.Now()})
}

// onStateChange is invoked by the table with its mutex held; it must
// stay quick and must never call back into the table.
func (r *Room) onStateChange(state table.TableState) {
	handJustEnded := state.Stage == table.Payouts && r.prevStage != table.Payouts
	streetChanged := (state.Stage == table.Flop || state.Stage == table.Turn || state.Stage == table.River) &&
		state.Stage != r.prevStage
	newAction := state.LastAction != nil && !state.LastAction.Timestamp.Equal(r.lastActionAt)

	r.mu.Lock()
	if state.HandNum != r.prevHandNum {
		r.currentActions = nil
		r.prevHandNum = state.HandNum
	}
	if newAction {
		r.currentActions = append(r.currentActions, betting.ActionRecord{
			Seat: state.LastAction.Seat, Action: state.LastAction.Action, Amount: state.LastAction.Amount,
		})
		r.lastActionAt = state.LastAction.Timestamp
	}
	if handJustEnded {
		r.lastHistory = append([]betting.ActionRecord(nil), r.currentActions...)
	}
	r.prevStage = state.Stage
	r.lastSeats = state.Seats
	r.mu.Unlock()

	r.broadcastState(state)

	if streetChanged {
		r.broadcast(MessageHandStage, HandStageData{Stage: state.Stage.String(), CommunityCards: cardsToWire(state.Board)})
	}
	if handJustEnded && len(state.Winners) > 0 {
		views := make([]view.WinnerView, len(state.Winners))
		for i, w := range state.Winners {
			views[i] = view.WinnerView{
				Seat: w.Seat, PlayerID: w.PlayerID, Amount: w.Amount,
				WentToShowdown: w.WentToShowdown, Category: w.Category, BestFive: w.BestFive,
			}
		}
		r.broadcast(MessageHandShowdown, HandShowdownData{Winners: winnersToWire(views)})
	}
	if newAction {
		r.broadcast(MessageActionResult, ActionResultData{
			PlayerID: state.LastAction.PlayerID, Action: state.LastAction.Action.String(),
			Amount: state.LastAction.Amount, Timestamp: state.LastAction.Timestamp,
		})
	}
	r.broadcast(MessagePotUpdate, potsToWire(state, state.Pots))
}

// HandHistory returns the action log of the most recently completed
// hand, or nil if none has completed yet.
func (r *Room) HandHistory() []betting.ActionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]betting.ActionRecord(nil), r.lastHistory...)
}

// onActionRequest is invoked by the table with its mutex held, same as
// onStateChange, and must not call back into the table.
func (r *Room) onActionRequest(seat int, opts betting.Options, timeLeft time.Duration) {
	r.mu.RLock()
	seats := r.lastSeats
	r.mu.RUnlock()

	if seat < 0 || seat >= len(seats) || seats[seat] == nil {
		return
	}
	r.broadcast(MessageActionRequest, actionRequestToWire(seats[seat].ID, opts, timeLeft))
}

func (r *Room) broadcastState(state table.TableState) {
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.seated)+len(r.spectators))
	for _, c := range r.seated {
		targets = append(targets, c)
	}
	for c := range r.spectators {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		v := view.Sanitize(state, conn.getPlayer())
		msg, err := NewMessage(MessageTableState, v)
		if err != nil {
			r.logger.Error("failed to encode table_state", "error", err)
			continue
		}
		_ = conn.SendMessage(msg)
	}
}

func (r *Room) broadcast(t MessageType, data interface{}) {
	msg, err := NewMessage(t, data)
	if err != nil {
		r.logger.Error("failed to encode message", "type", t, "error", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.seated {
		_ = c.SendMessage(msg)
	}
	for c := range r.spectators {
		_ = c.SendMessage(msg)
	}
}

// Summary renders the room as a TableSummary for list_tables.
func (r *Room) Summary() TableSummary {
	state := r.tbl.State()
	count := 0
	for _, p := range state.Seats {
		if p != nil {
			count++
		}
	}
	return TableSummary{
		ID: r.id, PlayerCount: count, MaxPlayers: state.MaxPlayers,
		SmallBlind: state.SmallBlind, BigBlind: state.BigBlind,
	}
}
