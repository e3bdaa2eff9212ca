package wsserver

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/riverline/holdem-table/internal/table"
	"golang.org/x/sync/errgroup"
)

// Registry is the process-wide table id to room mapping (spec.md §5's
// "only process-wide shared state"). Mutations are serialized under mu;
// the empty-table reaper performs its emptiness check under the same
// lock so a join can never race a reap into removing a table someone
// just sat down at.
type Registry struct {
	clock  quartz.Clock
	logger *log.Logger

	mu     sync.RWMutex
	rooms  map[string]*Room

	reapInterval time.Duration
	reapWorkers  int
	stopped      bool
}

// NewRegistry constructs an empty registry. reapInterval is how often
// the reaper sweeps for empty, waiting_for_players tables to remove.
func NewRegistry(clock quartz.Clock, reapInterval time.Duration, logger *log.Logger) *Registry {
	return &Registry{
		clock:        clock,
		logger:       logger.WithPrefix("registry"),
		rooms:        make(map[string]*Room),
		reapInterval: reapInterval,
		reapWorkers:  4,
	}
}

// Create allocates a new table with the given id and configuration.
func (reg *Registry) Create(id string, cfg table.Config) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room := newRoom(id, cfg, reg.clock, reg.logger)
	reg.rooms[id] = room
	return room
}

// Lookup returns the room for id, if any.
func (reg *Registry) Lookup(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// Remove deletes a table by id.
func (reg *Registry) Remove(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
}

// List renders every table as a summary for list_tables.
func (reg *Registry) List() []TableSummary {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	summaries := make([]TableSummary, len(rooms))
	for i, r := range rooms {
		summaries[i] = r.Summary()
	}
	return summaries
}

// StartReaper schedules the recurring empty-table sweep on the
// registry's clock. It self-reschedules after each sweep rather than
// using a ticker, so Stop can cut it off cleanly between runs.
func (reg *Registry) StartReaper() {
	if reg.reapInterval <= 0 {
		return
	}
	reg.clock.AfterFunc(reg.reapInterval, reg.reapOnce)
}

// Stop halts the reaper; in-flight sweeps still complete.
func (reg *Registry) Stop() {
	reg.mu.Lock()
	reg.stopped = true
	reg.mu.Unlock()
}

func (reg *Registry) reapOnce() {
	reg.mu.RLock()
	stopped := reg.stopped
	reg.mu.RUnlock()
	if stopped {
		return
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(reg.reapWorkers)

	reg.mu.Lock()
	candidates := make([]string, 0, len(reg.rooms))
	for id, room := range reg.rooms {
		if room.IsEmpty() {
			candidates = append(candidates, id)
		}
	}
	for _, id := range candidates {
		delete(reg.rooms, id)
	}
	reg.mu.Unlock()

	for _, id := range candidates {
		id := id
		g.Go(func() error {
			reg.logger.Info("reaped empty table", "table_id", id)
			return nil
		})
	}
	_ = g.Wait()

	reg.clock.AfterFunc(reg.reapInterval, reg.reapOnce)
}
