// Package reclaim provides a page reclamation collaborator for phys.Manager.
//
// A Daemon holds a set of resident pages standing in for reclaimable memory
// (page cache, idle anonymous memory). When asked to reclaim it evicts a
// batch of randomly chosen residents back to the manager on a background
// goroutine, so RequestReclaim never blocks its caller.
package reclaim

import (
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/pglist/internal/logger"
	"github.com/joshuapare/pglist/phys"
)

const defaultBatch = 16

// Config controls eviction behavior.
type Config struct {
	// Batch is the number of pages evicted per pass.
	// Default: 16
	Batch int

	// Seed seeds victim selection. Equal seeds give equal eviction orders
	// for equal request sequences.
	// Default: 1
	Seed int64

	// Logger receives pass diagnostics.
	// Default: logger.L
	Logger *slog.Logger
}

// Stats holds daemon counters.
type Stats struct {
	Requests uint64 // RequestReclaim calls
	Passes   uint64 // eviction passes run
	Evicted  uint64 // pages returned to the manager
	Resident int    // pages currently held
}

// Daemon is a phys.Reclaimer backed by a resident page set.
type Daemon struct {
	m     *phys.Manager
	batch int
	log   *slog.Logger

	mu       sync.Mutex
	resident []*phys.Page
	rng      *rand.Rand

	count   atomic.Int64
	pending atomic.Bool
	running atomic.Bool
	wg      sync.WaitGroup

	requests atomic.Uint64
	passes   atomic.Uint64
	evicted  atomic.Uint64
}

var _ phys.Reclaimer = (*Daemon)(nil)

// New creates a daemon that frees evicted pages into m.
// It does not install itself; call m.SetReclaimer.
func New(m *phys.Manager, cfg *Config) *Daemon {
	if cfg == nil {
		cfg = &Config{}
	}
	batch := cfg.Batch
	if batch <= 0 {
		batch = defaultBatch
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return &Daemon{
		m:     m,
		batch: batch,
		log:   logger.Or(cfg.Logger),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Adopt makes Owned pages resident, so they may be evicted later.
func (d *Daemon) Adopt(pages ...*phys.Page) {
	d.mu.Lock()
	d.resident = append(d.resident, pages...)
	d.count.Add(int64(len(pages)))
	d.mu.Unlock()
}

// Populate claims up to n free pages from the manager without blocking and
// makes them resident. It returns the number adopted.
func (d *Daemon) Populate(n int) int {
	got := make([]*phys.Page, 0, n)
	for range n {
		p, ok := d.m.TryAllocOne()
		if !ok {
			break
		}
		got = append(got, p)
	}
	d.Adopt(got...)
	return len(got)
}

// RequestReclaim schedules an eviction pass. It never blocks.
func (d *Daemon) RequestReclaim() {
	d.requests.Add(1)
	d.pending.Store(true)
	if d.running.CompareAndSwap(false, true) {
		d.wg.Add(1)
		go d.run()
	}
}

// MoreReclaimable reports whether any resident page remains.
func (d *Daemon) MoreReclaimable() bool {
	return d.count.Load() > 0
}

// Resident returns the number of resident pages.
func (d *Daemon) Resident() int {
	return int(d.count.Load())
}

// Wait blocks until no eviction pass is in flight.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Stats returns a snapshot of the daemon counters.
func (d *Daemon) Stats() Stats {
	return Stats{
		Requests: d.requests.Load(),
		Passes:   d.passes.Load(),
		Evicted:  d.evicted.Load(),
		Resident: d.Resident(),
	}
}

func (d *Daemon) run() {
	defer d.wg.Done()
	for {
		for d.pending.Swap(false) {
			d.pass()
		}
		d.running.Store(false)
		d.m.Wakeup()

		// A request may have landed after the last pending check but
		// before running was cleared.
		if !d.pending.Load() || !d.running.CompareAndSwap(false, true) {
			return
		}
	}
}

// pass evicts one batch. Victims are picked under d.mu and freed after it is
// released, since the manager lock is taken by FreeOne. count drops only once
// a victim is free, so MoreReclaimable stays true while pages are in transit.
func (d *Daemon) pass() {
	victims := d.pickVictims()
	for _, p := range victims {
		d.m.FreeOne(p)
		d.count.Add(-1)
	}
	d.passes.Add(1)
	d.evicted.Add(uint64(len(victims)))
	d.log.Debug("reclaim: pass", "evicted", len(victims), "resident", d.Resident())
}

func (d *Daemon) pickVictims() []*phys.Page {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := min(d.batch, len(d.resident))
	victims := make([]*phys.Page, 0, n)
	for range n {
		i := d.rng.Intn(len(d.resident))
		last := len(d.resident) - 1
		victims = append(victims, d.resident[i])
		d.resident[i] = d.resident[last]
		d.resident[last] = nil
		d.resident = d.resident[:last]
	}
	return victims
}
