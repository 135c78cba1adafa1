// Package sim assembles a simulated machine: a segment layout, its free-list
// manager, a reclaim daemon holding cached pages, and an allocator. It also
// provides a concurrent stress runner over that machine.
package sim

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/pglist/internal/logger"
	"github.com/joshuapare/pglist/phys"
	"github.com/joshuapare/pglist/phys/pglist"
	"github.com/joshuapare/pglist/phys/reclaim"
)

// DefaultRegion is used when Config.Regions is empty: 64 KiB at address 0.
var DefaultRegion = phys.Region{Start: 0, End: 0x10000}

// Config describes a simulated machine.
type Config struct {
	// Regions are the physical segments.
	// Default: DefaultRegion
	Regions []phys.Region

	// PageSize in bytes.
	// Default: format.DefaultPageSize
	PageSize uint64

	// Colors per free class.
	// Default: 1
	Colors int

	// Backed maps real memory behind every page.
	Backed bool

	// Cache is the number of pages made resident in the reclaim daemon,
	// so they are reclaimable but not free.
	Cache int

	// Fragment pins every Fragment-th page of each segment (0 disables),
	// breaking up contiguous free runs.
	Fragment int

	// Seed seeds the reclaim daemon.
	// Default: 1
	Seed int64

	// Batch is the daemon eviction batch.
	// Default: 16
	Batch int

	// DisableFallback turns off the allocator's reclaim fallback.
	DisableFallback bool

	// Logger is shared by the daemon and the allocator.
	// Default: logger.L
	Logger *slog.Logger
}

// Machine is a wired simulation.
type Machine struct {
	Layout  *phys.Layout
	Manager *phys.Manager
	Daemon  *reclaim.Daemon
	Alloc   *pglist.Allocator

	pinned phys.PageList
}

// New builds a machine from cfg (nil for defaults).
func New(cfg *Config) (*Machine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Fragment < 0 || cfg.Cache < 0 {
		return nil, errors.Newf("sim: negative fragment %d or cache %d", cfg.Fragment, cfg.Cache)
	}
	regions := cfg.Regions
	if len(regions) == 0 {
		regions = []phys.Region{DefaultRegion}
	}
	log := logger.Or(cfg.Logger)

	l, err := phys.NewLayout(regions, &phys.LayoutConfig{
		PageSize: cfg.PageSize,
		Colors:   cfg.Colors,
		Backed:   cfg.Backed,
	})
	if err != nil {
		return nil, errors.Wrap(err, "sim: build layout")
	}

	m := phys.NewManager(l)
	d := reclaim.New(m, &reclaim.Config{Batch: cfg.Batch, Seed: cfg.Seed, Logger: log})
	m.SetReclaimer(d)

	mc := &Machine{
		Layout:  l,
		Manager: m,
		Daemon:  d,
		Alloc:   pglist.New(m, &pglist.Config{DisableFallback: cfg.DisableFallback, Logger: log}),
	}
	if cfg.Fragment > 0 {
		mc.pinned = Fragment(m, cfg.Fragment)
	}
	cached := d.Populate(cfg.Cache)

	log.Debug("sim: machine ready",
		"segments", len(l.Segments()), "pages", l.TotalPages(),
		"pinned", len(mc.pinned), "cached", cached, "free", m.FreeCount())
	return mc, nil
}

// Fragment pins every every-th page of each segment (the last page of each
// group of every) and returns the pinned pages. Pages that are not free are
// skipped.
func Fragment(m *phys.Manager, every int) phys.PageList {
	if every <= 0 {
		return nil
	}
	var pinned phys.PageList
	m.Lock()
	defer m.Unlock()
	for _, seg := range m.Layout().Segments() {
		for i := every - 1; i < seg.NumPages(); i += every {
			p := seg.Page(i)
			if p.State() != phys.StateFree {
				continue
			}
			m.TakeLocked(p)
			pinned = append(pinned, p)
		}
	}
	return pinned
}

// Pinned returns the pages held by Fragment.
func (mc *Machine) Pinned() phys.PageList { return mc.pinned }

// Accounted returns free, resident and pinned pages. Outside allocations
// and after the daemon is idle it equals Layout.TotalPages.
func (mc *Machine) Accounted() int {
	return mc.Manager.FreeCount() + mc.Daemon.Resident() + len(mc.pinned)
}

// Close waits for the daemon and unmaps backing memory.
func (mc *Machine) Close() error {
	mc.Daemon.Wait()
	return mc.Layout.Close()
}
