package pglist

import (
	"log/slog"
	"math"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/pglist/internal/format"
	"github.com/joshuapare/pglist/internal/logger"
	"github.com/joshuapare/pglist/phys"
)

// Allocator hands out constrained page lists from a phys.Manager.
// It is safe for concurrent use.
type Allocator struct {
	m          *phys.Manager
	pageSize   uint64
	noFallback bool
	log        *slog.Logger

	// fallbackMu serializes reclaim fallback sequences: the Candidate tags
	// and the private page list are only coherent for one sequence at a time.
	fallbackMu sync.Mutex

	stats allocatorStats
}

// New creates an allocator over m.
//
// Parameters:
//   - m: the free-list manager; its Reclaimer (if any) is signaled on failure
//   - cfg: allocator options (use nil for defaults)
func New(m *phys.Manager, cfg *Config) *Allocator {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Allocator{
		m:          m,
		pageSize:   m.Layout().PageSize(),
		noFallback: cfg.DisableFallback,
		log:        logger.Or(cfg.Logger),
	}
}

// Allocate is the positional form of Alloc.
func (a *Allocator) Allocate(
	size uint64,
	low, high phys.Addr,
	alignment, boundary uint64,
	maxExtents int,
	blocking bool,
) (phys.PageList, error) {
	return a.Alloc(Request{
		Size:       size,
		Low:        low,
		High:       high,
		Alignment:  alignment,
		Boundary:   boundary,
		MaxExtents: maxExtents,
		Blocking:   blocking,
	})
}

// Alloc claims ceil(req.Size/PageSize) pages satisfying req. On error nothing
// is claimed.
func (a *Allocator) Alloc(req Request) (phys.PageList, error) {
	a.stats.calls.Add(1)

	c, num, err := a.normalize(req)
	if err != nil {
		a.stats.invalidCalls.Add(1)
		return nil, err
	}

	strat := ChooseStrategy(num, c.align, c.boundary, req.MaxExtents)
	if strat == StrategyContig {
		a.stats.contigCalls.Add(1)
	} else {
		a.stats.simpleCalls.Add(1)
	}

	// No layout can satisfy more pages than it has; reclaim cannot help.
	if total := uint64(a.m.Layout().TotalPages()); num > total {
		a.stats.fastFailures.Add(1)
		return nil, errors.Wrapf(ErrOutOfMemory, "%d pages requested, layout has %d", num, total)
	}

	if list, ok := a.fastPath(num, c, strat); ok {
		a.stats.pagesAllocated.Add(num)
		return list, nil
	}
	a.stats.fastFailures.Add(1)

	if !req.Blocking || a.noFallback {
		if r := a.m.Reclaimer(); r != nil {
			r.RequestReclaim()
		}
		a.log.Debug("pglist: fast path failed",
			"pages", num, "strategy", strat.String(), "low", req.Low, "high", req.High)
		return nil, errors.Wrapf(ErrOutOfMemory, "%d %s pages in [%s-%s)", num, strat, req.Low, req.High)
	}

	list, err := a.aggressive(num, c, strat)
	if err != nil {
		return nil, err
	}
	a.stats.pagesAllocated.Add(num)
	return list, nil
}

// StrategyFor reports the strategy Alloc would use for req.
func (a *Allocator) StrategyFor(req Request) (Strategy, error) {
	c, num, err := a.normalize(req)
	if err != nil {
		return 0, err
	}
	return ChooseStrategy(num, c.align, c.boundary, req.MaxExtents), nil
}

// Release returns every page of list to the manager. Each page must be owned
// by the caller and appear once; list must not be used afterwards.
func (a *Allocator) Release(list phys.PageList) {
	for _, p := range list {
		a.m.FreeOne(p)
	}
	a.stats.pagesReleased.Add(uint64(len(list)))
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	return a.stats.snapshot()
}

// PageSize returns the page size of the managed layout.
func (a *Allocator) PageSize() uint64 { return a.pageSize }

// normalize validates req and converts it to page frames.
func (a *Allocator) normalize(req Request) (constraints, uint64, error) {
	ps := a.pageSize
	switch {
	case req.Size == 0:
		return constraints{}, 0, errors.Wrap(ErrInvalidArgument, "zero size")
	case req.Alignment < ps || !format.IsPow2(req.Alignment):
		return constraints{}, 0, errors.Wrapf(ErrInvalidArgument,
			"alignment %#x must be a power of two >= page size %#x", req.Alignment, ps)
	case req.Boundary != 0 && !format.IsPow2(req.Boundary):
		return constraints{}, 0, errors.Wrapf(ErrInvalidArgument,
			"boundary %#x is not a power of two", req.Boundary)
	}

	num := format.Pages(req.Size, ps)
	if req.Boundary != 0 && req.Boundary/ps < num {
		return constraints{}, 0, errors.Wrapf(ErrInvalidArgument,
			"boundary %#x smaller than %d pages", req.Boundary, num)
	}

	c := constraints{
		low:   format.Pages(uint64(req.Low), ps),
		high:  math.MaxUint64,
		align: req.Alignment / ps,
	}
	if req.High != 0 {
		c.high = format.RoundDown(uint64(req.High), ps) / ps
	}
	if req.Boundary != 0 {
		c.boundary = req.Boundary / ps
	}
	return c, num, nil
}

// segmentSearch claims pages from one segment, appending them to out. It
// returns the number claimed and false if the window misses the segment
// entirely. Caller must hold the manager lock.
type segmentSearch func(seg *phys.Segment, num uint64, c constraints, out *phys.PageList) (uint64, bool)

// fastPath runs the chosen search over every class and segment under one
// hold of the manager lock. On failure every claimed page is given back
// before the lock is dropped.
func (a *Allocator) fastPath(num uint64, c constraints, strat Strategy) (phys.PageList, bool) {
	search := segmentSearch(a.searchSimple)
	if strat == StrategyContig {
		search = a.searchContig
	}

	l := a.m.Layout()
	list := make(phys.PageList, 0, min(num, uint64(l.TotalPages())))
	remaining := num

	a.m.Lock()
	defer a.m.Unlock()

	for _, class := range l.Classes() {
		for _, seg := range l.SegmentsOf(class) {
			n, applicable := search(seg, remaining, c, &list)
			if !applicable {
				continue
			}
			remaining -= n
			if remaining == 0 {
				return list, true
			}
		}
	}

	for _, p := range list {
		a.m.GiveBackLocked(p)
	}
	return nil, false
}
