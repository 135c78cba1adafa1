package pglist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pglist/phys"
	"github.com/joshuapare/pglist/phys/verify"
)

const ps = 4096

// newTestAllocator builds an allocator over one segment of pages pages at
// physical address 0.
func newTestAllocator(t *testing.T, pages int, cfg *Config) (*Allocator, *phys.Manager) {
	t.Helper()
	return newTestAllocatorRegions(t, []phys.Region{{Start: 0, End: phys.Addr(pages * ps)}}, cfg)
}

func newTestAllocatorRegions(t *testing.T, regions []phys.Region, cfg *Config) (*Allocator, *phys.Manager) {
	t.Helper()
	l, err := phys.NewLayout(regions, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	m := phys.NewManager(l)
	return New(m, cfg), m
}

// occupy claims the pages at the given frame numbers.
func occupy(t *testing.T, m *phys.Manager, frames ...int) phys.PageList {
	t.Helper()
	out := make(phys.PageList, 0, len(frames))
	for _, f := range frames {
		p, err := m.TakeAt(phys.Addr(f * ps))
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

// occupyExcept claims every page of the first segment except the given frames.
func occupyExcept(t *testing.T, m *phys.Manager, keep ...int) phys.PageList {
	t.Helper()
	skip := make(map[int]bool, len(keep))
	for _, f := range keep {
		skip[f] = true
	}
	seg := m.Layout().Segments()[0]
	var frames []int
	for i := range seg.NumPages() {
		f := int(seg.FirstFrame()) + i
		if !skip[f] {
			frames = append(frames, f)
		}
	}
	return occupy(t, m, frames...)
}

func setHint(m *phys.Manager, seg *phys.Segment, hint int) {
	m.Lock()
	seg.SetHint(hint)
	m.Unlock()
}

func frames(list phys.PageList) []uint64 {
	out := make([]uint64, len(list))
	for i, p := range list {
		out[i] = p.Frame()
	}
	return out
}

// requireValid checks list against req and the manager against its
// free-list invariants.
func requireValid(t *testing.T, a *Allocator, m *phys.Manager, list phys.PageList, req Request) {
	t.Helper()
	strat, err := a.StrategyFor(req)
	require.NoError(t, err)
	err = verify.Result(list, verify.Constraints{
		PageSize:  ps,
		Pages:     int((req.Size + ps - 1) / ps),
		Low:       req.Low,
		High:      req.High,
		Alignment: req.Alignment,
		Boundary:  req.Boundary,
		Contig:    strat == StrategyContig,
	})
	require.NoError(t, err)
	require.NoError(t, verify.Manager(m))
}
