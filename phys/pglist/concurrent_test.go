package pglist

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/pglist/phys"
	"github.com/joshuapare/pglist/phys/reclaim"
	"github.com/joshuapare/pglist/phys/verify"
)

// owners records which worker holds each page, failing on a double claim.
type owners struct {
	mu sync.Mutex
	by map[phys.Addr]int
}

func (o *owners) claim(worker int, list phys.PageList) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range list {
		if w, held := o.by[p.Addr()]; held {
			return errors.Newf("page %s handed to worker %d while held by %d", p.Addr(), worker, w)
		}
		o.by[p.Addr()] = worker
	}
	return nil
}

func (o *owners) release(list phys.PageList) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range list {
		delete(o.by, p.Addr())
	}
}

func randomRequest(rng *rand.Rand, blocking bool) Request {
	pages := uint64(1 + rng.Intn(6))
	req := Request{
		Size:       pages * ps,
		Alignment:  ps << rng.Intn(3),
		MaxExtents: rng.Intn(8),
		Blocking:   blocking,
	}
	if rng.Intn(3) == 0 {
		req.Boundary = 0x8000
	}
	return req
}

func runWorkers(t *testing.T, a *Allocator, workers, rounds int, blocking bool) {
	t.Helper()
	own := &owners{by: make(map[phys.Addr]int)}

	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(w)))
			var held []phys.PageList
			for range rounds {
				list, err := a.Alloc(randomRequest(rng, blocking))
				if errors.Is(err, ErrOutOfMemory) {
					if len(held) > 0 {
						own.release(held[0])
						a.Release(held[0])
						held = held[1:]
					}
					continue
				}
				if err != nil {
					return err
				}
				if err := own.claim(w, list); err != nil {
					return err
				}
				held = append(held, list)
				if len(held) > 3 {
					own.release(held[0])
					a.Release(held[0])
					held = held[1:]
				}
			}
			for _, list := range held {
				own.release(list)
				a.Release(list)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func Test_Alloc_ConcurrentFastPath(t *testing.T) {
	a, m := newTestAllocatorRegions(t, []phys.Region{
		{Start: 0, End: 0x40000},
		{Start: 0x100000, End: 0x120000, Class: phys.ClassFirst16M},
	}, nil)
	total := m.FreeCount()

	runWorkers(t, a, 8, 200, false)

	require.Equal(t, total, m.FreeCount())
	require.NoError(t, verify.Manager(m))
	st := a.Stats()
	require.Equal(t, st.PagesAllocated, st.PagesReleased)
}

func Test_Alloc_ConcurrentWithReclaim(t *testing.T) {
	a, m := newTestAllocator(t, 64, nil)
	d := reclaim.New(m, &reclaim.Config{Batch: 8, Seed: 11})
	m.SetReclaimer(d)
	require.Equal(t, 48, d.Populate(48))

	runWorkers(t, a, 4, 50, true)
	d.Wait()

	require.Equal(t, 64, m.FreeCount()+d.Resident())
	require.NoError(t, verify.Manager(m))
}
