package pglist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pglist/phys"
	"github.com/joshuapare/pglist/phys/reclaim"
	"github.com/joshuapare/pglist/phys/verify"
)

// residentAllocator makes every page of a fresh layout resident in a reclaim
// daemon, so the fast path always fails and the fallback must reclaim.
func residentAllocator(t *testing.T, pages int, cfg *Config) (*Allocator, *phys.Manager, *reclaim.Daemon) {
	t.Helper()
	a, m := newTestAllocator(t, pages, cfg)
	d := reclaim.New(m, &reclaim.Config{Batch: 4, Seed: 3})
	m.SetReclaimer(d)
	require.Equal(t, pages, d.Populate(pages))
	t.Cleanup(d.Wait)
	return a, m, d
}

func Test_Aggressive_AssemblesRunFromReclaimedPages(t *testing.T) {
	a, m, d := residentAllocator(t, 16, nil)
	req := Request{Size: 4 * ps, Alignment: 4 * ps, MaxExtents: 1, Blocking: true}

	list, err := a.Alloc(req)
	require.NoError(t, err)
	d.Wait()
	requireValid(t, a, m, list, req)

	require.Equal(t, 16, m.FreeCount()+d.Resident()+len(list))
	st := a.Stats()
	require.Equal(t, uint64(1), st.FastFailures)
	require.Equal(t, uint64(1), st.FallbackCalls)
	require.Equal(t, uint64(1), st.FallbackSuccesses)
	require.GreaterOrEqual(t, st.FallbackTried, uint64(4))
}

func Test_Aggressive_SimpleStrategy(t *testing.T) {
	a, m, d := residentAllocator(t, 8, nil)
	req := Request{Size: 3 * ps, Alignment: ps, MaxExtents: 3, Blocking: true}

	list, err := a.Alloc(req)
	require.NoError(t, err)
	d.Wait()
	requireValid(t, a, m, list, req)
	require.Equal(t, 8, m.FreeCount()+d.Resident()+len(list))
}

func Test_Aggressive_RespectsWindow(t *testing.T) {
	a, m, d := residentAllocator(t, 16, nil)
	req := Request{Size: 2 * ps, High: 0x4000, Alignment: ps, MaxExtents: 1, Blocking: true}

	list, err := a.Alloc(req)
	require.NoError(t, err)
	d.Wait()
	requireValid(t, a, m, list, req)
	for _, f := range frames(list) {
		require.Less(t, f, uint64(4))
	}
}

func Test_Aggressive_ExhaustionReturnsPages(t *testing.T) {
	a, m := newTestAllocator(t, 8, nil)
	d := reclaim.New(m, nil)
	m.SetReclaimer(d)
	occupy(t, m, 1, 3, 5, 7)

	_, err := a.Alloc(Request{Size: 2 * ps, Alignment: ps, MaxExtents: 1, Blocking: true})
	require.ErrorIs(t, err, ErrOutOfMemory)
	d.Wait()

	require.Equal(t, 4, m.FreeCount())
	require.NoError(t, verify.Manager(m))
	st := a.Stats()
	require.Equal(t, uint64(1), st.FallbackCalls)
	require.Zero(t, st.FallbackSuccesses)
	require.Equal(t, uint64(4), st.FallbackTried)
}

func Test_Aggressive_UnusedCandidatesFreed(t *testing.T) {
	a, m, d := residentAllocator(t, 32, nil)
	list, err := a.Alloc(Request{Size: 8 * ps, Alignment: 8 * ps, MaxExtents: 1, Blocking: true})
	require.NoError(t, err)
	d.Wait()

	require.NoError(t, verify.Manager(m))
	for _, seg := range m.Layout().Segments() {
		for i := range seg.NumPages() {
			require.NotEqual(t, phys.StateCandidate, seg.Page(i).State())
		}
	}
	a.Release(list)
	require.Equal(t, 32, m.FreeCount()+d.Resident())
}

func Test_Aggressive_DisabledFailsFast(t *testing.T) {
	a, m, d := residentAllocator(t, 8, &Config{DisableFallback: true})

	_, err := a.Alloc(Request{Size: ps, Alignment: ps, MaxExtents: 1, Blocking: true})
	require.ErrorIs(t, err, ErrOutOfMemory)
	d.Wait()

	require.Zero(t, a.Stats().FallbackCalls)
	require.Equal(t, uint64(1), d.Stats().Requests)
	require.Positive(t, m.FreeCount(), "failure still signals reclaim")
}

func Test_Alloc_NonBlockingFailureSignalsReclaim(t *testing.T) {
	a, m, d := residentAllocator(t, 8, nil)
	req := Request{Size: ps, Alignment: ps, MaxExtents: 1}

	_, err := a.Alloc(req)
	require.ErrorIs(t, err, ErrOutOfMemory)
	d.Wait()
	require.Equal(t, uint64(1), d.Stats().Requests)
	require.Equal(t, 4, m.FreeCount())

	list, err := a.Alloc(req)
	require.NoError(t, err, "retry after reclaim")
	require.Len(t, list, 1)
}

func Test_CandidateRun(t *testing.T) {
	unbounded := constraints{high: math.MaxUint64, align: 1}
	tests := []struct {
		name      string
		candidate []int
		last      int
		num       uint64
		c         constraints
		wantStart uint64
		wantOK    bool
	}{
		{"aligned group", []int{4, 5, 6, 7}, 6, 4, constraints{high: math.MaxUint64, align: 4}, 4, true},
		{"unaligned group", []int{2, 3, 4, 5}, 5, 4, constraints{high: math.MaxUint64, align: 4}, 0, false},
		{"grows downward", []int{0, 1, 2, 3, 4, 5, 6, 7}, 3, 4, unbounded, 0, true},
		{"stops at gap", []int{0, 2, 3, 4, 5}, 3, 3, unbounded, 2, true},
		{"extends upward", []int{3, 4, 5, 6}, 3, 4, unbounded, 3, true},
		{"straddles boundary", []int{2, 3, 4, 5}, 5, 4, constraints{high: math.MaxUint64, align: 1, boundary: 4}, 0, false},
		{"inside boundary", []int{4, 5, 6, 7}, 7, 4, constraints{high: math.MaxUint64, align: 1, boundary: 4}, 4, true},
		{"below window", []int{0, 1, 2, 3}, 3, 4, constraints{low: 1, high: math.MaxUint64, align: 1}, 0, false},
		{"above window", []int{4, 5, 6, 7}, 7, 4, constraints{high: 7, align: 1}, 0, false},
		{"larger than segment", []int{0, 1, 2, 3, 4, 5, 6, 7}, 7, 9, unbounded, 0, false},
		{"single page", []int{5}, 5, 1, unbounded, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m := newTestAllocator(t, 8, nil)
			list := occupy(t, m, tt.candidate...)
			var last *phys.Page
			for _, p := range list {
				p.SetCandidate(true)
				if int(p.Frame()) == tt.last {
					last = p
				}
			}
			require.NotNil(t, last)

			seg, start, ok := candidateRun(last, tt.num, tt.c)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				require.Same(t, m.Layout().Segments()[0], seg)
				require.Equal(t, tt.wantStart, start)
			}
		})
	}
}
