package phys

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReclaimer struct {
	mock.Mock
}

func (r *mockReclaimer) RequestReclaim()       { r.Called() }
func (r *mockReclaimer) MoreReclaimable() bool { return r.Called().Bool(0) }

func newTestManager(t *testing.T, pages int, cfg *LayoutConfig) *Manager {
	t.Helper()
	ps := uint64(4096)
	if cfg != nil && cfg.PageSize != 0 {
		ps = cfg.PageSize
	}
	l, err := NewLayout([]Region{{Start: 0, End: Addr(uint64(pages) * ps)}}, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return NewManager(l)
}

func Test_Manager_InitialState(t *testing.T) {
	m := newTestManager(t, 16, nil)
	require.Equal(t, 16, m.FreeCount())
	require.Equal(t, 16, m.FreeCountOf(ClassDefault))
	require.Zero(t, m.FreeCountOf(ClassFirst16M))

	seg := m.Layout().Segments()[0]
	for i := range seg.NumPages() {
		require.Equal(t, StateFree, seg.Page(i).State())
	}
}

func Test_Manager_TakeGiveBack(t *testing.T) {
	m := newTestManager(t, 8, nil)
	p := m.Layout().Segments()[0].Page(3)
	p.Owner = "stale"

	m.Lock()
	m.TakeLocked(p)
	require.Equal(t, StateOwned, p.State())
	require.Nil(t, p.Owner, "metadata cleared on claim")
	require.Equal(t, 7, m.FreeCountLocked())
	require.Panics(t, func() { m.TakeLocked(p) }, "claiming an owned page")
	m.GiveBackLocked(p)
	require.Panics(t, func() { m.GiveBackLocked(p) }, "double free")
	m.Unlock()

	require.Equal(t, StateFree, p.State())
	require.Equal(t, 8, m.FreeCount())
}

func Test_Manager_TryAllocOne_AddressOrder(t *testing.T) {
	m := newTestManager(t, 4, nil)
	for i := range 4 {
		p, ok := m.TryAllocOne()
		require.True(t, ok)
		require.Equal(t, Addr(i*4096), p.Addr())
	}
	_, ok := m.TryAllocOne()
	require.False(t, ok)
	require.Zero(t, m.FreeCount())
}

func Test_Manager_ColorRoundRobin(t *testing.T) {
	m := newTestManager(t, 8, &LayoutConfig{Colors: 2})
	a, _ := m.TryAllocOne()
	b, _ := m.TryAllocOne()
	require.NotEqual(t, a.Color(), b.Color())
}

func Test_Manager_ClassOrder(t *testing.T) {
	l, err := NewLayout([]Region{
		{Start: 0x0, End: 0x2000, Class: ClassFirst16M},
		{Start: 0x10000, End: 0x12000, Class: ClassDefault},
	}, nil)
	require.NoError(t, err)
	m := NewManager(l)

	p, ok := m.TryAllocOne()
	require.True(t, ok)
	require.Equal(t, ClassDefault, p.Class(), "default class is searched first")
}

func Test_Manager_FreeOneLIFO(t *testing.T) {
	m := newTestManager(t, 4, nil)
	p, _ := m.TryAllocOne()
	q, _ := m.TryAllocOne()
	m.FreeOne(q)
	m.FreeOne(p)

	got, _ := m.TryAllocOne()
	require.Same(t, p, got, "most recently freed page is reused first")
}

func Test_Manager_AllocOne_NoReclaimer(t *testing.T) {
	m := newTestManager(t, 1, nil)
	_, ok := m.AllocOne()
	require.True(t, ok)
	_, ok = m.AllocOne()
	require.False(t, ok, "no reclaimer ⇒ fail instead of blocking")
}

func Test_Manager_AllocOne_NothingReclaimable(t *testing.T) {
	m := newTestManager(t, 1, nil)
	r := &mockReclaimer{}
	r.On("MoreReclaimable").Return(false)
	m.SetReclaimer(r)

	_, _ = m.TryAllocOne()
	_, ok := m.AllocOne()
	require.False(t, ok)
	r.AssertNotCalled(t, "RequestReclaim")
}

func Test_Manager_AllocOne_BlocksUntilFreed(t *testing.T) {
	m := newTestManager(t, 1, nil)
	held, _ := m.TryAllocOne()

	r := &mockReclaimer{}
	r.On("MoreReclaimable").Return(true)
	requested := make(chan struct{}, 8)
	r.On("RequestReclaim").Run(func(mock.Arguments) { requested <- struct{}{} })
	m.SetReclaimer(r)

	var wg sync.WaitGroup
	var got *Page
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, _ = m.AllocOne()
	}()

	select {
	case <-requested:
	case <-time.After(5 * time.Second):
		t.Fatal("AllocOne did not request reclaim")
	}
	m.FreeOne(held)
	wg.Wait()

	require.Same(t, held, got)
	require.Zero(t, m.FreeCount())
}

func Test_Manager_TakeAt(t *testing.T) {
	m := newTestManager(t, 4, nil)
	p, err := m.TakeAt(0x2000)
	require.NoError(t, err)
	require.Equal(t, StateOwned, p.State())

	_, err = m.TakeAt(0x2000)
	require.ErrorIs(t, err, ErrNotFree)

	_, err = m.TakeAt(0x10000)
	require.ErrorIs(t, err, ErrNotManaged)
}

func Test_Page_SetCandidate(t *testing.T) {
	m := newTestManager(t, 2, nil)
	p, _ := m.TryAllocOne()

	p.SetCandidate(true)
	require.Equal(t, StateCandidate, p.State())
	require.Panics(t, func() { p.SetCandidate(true) })
	p.SetCandidate(false)
	require.Equal(t, StateOwned, p.State())

	free := m.Layout().Segments()[0].Page(1)
	require.Panics(t, func() { free.SetCandidate(true) }, "free pages cannot be tagged")
}
