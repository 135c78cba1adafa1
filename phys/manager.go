package phys

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
)

// Reclaimer is the page reclamation collaborator.
type Reclaimer interface {
	// RequestReclaim asks for pages to be evicted. It must not block.
	RequestReclaim()

	// MoreReclaimable reports whether further eviction may free pages.
	MoreReclaimable() bool
}

// bucket is an intrusive doubly linked list of free pages.
type bucket struct {
	head, tail *Page
	n          int
}

func (b *bucket) pushFront(p *Page) {
	p.prev = nil
	p.next = b.head
	if b.head != nil {
		b.head.prev = p
	} else {
		b.tail = p
	}
	b.head = p
	b.n++
}

func (b *bucket) pushBack(p *Page) {
	p.next = nil
	p.prev = b.tail
	if b.tail != nil {
		b.tail.next = p
	} else {
		b.head = p
	}
	b.tail = p
	b.n++
}

func (b *bucket) remove(p *Page) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		b.head = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	} else {
		b.tail = p.prev
	}
	p.prev, p.next = nil, nil
	b.n--
}

// Manager is the free-list manager. It owns every Free page, bucketed by
// free class and color, and a single lock that guards the buckets and all
// segment hints.
//
// Multi-page searches take the lock once with Lock and then call the *Locked
// methods. The single-page primitives AllocOne, TryAllocOne and FreeOne lock
// internally.
type Manager struct {
	layout *Layout

	mu   sync.Mutex
	cond *sync.Cond

	// buckets[class][color]
	buckets   [MaxClasses][]bucket
	classFree [MaxClasses]int
	free      int
	nextColor int

	reclaim Reclaimer
}

// NewManager creates a manager with every page of l free, bucketed in
// address order.
func NewManager(l *Layout) *Manager {
	m := &Manager{layout: l}
	m.cond = sync.NewCond(&m.mu)
	for _, c := range l.classes {
		m.buckets[c] = make([]bucket, l.colors)
	}
	for _, seg := range l.segs {
		for i := range seg.pages {
			p := &seg.pages[i]
			m.buckets[seg.class][p.color].pushBack(p)
			m.classFree[seg.class]++
			m.free++
		}
	}
	return m
}

// Layout returns the managed layout.
func (m *Manager) Layout() *Layout { return m.layout }

// SetReclaimer installs the reclamation collaborator used by AllocOne.
func (m *Manager) SetReclaimer(r Reclaimer) {
	m.mu.Lock()
	m.reclaim = r
	m.mu.Unlock()
}

// Reclaimer returns the installed reclamation collaborator, or nil.
func (m *Manager) Reclaimer() Reclaimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reclaim
}

// Lock acquires the free-list lock.
func (m *Manager) Lock() { m.mu.Lock() }

// Unlock releases the free-list lock.
func (m *Manager) Unlock() { m.mu.Unlock() }

// TakeLocked removes a Free page from its bucket and hands it to the caller
// as Owned with empty metadata. Caller must hold the lock.
// It panics if the page is not Free.
func (m *Manager) TakeLocked(p *Page) {
	if p.State() != StateFree {
		panic(fmt.Sprintf("phys: take of %s page %s", p.State(), p.Addr()))
	}
	m.buckets[p.seg.class][p.color].remove(p)
	m.classFree[p.seg.class]--
	m.free--
	p.Owner = nil
	p.setState(StateOwned)
}

// GiveBackLocked returns an Owned page to its bucket. Caller must hold the
// lock. It panics on a page that is already Free.
func (m *Manager) GiveBackLocked(p *Page) {
	if p.State() == StateFree {
		panic(fmt.Sprintf("phys: double free of page %s", p.Addr()))
	}
	p.Owner = nil
	p.setState(StateFree)
	m.buckets[p.seg.class][p.color].pushFront(p)
	m.classFree[p.seg.class]++
	m.free++
}

// FreeCountLocked returns the number of free pages. Caller must hold the lock.
func (m *Manager) FreeCountLocked() int { return m.free }

// BucketLenLocked returns the length of one bucket. Caller must hold the lock.
func (m *Manager) BucketLenLocked(c FreeClass, color int) int {
	if c >= MaxClasses || color < 0 || color >= len(m.buckets[c]) {
		return 0
	}
	return m.buckets[c][color].n
}

// FreeCount returns the number of free pages.
func (m *Manager) FreeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.free
}

// FreeCountOf returns the number of free pages of one class.
func (m *Manager) FreeCountOf(c FreeClass) int {
	if c >= MaxClasses {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classFree[c]
}

// takeAnyLocked claims the head page of the first non-empty bucket, searching
// classes in ascending order and colors round-robin.
func (m *Manager) takeAnyLocked() *Page {
	if m.free == 0 {
		return nil
	}
	colors := m.layout.colors
	for _, c := range m.layout.classes {
		if m.classFree[c] == 0 {
			continue
		}
		for i := range colors {
			color := (m.nextColor + i) % colors
			if p := m.buckets[c][color].head; p != nil {
				m.nextColor = (color + 1) % colors
				m.TakeLocked(p)
				return p
			}
		}
	}
	return nil
}

// TryAllocOne claims one free page without blocking.
func (m *Manager) TryAllocOne() (*Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.takeAnyLocked()
	return p, p != nil
}

// AllocOne claims one free page. When none is free it asks the reclaimer for
// eviction and sleeps until pages are freed. It returns false only when no
// page is free and the reclaimer reports nothing more is reclaimable.
func (m *Manager) AllocOne() (*Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if p := m.takeAnyLocked(); p != nil {
			return p, true
		}
		if m.reclaim == nil || !m.reclaim.MoreReclaimable() {
			return nil, false
		}
		m.reclaim.RequestReclaim()
		m.cond.Wait()
	}
}

// FreeOne returns a page to the free lists and wakes blocked allocators.
func (m *Manager) FreeOne(p *Page) {
	m.mu.Lock()
	m.GiveBackLocked(p)
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Wakeup wakes every goroutine blocked in AllocOne so it re-checks the free
// lists and the reclaimer.
func (m *Manager) Wakeup() {
	m.mu.Lock()
	m.cond.Broadcast()
	m.mu.Unlock()
}

// TakeAt claims the page at addr, which must be Free.
func (m *Manager) TakeAt(addr Addr) (*Page, error) {
	p, err := m.layout.PageAt(addr)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.State() != StateFree {
		return nil, errors.Wrapf(ErrNotFree, "%s is %s", addr, p.State())
	}
	m.TakeLocked(p)
	return p, nil
}
