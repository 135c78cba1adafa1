package phys

import (
	"fmt"
	"sync/atomic"
)

// Addr is a physical byte address.
type Addr uint64

// String renders the address in hex.
func (a Addr) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// FreeClass groups segments and free buckets (e.g. memory reachable by
// 32-bit DMA engines). Classes are searched in ascending order.
type FreeClass uint8

const (
	// ClassDefault is ordinary memory with no addressing restriction.
	ClassDefault FreeClass = 0
	// ClassFirst4G is memory below 4 GiB.
	ClassFirst4G FreeClass = 1
	// ClassFirst16M is memory below 16 MiB (ISA DMA).
	ClassFirst16M FreeClass = 2

	// MaxClasses bounds the FreeClass values a layout may use.
	MaxClasses = 8
)

// String returns the class name.
func (c FreeClass) String() string {
	switch c {
	case ClassDefault:
		return "default"
	case ClassFirst4G:
		return "first4g"
	case ClassFirst16M:
		return "first16m"
	default:
		return fmt.Sprintf("class%d", uint8(c))
	}
}

// ParseFreeClass parses a FreeClass name as produced by String.
func ParseFreeClass(s string) (FreeClass, bool) {
	for c := FreeClass(0); c < MaxClasses; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// PageState is the ownership state of a page.
type PageState uint32

const (
	// StateFree means the page sits in a Manager bucket.
	StateFree PageState = iota
	// StateOwned means a caller exclusively holds the page.
	StateOwned
	// StateCandidate means the reclaim fallback holds the page while it
	// assembles a contiguous run.
	StateCandidate
)

// String returns the state name.
func (s PageState) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateOwned:
		return "owned"
	case StateCandidate:
		return "candidate"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// Page is one fixed-size unit of physical memory.
type Page struct {
	seg   *Segment
	index int
	color int
	state atomic.Uint32

	// Bucket links, valid only while Free. Guarded by the Manager lock.
	prev, next *Page

	// Owner is caller metadata. It is cleared whenever the page is claimed.
	Owner any
}

// Addr returns the physical address of the page.
func (p *Page) Addr() Addr {
	return p.seg.availStart + Addr(uint64(p.index)*p.seg.pageSize)
}

// Frame returns the physical page frame number.
func (p *Page) Frame() uint64 {
	return uint64(p.Addr()) / p.seg.pageSize
}

// Segment returns the segment the page belongs to.
func (p *Page) Segment() *Segment { return p.seg }

// Index returns the page's index within its segment's available range.
func (p *Page) Index() int { return p.index }

// Color returns the page's cache color.
func (p *Page) Color() int { return p.color }

// Class returns the free class of the page's segment.
func (p *Page) Class() FreeClass { return p.seg.class }

// State returns the current page state.
func (p *Page) State() PageState {
	return PageState(p.state.Load())
}

// SetCandidate moves an Owned page to Candidate (on) or back to Owned (off).
// It panics if the page is not in the expected state.
func (p *Page) SetCandidate(on bool) {
	from, to := StateOwned, StateCandidate
	if !on {
		from, to = to, from
	}
	if !p.state.CompareAndSwap(uint32(from), uint32(to)) {
		panic(fmt.Sprintf("phys: page %s is %s, want %s", p.Addr(), p.State(), from))
	}
}

// Bytes returns the page's backing memory, or nil when the layout is not backed.
func (p *Page) Bytes() []byte {
	if p.seg.backing == nil {
		return nil
	}
	ps := int(p.seg.pageSize)
	off := p.index * ps
	return p.seg.backing[off : off+ps : off+ps]
}

func (p *Page) setState(s PageState) {
	p.state.Store(uint32(s))
}

// String renders the page for diagnostics.
func (p *Page) String() string {
	return fmt.Sprintf("page{%s seg=%d %s}", p.Addr(), p.seg.id, p.State())
}
