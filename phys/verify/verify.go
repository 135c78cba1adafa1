// Package verify checks allocator results and free-list invariants.
// These helpers are used by tests and by pgctl to confirm that state stays
// consistent across allocations and releases.
package verify

import (
	"fmt"

	"github.com/joshuapare/pglist/internal/format"
	"github.com/joshuapare/pglist/phys"
)

// ValidationError describes one failed check.
type ValidationError struct {
	Type    string
	Message string
	Addr    int64 // -1 when not tied to an address
}

func (e *ValidationError) Error() string {
	if e.Addr >= 0 {
		return fmt.Sprintf("%s at 0x%X: %s", e.Type, e.Addr, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func fail(typ string, addr int64, msg string, args ...any) error {
	return &ValidationError{Type: typ, Message: fmt.Sprintf(msg, args...), Addr: addr}
}

// Constraints is what a result list was requested with.
type Constraints struct {
	PageSize  uint64
	Pages     int
	Low, High phys.Addr // High == 0: no upper bound
	Alignment uint64
	Boundary  uint64

	// Contig marks a result from the contiguous strategy: one run, aligned.
	Contig bool
}

// Result validates a list returned by a successful allocation.
func Result(list phys.PageList, c Constraints) error {
	if len(list) != c.Pages {
		return fail("Count", -1, "got %d pages, want %d", len(list), c.Pages)
	}

	seen := make(map[phys.Addr]struct{}, len(list))
	for _, p := range list {
		a := p.Addr()
		if _, dup := seen[a]; dup {
			return fail("Duplicate", int64(a), "page appears twice")
		}
		seen[a] = struct{}{}

		if p.State() != phys.StateOwned {
			return fail("State", int64(a), "page is %s, want owned", p.State())
		}
		if a < c.Low || (c.High != 0 && a+phys.Addr(c.PageSize) > c.High) {
			return fail("Range", int64(a), "outside [%s-%s)", c.Low, c.High)
		}
	}

	ext := list.Extents()
	if c.Contig && len(ext) != 1 {
		return fail("Contig", -1, "got %d runs, want 1", len(ext))
	}
	for _, e := range ext {
		if c.Contig && c.Alignment != 0 && uint64(e.Start)%c.Alignment != 0 {
			return fail("Alignment", int64(e.Start), "run not aligned to %#x", c.Alignment)
		}
		if c.Boundary != 0 {
			end := uint64(e.End(c.PageSize))
			if format.CrossesBoundary(uint64(e.Start), end-uint64(e.Start), c.Boundary) {
				return fail("Boundary", int64(e.Start), "run of %d pages straddles %#x boundary", e.Pages, c.Boundary)
			}
		}
	}
	return nil
}

// Manager validates free-list and segment state. It takes the manager lock,
// so it must not run while the caller holds it. Candidate pages are reported
// as errors, so run it only when no reclaim fallback is in progress.
func Manager(m *phys.Manager) error {
	l := m.Layout()

	m.Lock()
	defer m.Unlock()

	free := 0
	for _, seg := range l.Segments() {
		if h := seg.Hint(); h < 0 || h > seg.NumPages() {
			return fail("Hint", int64(seg.AvailStart()), "segment %d hint %d outside [0, %d]", seg.ID(), h, seg.NumPages())
		}
		for i := range seg.NumPages() {
			p := seg.Page(i)
			switch p.State() {
			case phys.StateFree:
				free++
			case phys.StateCandidate:
				return fail("State", int64(p.Addr()), "candidate page outside reclaim fallback")
			}
		}
	}
	if free != m.FreeCountLocked() {
		return fail("FreeCount", -1, "%d pages in free state, manager counts %d", free, m.FreeCountLocked())
	}

	buckets := 0
	for _, c := range l.Classes() {
		for color := range l.Colors() {
			buckets += m.BucketLenLocked(c, color)
		}
	}
	if buckets != free {
		return fail("Buckets", -1, "buckets hold %d pages, %d are free", buckets, free)
	}
	return nil
}
