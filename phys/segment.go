package phys

import "fmt"

// Region describes one physically contiguous range handed to NewLayout.
// A zero AvailStart/AvailEnd pair means the whole range is allocatable.
type Region struct {
	Start, End           Addr
	AvailStart, AvailEnd Addr
	Class                FreeClass
}

// Segment is a physically contiguous address range with its own page array,
// free class and search hint.
//
// Pages exist only for the available range [AvailStart, AvailEnd). The hint
// is an offset in pages into that range and is guarded by the Manager lock.
type Segment struct {
	id                   int
	class                FreeClass
	start, end           Addr
	availStart, availEnd Addr
	pageSize             uint64

	pages []Page
	hint  int

	backing []byte
}

// ID returns the segment's index in its layout.
func (s *Segment) ID() int { return s.id }

// Class returns the segment's free class.
func (s *Segment) Class() FreeClass { return s.class }

// Start returns the first address of the full extent.
func (s *Segment) Start() Addr { return s.start }

// End returns the first address past the full extent.
func (s *Segment) End() Addr { return s.end }

// AvailStart returns the first allocatable address.
func (s *Segment) AvailStart() Addr { return s.availStart }

// AvailEnd returns the first address past the allocatable range.
func (s *Segment) AvailEnd() Addr { return s.availEnd }

// FirstFrame returns the frame number of AvailStart.
func (s *Segment) FirstFrame() uint64 { return uint64(s.availStart) / s.pageSize }

// EndFrame returns the frame number of AvailEnd.
func (s *Segment) EndFrame() uint64 { return uint64(s.availEnd) / s.pageSize }

// NumPages returns the number of pages in the available range.
func (s *Segment) NumPages() int { return len(s.pages) }

// Page returns the i-th page of the available range.
func (s *Segment) Page(i int) *Page { return &s.pages[i] }

// FramePage returns the page for frame number f, which must lie in the
// available range.
func (s *Segment) FramePage(f uint64) *Page {
	return &s.pages[f-s.FirstFrame()]
}

// Contains reports whether addr lies in the available range.
func (s *Segment) Contains(addr Addr) bool {
	return addr >= s.availStart && addr < s.availEnd
}

// Hint returns the search hint. Caller must hold the Manager lock.
func (s *Segment) Hint() int { return s.hint }

// SetHint updates the search hint. Caller must hold the Manager lock.
// It panics if hint is outside [0, NumPages].
func (s *Segment) SetHint(hint int) {
	if hint < 0 || hint > len(s.pages) {
		panic(fmt.Sprintf("phys: segment %d hint %d out of range [0, %d]", s.id, hint, len(s.pages)))
	}
	s.hint = hint
}

// String renders the segment for diagnostics.
func (s *Segment) String() string {
	return fmt.Sprintf("seg%d{%s [%s-%s) avail [%s-%s)}",
		s.id, s.class, s.start, s.end, s.availStart, s.availEnd)
}
