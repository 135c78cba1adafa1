package phys

import (
	"slices"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/pglist/internal/format"
)

// LayoutConfig controls how NewLayout builds segments.
type LayoutConfig struct {
	// PageSize is the page size in bytes. Must be a power of two.
	// Default: format.DefaultPageSize
	PageSize uint64

	// Colors is the number of page-color buckets per free class.
	// Default: 1
	Colors int

	// Backed maps anonymous memory behind every available range so that
	// Page.Bytes returns usable storage.
	// Default: false
	Backed bool
}

// Layout is the segment registry: every segment of physical memory, sorted by
// address, grouped by free class.
type Layout struct {
	pageSize uint64
	colors   int
	segs     []*Segment
	classes  []FreeClass
	byClass  [MaxClasses][]*Segment
	total    int
}

// NewLayout validates regions and builds one Segment per region.
//
// Parameters:
//   - regions: physical ranges; any order, must not overlap
//   - cfg: layout options (use nil for defaults)
func NewLayout(regions []Region, cfg *LayoutConfig) (*Layout, error) {
	if cfg == nil {
		cfg = &LayoutConfig{}
	}
	ps := cfg.PageSize
	if ps == 0 {
		ps = format.DefaultPageSize
	}
	if !format.IsPow2(ps) {
		return nil, errors.Wrapf(ErrBadPageSize, "page size %d", ps)
	}
	colors := cfg.Colors
	if colors <= 0 {
		colors = 1
	}
	if colors > format.MaxColors {
		colors = format.MaxColors
	}

	sorted := slices.Clone(regions)
	for i := range sorted {
		r := &sorted[i]
		if r.AvailStart == 0 && r.AvailEnd == 0 {
			r.AvailStart, r.AvailEnd = r.Start, r.End
		}
		if err := checkRegion(*r, ps); err != nil {
			return nil, err
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return nil, errors.Wrapf(ErrOverlap, "[%s-%s) and [%s-%s)",
				sorted[i-1].Start, sorted[i-1].End, sorted[i].Start, sorted[i].End)
		}
	}

	l := &Layout{pageSize: ps, colors: colors}
	for i, r := range sorted {
		seg := &Segment{
			id:         i,
			class:      r.Class,
			start:      r.Start,
			end:        r.End,
			availStart: r.AvailStart,
			availEnd:   r.AvailEnd,
			pageSize:   ps,
		}
		n := int(uint64(r.AvailEnd-r.AvailStart) / ps)
		seg.pages = make([]Page, n)
		for j := range seg.pages {
			p := &seg.pages[j]
			p.seg = seg
			p.index = j
			p.color = int(p.Frame() % uint64(colors))
			p.setState(StateFree)
		}
		if cfg.Backed && n > 0 {
			b, err := mapBacking(n * int(ps))
			if err != nil {
				_ = l.Close()
				return nil, errors.Wrapf(err, "map backing for segment %d", i)
			}
			seg.backing = b
		}

		l.segs = append(l.segs, seg)
		if len(l.byClass[r.Class]) == 0 {
			l.classes = append(l.classes, r.Class)
		}
		l.byClass[r.Class] = append(l.byClass[r.Class], seg)
		l.total += n
	}
	slices.Sort(l.classes)

	return l, nil
}

func checkRegion(r Region, ps uint64) error {
	aligned := func(a Addr) bool { return uint64(a)%ps == 0 }
	switch {
	case r.End <= r.Start:
		return errors.Wrapf(ErrBadRegion, "empty range [%s-%s)", r.Start, r.End)
	case !aligned(r.Start) || !aligned(r.End) || !aligned(r.AvailStart) || !aligned(r.AvailEnd):
		return errors.Wrapf(ErrBadRegion, "[%s-%s) not aligned to page size %d", r.Start, r.End, ps)
	case r.AvailEnd < r.AvailStart || r.AvailStart < r.Start || r.AvailEnd > r.End:
		return errors.Wrapf(ErrBadRegion, "available range [%s-%s) outside [%s-%s)",
			r.AvailStart, r.AvailEnd, r.Start, r.End)
	case r.Class >= MaxClasses:
		return errors.Wrapf(ErrBadRegion, "free class %d out of range", r.Class)
	}
	return nil
}

// PageSize returns the page size in bytes.
func (l *Layout) PageSize() uint64 { return l.pageSize }

// Colors returns the number of page colors.
func (l *Layout) Colors() int { return l.colors }

// Segments returns all segments in address order.
func (l *Layout) Segments() []*Segment { return l.segs }

// Classes returns the free classes present, ascending.
func (l *Layout) Classes() []FreeClass { return l.classes }

// SegmentsOf returns the segments of one free class in address order.
func (l *Layout) SegmentsOf(c FreeClass) []*Segment {
	if c >= MaxClasses {
		return nil
	}
	return l.byClass[c]
}

// TotalPages returns the number of managed pages.
func (l *Layout) TotalPages() int { return l.total }

// Lookup returns the segment whose available range contains addr.
// O(log S) binary search over the sorted segments.
func (l *Layout) Lookup(addr Addr) (*Segment, bool) {
	i := sort.Search(len(l.segs), func(i int) bool { return l.segs[i].availEnd > addr })
	if i < len(l.segs) && l.segs[i].Contains(addr) {
		return l.segs[i], true
	}
	return nil, false
}

// PageAt returns the page at addr.
func (l *Layout) PageAt(addr Addr) (*Page, error) {
	seg, ok := l.Lookup(addr)
	if !ok {
		return nil, errors.Wrapf(ErrNotManaged, "%s", addr)
	}
	return seg.FramePage(uint64(addr) / l.pageSize), nil
}

// Close releases any backing memory. Pages must not be used afterwards.
func (l *Layout) Close() error {
	var err error
	for _, seg := range l.segs {
		if seg.backing == nil {
			continue
		}
		if uerr := unmapBacking(seg.backing); uerr != nil && err == nil {
			err = uerr
		}
		seg.backing = nil
	}
	return err
}
