package printer

import (
	"fmt"
	"strings"

	"github.com/joshuapare/pglist/internal/format"
	"github.com/joshuapare/pglist/phys"
	"github.com/joshuapare/pglist/phys/pglist"
	"github.com/joshuapare/pglist/phys/reclaim"
)

func (p *Printer) indent(level int) string {
	return strings.Repeat(" ", level*p.opts.IndentSize)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func (p *Printer) printLayoutText(m *phys.Manager) error {
	l := m.Layout()
	segs := l.Segments()
	_, err := p.num.Fprintf(p.w, "Layout: %d %s, %d pages of %s, %d %s\n",
		len(segs), plural(len(segs), "segment"),
		l.TotalPages(), format.FormatSize(l.PageSize()),
		l.Colors(), plural(l.Colors(), "color"))
	if err != nil {
		return err
	}

	for _, c := range l.Classes() {
		if _, err := p.num.Fprintf(p.w, "%sClass %s: %d free\n", p.indent(1), c, m.FreeCountOf(c)); err != nil {
			return err
		}
		for _, seg := range l.SegmentsOf(c) {
			if err := p.printSegmentText(m, seg); err != nil {
				return err
			}
		}
	}
	_, err = p.num.Fprintf(p.w, "Free: %d of %d pages\n", m.FreeCount(), l.TotalPages())
	return err
}

func (p *Printer) printSegmentText(m *phys.Manager, seg *phys.Segment) error {
	free, hint := segmentFree(m, seg)
	_, err := p.num.Fprintf(p.w, "%sSegment %d [%s-%s) avail [%s-%s): %d pages, %d free, hint %d\n",
		p.indent(2), seg.ID(), seg.Start(), seg.End(), seg.AvailStart(), seg.AvailEnd(),
		seg.NumPages(), free, hint)
	return err
}

// segmentFree counts Free pages of seg and reads its hint under one hold of
// the manager lock.
func segmentFree(m *phys.Manager, seg *phys.Segment) (free, hint int) {
	m.Lock()
	defer m.Unlock()
	for i := range seg.NumPages() {
		if seg.Page(i).State() == phys.StateFree {
			free++
		}
	}
	return free, seg.Hint()
}

func (p *Printer) printListText(list phys.PageList, pageSize uint64) error {
	ext := list.Extents()
	_, err := p.num.Fprintf(p.w, "%d %s (%s), %d %s\n",
		len(list), plural(len(list), "page"),
		format.FormatSize(uint64(len(list))*pageSize),
		len(ext), plural(len(ext), "extent"))
	if err != nil {
		return err
	}
	for _, e := range ext {
		_, err := p.num.Fprintf(p.w, "%s%s-%s (%d %s)\n",
			p.indent(1), e.Start, e.End(pageSize), e.Pages, plural(e.Pages, "page"))
		if err != nil {
			return err
		}
	}
	if p.opts.ShowPages {
		for i, a := range list.Addrs() {
			if _, err := fmt.Fprintf(p.w, "%s[%d] %s\n", p.indent(1), i, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Printer) printStatsText(st pglist.Stats, d *reclaim.Stats) error {
	rows := []struct {
		name string
		v    uint64
	}{
		{"Calls", st.Calls},
		{"Simple", st.SimpleCalls},
		{"Contig", st.ContigCalls},
		{"Invalid", st.InvalidCalls},
		{"Fast failures", st.FastFailures},
		{"Fallbacks", st.FallbackCalls},
		{"Fallback successes", st.FallbackSuccesses},
		{"Fallback pages tried", st.FallbackTried},
		{"Pages allocated", st.PagesAllocated},
		{"Pages released", st.PagesReleased},
	}
	if _, err := fmt.Fprintln(p.w, "Allocator:"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := p.num.Fprintf(p.w, "%s%-21s %d\n", p.indent(1), r.name+":", r.v); err != nil {
			return err
		}
	}
	if d == nil {
		return nil
	}
	_, err := p.num.Fprintf(p.w, "Reclaim:\n%s%-21s %d\n%s%-21s %d\n%s%-21s %d\n%s%-21s %d\n",
		p.indent(1), "Requests:", d.Requests,
		p.indent(1), "Passes:", d.Passes,
		p.indent(1), "Evicted:", d.Evicted,
		p.indent(1), "Resident:", d.Resident)
	return err
}
