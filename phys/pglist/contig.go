package pglist

import (
	"github.com/joshuapare/pglist/internal/format"
	"github.com/joshuapare/pglist/phys"
)

// searchContig claims one run of num contiguous free pages from seg whose
// first frame is a multiple of c.align and which does not straddle a
// multiple of c.boundary. It returns 0 (applicable) when no such run exists.
//
// The first pass scans candidate starts from the hint up to the end of the
// window; the second pass, taken only when the hint is non-zero, scans from
// the start of the segment up to the hint.
func (a *Allocator) searchContig(seg *phys.Segment, num uint64, c constraints, out *phys.PageList) (uint64, bool) {
	first, end := seg.FirstFrame(), seg.EndFrame()
	if c.high <= first || c.low >= end {
		return 0, false
	}

	hint := uint64(seg.Hint())
	try := format.RoundUp(max(c.low, first+hint), c.align)
	limit := min(c.high, end)
	secondPass := false

	// skip counts pages at the bottom of the current window that an earlier
	// iteration already found free.
	var skip uint64

	for {
		if try+num > limit {
			if hint == 0 || secondPass {
				return 0, true
			}
			// Wrap: every start below the hint, limited to the original window.
			secondPass = true
			try = format.RoundUp(max(c.low, first), c.align)
			limit = min(limit, first+hint+num-1)
			skip = 0
			continue
		}

		if format.CrossesBoundary(try, num, c.boundary) {
			// Jump to the boundary just crossed, keeping alignment.
			try = format.RoundUp(format.RoundDown(try+num-1, c.boundary), c.align)
			skip = 0
			continue
		}

		// Check the window top-down so a busy page found near the top
		// rules out as many starts as possible.
		busy, found := uint64(0), false
		for off := num; off > skip; off-- {
			if seg.FramePage(try+off-1).State() != phys.StateFree {
				busy, found = off-1, true
				break
			}
		}
		if !found {
			break
		}

		// Pages above busy are free; the next aligned start past busy can
		// reuse that knowledge.
		adv := format.RoundUp(busy+1, c.align)
		try += adv
		if adv < num {
			skip = num - adv
		} else {
			skip = 0
		}
	}

	for f := try; f < try+num; f++ {
		p := seg.FramePage(f)
		a.m.TakeLocked(p)
		*out = append(*out, p)
	}
	seg.SetHint(int(try + num - first))
	return num, true
}
