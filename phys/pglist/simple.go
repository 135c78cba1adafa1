package pglist

import "github.com/joshuapare/pglist/phys"

// searchSimple claims up to num free pages from seg, one at a time, with no
// contiguity requirement. It scans forward from the hint, then wraps to the
// start of the segment once, and leaves the hint just past the last page
// examined.
func (a *Allocator) searchSimple(seg *phys.Segment, num uint64, c constraints, out *phys.PageList) (uint64, bool) {
	first, end := seg.FirstFrame(), seg.EndFrame()
	if c.high <= first || c.low >= end {
		return 0, false
	}

	hint := uint64(seg.Hint())
	try := max(c.low, first+hint)
	limit := min(c.high, end)
	secondPass := false
	todo := num

	for todo > 0 {
		if try >= limit {
			if hint == 0 || secondPass {
				break
			}
			secondPass = true
			try = max(c.low, first)
			limit = min(limit, first+hint)
			continue
		}

		p := seg.FramePage(try)
		try++
		if p.State() == phys.StateFree {
			a.m.TakeLocked(p)
			*out = append(*out, p)
			todo--
		}
	}

	seg.SetHint(int(try - first))
	return num - todo, true
}
