package pglist

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/pglist/internal/format"
	"github.com/joshuapare/pglist/phys"
)

// aggressive is the reclaim fallback. It pulls pages one at a time from the
// manager, blocking on reclamation, and tags each Candidate. A page that
// completes a satisfying set of Candidate pages ends the sequence; Candidate
// tags persist across iterations, so a run started by one page can be
// finished by a later one. Unused pages go back to the manager on exit.
func (a *Allocator) aggressive(num uint64, c constraints, strat Strategy) (phys.PageList, error) {
	a.fallbackMu.Lock()
	defer a.fallbackMu.Unlock()

	a.stats.fallbackCalls.Add(1)
	a.log.Debug("pglist: reclaim fallback start", "pages", num, "strategy", strat.String())

	var (
		tmp     []*phys.Page
		inRange phys.PageList
		result  phys.PageList
	)

	for result == nil && a.reclaimable() {
		p, ok := a.m.AllocOne()
		if !ok {
			break
		}
		a.stats.fallbackTried.Add(1)
		p.SetCandidate(true)
		tmp = append(tmp, p)

		f := p.Frame()
		if f < c.low || f >= c.high {
			continue
		}

		if strat == StrategySimple {
			inRange = append(inRange, p)
			if uint64(len(inRange)) == num {
				result = inRange
			}
			continue
		}

		seg, start, ok := candidateRun(p, num, c)
		if !ok {
			continue
		}
		result = make(phys.PageList, 0, num)
		for fr := start; fr < start+num; fr++ {
			result = append(result, seg.FramePage(fr))
		}
	}

	for _, p := range result {
		p.SetCandidate(false)
	}
	returned := 0
	for _, p := range tmp {
		if p.State() == phys.StateCandidate {
			p.SetCandidate(false)
			a.m.FreeOne(p)
			returned++
		}
	}

	if result == nil {
		a.log.Warn("pglist: reclaim fallback exhausted", "pages", num, "tried", len(tmp))
		return nil, errors.Wrapf(ErrOutOfMemory, "reclaim exhausted after %d pages", len(tmp))
	}

	a.stats.fallbackSuccesses.Add(1)
	a.log.Debug("pglist: reclaim fallback done", "pages", num, "tried", len(tmp), "returned", returned)
	return result, nil
}

// reclaimable reports whether another AllocOne may yield a page.
func (a *Allocator) reclaimable() bool {
	if a.m.FreeCount() > 0 {
		return true
	}
	r := a.m.Reclaimer()
	return r != nil && r.MoreReclaimable()
}

// candidateRun looks for num contiguous Candidate pages containing the newly
// tagged page p that satisfy c. It returns the segment and first frame.
//
// The feasible window [rlo, rhi) is the segment's available range clipped to
// c, to the boundary region holding p, and to starts close enough that the
// run still reaches p. The run grows downward from p in aligned groups while
// every page is Candidate, then must extend upward to num pages.
func candidateRun(p *phys.Page, num uint64, c constraints) (*phys.Segment, uint64, bool) {
	seg := p.Segment()
	f := p.Frame()

	rlo := max(seg.FirstFrame(), c.low)
	rhi := min(seg.EndFrame(), c.high)
	if c.boundary != 0 {
		base := format.RoundDown(f, c.boundary)
		rlo = max(rlo, base)
		rhi = min(rhi, base+c.boundary)
	}
	if f+1 > num {
		rlo = max(rlo, f+1-num)
	}
	rlo = format.RoundUp(rlo, c.align)
	if rhi <= rlo || rhi-rlo < num {
		return nil, 0, false
	}

	start := format.RoundDown(f, c.align)
	if start < rlo || !allCandidate(seg, start, f) {
		return nil, 0, false
	}
	for start >= rlo+c.align && allCandidate(seg, start-c.align, start) {
		start -= c.align
	}

	end := start + num
	if end > rhi || !allCandidate(seg, f+1, end) {
		return nil, 0, false
	}
	return seg, start, true
}

// allCandidate reports whether every frame in [from, to) of seg is Candidate.
func allCandidate(seg *phys.Segment, from, to uint64) bool {
	for f := from; f < to; f++ {
		if seg.FramePage(f).State() != phys.StateCandidate {
			return false
		}
	}
	return true
}
