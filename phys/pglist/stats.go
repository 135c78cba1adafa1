package pglist

import "sync/atomic"

// Stats holds allocator counters.
type Stats struct {
	Calls             uint64 // Alloc calls
	SimpleCalls       uint64 // calls served by StrategySimple
	ContigCalls       uint64 // calls served by StrategyContig
	InvalidCalls      uint64 // calls rejected with ErrInvalidArgument
	FastFailures      uint64 // fast-path searches that found too few pages
	FallbackCalls     uint64 // reclaim fallback sequences started
	FallbackSuccesses uint64 // fallback sequences that assembled a result
	FallbackTried     uint64 // pages tagged Candidate by the fallback
	PagesAllocated    uint64 // pages handed to callers
	PagesReleased     uint64 // pages returned through Release
}

type allocatorStats struct {
	calls             atomic.Uint64
	simpleCalls       atomic.Uint64
	contigCalls       atomic.Uint64
	invalidCalls      atomic.Uint64
	fastFailures      atomic.Uint64
	fallbackCalls     atomic.Uint64
	fallbackSuccesses atomic.Uint64
	fallbackTried     atomic.Uint64
	pagesAllocated    atomic.Uint64
	pagesReleased     atomic.Uint64
}

func (s *allocatorStats) snapshot() Stats {
	return Stats{
		Calls:             s.calls.Load(),
		SimpleCalls:       s.simpleCalls.Load(),
		ContigCalls:       s.contigCalls.Load(),
		InvalidCalls:      s.invalidCalls.Load(),
		FastFailures:      s.fastFailures.Load(),
		FallbackCalls:     s.fallbackCalls.Load(),
		FallbackSuccesses: s.fallbackSuccesses.Load(),
		FallbackTried:     s.fallbackTried.Load(),
		PagesAllocated:    s.pagesAllocated.Load(),
		PagesReleased:     s.pagesReleased.Load(),
	}
}
