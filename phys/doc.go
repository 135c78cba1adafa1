// Package phys models physical memory for the page-list allocator.
//
// # Overview
//
// Physical memory is described by a Layout: a sorted set of Segments, each a
// physically contiguous address range with an allocatable sub-range, a free
// class, and a per-segment search hint. Every page of a segment's available
// range is represented by one Page, created once when the layout is built and
// never destroyed. Only a page's state and list membership change.
//
// The Manager owns all free pages. It keeps them in buckets keyed by free
// class and page color, and guards the buckets and every segment hint with a
// single lock:
//
//	l, err := phys.NewLayout([]phys.Region{{Start: 0, End: 0x10000}}, nil)
//	if err != nil {
//	    return err
//	}
//	m := phys.NewManager(l)
//
//	// Single-page primitives lock internally.
//	p, ok := m.AllocOne()
//	m.FreeOne(p)
//
//	// Multi-page searches hold the lock across the whole scan.
//	m.Lock()
//	m.TakeLocked(seg.Page(3))
//	m.Unlock()
//
// # Page States
//
// A page is Free while it sits in a bucket, Owned once a caller holds it, and
// Candidate only while the allocator's reclaim fallback is assembling a run.
// States are read atomically so the fallback can tag pages it owns while other
// callers scan states under the manager lock.
//
// # Reclamation
//
// AllocOne blocks under memory pressure. It asks the configured Reclaimer to
// evict pages and waits until pages are freed or the reclaimer reports that
// nothing more can be reclaimed. See package phys/reclaim.
package phys
