// Package pglist allocates lists of physical pages under address-range,
// alignment and boundary constraints.
//
// # Overview
//
// Callers ask for a byte size inside a physical window [Low, High). The
// allocator hands back a PageList holding exactly ceil(Size/PageSize) pages,
// or an error with nothing claimed:
//
//	a := pglist.New(m, nil)
//	list, err := a.Alloc(pglist.Request{
//	    Size:       16 << 10,
//	    High:       0x1000000, // below 16 MiB
//	    Alignment:  0x2000,
//	    MaxExtents: 1,
//	})
//	if err != nil {
//	    return err
//	}
//	defer a.Release(list)
//
// # Strategies
//
// A request is served by one of two per-segment searches:
//
//   - StrategyContig: one address-contiguous run whose first page is
//     Alignment-aligned and which does not straddle a multiple of Boundary.
//     Chosen when MaxExtents < pages, Alignment > page size, or Boundary != 0.
//   - StrategySimple: any free pages in range, claimed one at a time.
//
// MaxExtents only selects the strategy. The allocator does not check the
// number of runs in the returned list against it.
//
// Both searches resume at the segment's hint (just past the previous
// successful claim) and wrap around to the start of the segment once, so
// pages below the hint are still found.
//
// # Locking
//
// The fast path takes the phys.Manager lock once for the whole search, so
// two concurrent calls never interleave their claims. It never blocks.
//
// When the fast path fails and Blocking is set, the reclaim fallback runs
// under a separate allocator-wide mutex. It pulls single pages from the
// manager (blocking on reclamation), tags them Candidate, and finishes as
// soon as the tagged pages contain a satisfying run. Pages it does not use
// are returned to the manager.
//
// Blocking requests may sleep for as long as reclamation makes progress, so
// they must not be issued from contexts that cannot wait.
//
// # Errors
//
//   - ErrInvalidArgument: bad size, alignment or boundary. Returned before
//     any lock is taken.
//   - ErrOutOfMemory: no combination of free or reclaimable pages satisfies
//     the request. Partial claims are rolled back first.
package pglist
