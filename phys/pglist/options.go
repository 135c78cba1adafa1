package pglist

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/pglist/phys"
)

// Config controls allocator behavior.
type Config struct {
	// DisableFallback makes blocking requests fail like non-blocking ones
	// instead of running the reclaim fallback.
	// Default: false
	DisableFallback bool

	// Logger receives allocator diagnostics.
	// Default: logger.L
	Logger *slog.Logger
}

// Request describes one allocation.
type Request struct {
	// Size in bytes, rounded up to whole pages. Must be non-zero.
	Size uint64

	// Low and High bound the physical window [Low, High). Low rounds up and
	// High rounds down to page granularity. High == 0 means no upper bound.
	Low, High phys.Addr

	// Alignment of the first page of each run, in bytes. Power of two, at
	// least the page size.
	Alignment uint64

	// Boundary is a power-of-two address granularity no run may straddle,
	// or 0 for none. Must be at least the page-rounded Size.
	Boundary uint64

	// MaxExtents is the caller's tolerance for discontiguity. It only selects
	// the strategy and is not enforced on the result.
	MaxExtents int

	// Blocking permits the reclaim fallback, which may sleep.
	Blocking bool
}

// Strategy is the per-segment search used for a request.
type Strategy int

const (
	// StrategySimple claims any free pages in range.
	StrategySimple Strategy = iota
	// StrategyContig claims one aligned, boundary-respecting contiguous run.
	StrategyContig
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategySimple:
		return "simple"
	case StrategyContig:
		return "contig"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ChooseStrategy selects the search for a request of pages pages with the
// given alignment (in pages), boundary (in pages, 0 for none) and extent
// tolerance.
func ChooseStrategy(pages, alignPages, boundaryPages uint64, maxExtents int) Strategy {
	if maxExtents < 0 || uint64(maxExtents) < pages || alignPages > 1 || boundaryPages != 0 {
		return StrategyContig
	}
	return StrategySimple
}

// constraints is a normalized request, in page frames.
type constraints struct {
	low, high uint64 // frame window [low, high)
	align     uint64 // pages, >= 1
	boundary  uint64 // pages, 0 = none
}
