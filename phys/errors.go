package phys

import "github.com/cockroachdb/errors"

var (
	// ErrBadRegion indicates a region with misaligned, empty or inverted bounds.
	ErrBadRegion = errors.New("phys: bad region")

	// ErrOverlap indicates two regions share physical addresses.
	ErrOverlap = errors.New("phys: overlapping regions")

	// ErrBadPageSize indicates a page size that is not a power of two.
	ErrBadPageSize = errors.New("phys: page size must be a power of two")

	// ErrNotManaged indicates an address outside every segment's available range.
	ErrNotManaged = errors.New("phys: address not managed")

	// ErrNotFree indicates an attempt to claim a page that is not free.
	ErrNotFree = errors.New("phys: page not free")
)
