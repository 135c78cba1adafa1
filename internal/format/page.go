package format

// Page arithmetic shared by the physical page allocator.
// All helpers take power-of-two alignments; callers validate with IsPow2 first.

const (
	// DefaultPageSize is the page size used when a layout does not specify one.
	DefaultPageSize = 4096

	// MaxColors caps the number of page-color buckets per free class.
	MaxColors = 64
)

// IsPow2 reports whether x is a non-zero power of two.
func IsPow2(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}

// RoundUp returns x rounded up to the next multiple of a.
//
// Example:
//
//	RoundUp(1, 4)  = 4
//	RoundUp(4, 4)  = 4
//	RoundUp(5, 4)  = 8
func RoundUp(x, a uint64) uint64 {
	return (x + a - 1) &^ (a - 1)
}

// RoundDown returns x rounded down to the previous multiple of a.
func RoundDown(x, a uint64) uint64 {
	return x &^ (a - 1)
}

// Pages returns the number of pages of pageSize needed to hold size bytes.
// It does not overflow for sizes near the top of the uint64 range.
func Pages(size, pageSize uint64) uint64 {
	n := size / pageSize
	if size%pageSize != 0 {
		n++
	}
	return n
}

// CrossesBoundary reports whether the frame run [first, first+n) straddles a
// multiple of boundary (all in pages). A zero boundary never crosses.
func CrossesBoundary(first, n, boundary uint64) bool {
	if boundary == 0 || n == 0 {
		return false
	}
	mask := ^(boundary - 1)
	return (first^(first+n-1))&mask != 0
}
