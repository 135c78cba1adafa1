//go:build !linux && !darwin

package phys

import "github.com/joshuapare/pglist/internal/format"

// HostPageSize returns the operating system page size.
// Without mmap support the default page size is assumed.
func HostPageSize() uint64 {
	return format.DefaultPageSize
}

// mapBacking allocates n zeroed bytes on the Go heap (no mmap on this platform).
func mapBacking(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func unmapBacking([]byte) error {
	return nil
}
