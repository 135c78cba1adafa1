//go:build linux || darwin

package phys

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// HostPageSize returns the operating system page size.
func HostPageSize() uint64 {
	return uint64(unix.Getpagesize())
}

// mapBacking maps n bytes of zeroed anonymous memory.
func mapBacking(n int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "mmap failed")
	}
	return b, nil
}

func unmapBacking(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return errors.Wrap(err, "munmap failed")
	}
	return nil
}
