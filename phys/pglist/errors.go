package pglist

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidArgument indicates a malformed request (call-site bug, not retryable).
	ErrInvalidArgument = errors.New("pglist: invalid argument")

	// ErrOutOfMemory indicates the request cannot be satisfied now. Retryable later.
	ErrOutOfMemory = errors.New("pglist: out of memory")
)
