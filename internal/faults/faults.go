// Package faults implements the two error families used across this
// module: fatal precondition violations (always a panic) and resource
// exhaustion (always an ordinary, wrapped error).
//
// Grounded on eventloop/errors.go's cause-chain convention: typed errors
// implementing Unwrap() so callers can use errors.Is/errors.As, plus a
// WrapError helper that composes a message with %w.
package faults

import (
	"fmt"

	"github.com/FlovinTue/gdul/obslog"
)

// InvariantViolation is the panic value for every fatal precondition
// violation in this module: an invalid lane width or out-of-range lane
// index, Recycle of a nil item or of an item a pool never produced, more
// than the configured number of concurrent guards, or Get/Set on a
// destroyed tlocal Member. Concurrent access during UnsafeReset is not
// detected. It is never returned as an error; these are programmer bugs,
// and the system aborts.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invariant violated: %s", e.Invariant)
	}
	return fmt.Sprintf("invariant violated: %s: %s", e.Invariant, e.Detail)
}

// Violate logs the violation (best-effort, at Emergency level) and panics
// with it. It never returns.
func Violate(invariant, detail string) {
	v := &InvariantViolation{Invariant: invariant, Detail: detail}
	obslog.Logger().Emerg().Str(`invariant`, invariant).Str(`detail`, detail).Log(`invariant violation`)
	panic(v)
}

// ResourceError wraps an allocator failure or a capacity-exhaustion
// condition. Unlike InvariantViolation it is returned, not panicked:
// resource exhaustion does not corrupt pool state, and the pool remains
// usable with whatever capacity was previously reached.
type ResourceError struct {
	Op    string
	Cause error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("gdul: %s: %v", e.Op, e.Cause)
}

func (e *ResourceError) Unwrap() error { return e.Cause }

// Wrap builds a ResourceError, matching eventloop's WrapError("op", cause)
// convention.
func Wrap(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &ResourceError{Op: op, Cause: cause}
}
