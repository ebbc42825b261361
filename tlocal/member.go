package tlocal

import (
	"github.com/FlovinTue/gdul/internal/faults"
)

// Member is a tls-member variable of type T: any number of goroutines may
// hold the same *Member and read/write an independent, per-Handle copy of
// T, lazily materialized from the construction argument on first access
// after construction (or after a reused index's previous occupant is
// destroyed and replaced).
type Member[T any] struct {
	idx uint32
}

// NewMember constructs a tls-member variable initialized with init,
// acquiring a fresh slot index and publishing a tracker for it.
func NewMember[T any](init T) *Member[T] {
	idx, ok := indexPool.Acquire()
	if !ok {
		// indexPool is unbounded; Acquire cannot fail.
		faults.Violate("tlocal: index pool exhausted", "unbounded pool returned !ok")
	}
	iter := iteration.Add(1)
	trackers.Slot(int(idx)).Store(&tracker{init: init, iteration: iter})
	return &Member[T]{idx: idx}
}

// Destroy clears this variable's tracker and returns its index to the pool.
// Any Handle that still holds a materialized copy retains it until its next
// access to this same slot index, which only happens if a new Member
// reuses the index — a Get/Set against this *Member after Destroy is a
// precondition violation.
func (m *Member[T]) Destroy() {
	trackers.Slot(int(m.idx)).Store(nil)
	indexPool.Release(m.idx)
}
