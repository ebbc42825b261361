// Package tlocal implements the TLS slot table (the "thread local member"
// facility): per-thread storage indexed by a stable, globally-assigned slot
// number, usable from an arbitrary number of threads against the same
// logical variable.
//
// # Architecture
//
// Three entities:
//   - An index pool ([github.com/FlovinTue/gdul/internal/idxpool]) hands out
//     a stable slot index per Member, growing monotonically or reusing a
//     freed index.
//   - A tracker array (see [tracker]) is an unbounded, append-only array of
//     shared trackers, one per live Member, holding the construction value
//     and a monotonically increasing iteration number.
//   - Each Handle keeps a flexible, append-only per-slot cache of materialized
//     values plus the highest iteration number it has observed, refreshing
//     any slot whose tracker iteration is newer on next access.
//
// # Thread Safety
//
// Any number of goroutines may hold the same Member and read/write
// independently through their own Handle. The bookkeeping (tracker array,
// index pool, iteration counter) is lock-free; a given Handle's own cache is
// only ever touched by the goroutine that owns it (see Handle's docs on why
// Go models "thread-local" as an explicit, caller-held context rather than
// an implicit per-OS-thread slot).
//
// # Usage
//
//	m := tlocal.NewMember(5) // like tlm<int> init=5
//	h := tlocal.NewHandle()
//	defer h.Release()
//
//	fmt.Println(tlocal.Get(h, m)) // 5
//	tlocal.Set(h, m, 7)
package tlocal
