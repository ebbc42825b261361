// Package pool implements a lock-free object pool with guarded, epoch-style
// reclamation: items are drawn from pre-allocated, exponentially growing
// blocks, recycled through per-goroutine caches, and only handed back to the
// global free list once no guarded reader could still be observing the
// epoch they were retired in.
//
// # Architecture
//
// Three moving parts:
//   - A block ring ([blockRing]) of 19 slots for lazily-allocated blocks,
//     each double the capacity of the last, sliced into fixed-size caches as
//     soon as they are published. The last slot's capacity does not fit the
//     packed block key, so at most 18 blocks are ever published.
//   - A pair of lock-free queues ([github.com/FlovinTue/gdul/internal/mpmcqueue])
//     exchanging those caches between goroutines: one holding caches ready
//     for [Handle.Get], one holding depleted caches ready to be refilled by
//     [Handle.Recycle].
//   - A bounded reader-epoch array, one counter per concurrently guarding
//     goroutine, used to decide when a goroutine's recently recycled items
//     are safe to publish back to the full-cache queue.
//
// Per-goroutine state — the active full-cache, the in-progress
// deferred-reclaim cache, and the retiree list awaiting an all-clear — lives
// behind a [github.com/FlovinTue/gdul/tlocal.Member], addressed through the
// same [github.com/FlovinTue/gdul/tlocal.Handle] mechanism the TLS slot
// table uses: there is no implicit per-goroutine storage in Go, so every
// goroutine that touches a Pool acquires its own [Handle] once and threads
// it through every call.
//
// # Thread Safety
//
// Get, Recycle and Guard are lock-free and safe for any number of goroutines
// to call concurrently, each through its own Handle (a Handle itself must
// not be shared across goroutines, any more than a tlocal.Handle may be).
// UnsafeReset is not: it must run with no other goroutine concurrently
// calling any other method on the same Pool.
//
// # Usage
//
//	p, err := pool.New[MyNode](pool.BaseCapacity(64), pool.ThreadCacheSize(16))
//	h := p.NewHandle()
//	defer h.Release()
//
//	item, err := h.Get()
//	// ... use item, protected by a guard if other goroutines may recycle
//	// concurrently ...
//	h.Recycle(item)
package pool
