package pool

import (
	"github.com/FlovinTue/gdul/internal/faults"
	"github.com/FlovinTue/gdul/tlocal"
)

// localState is one goroutine's private view into a Pool: its active
// full-cache, its in-progress deferred-reclaim cache, its outstanding
// retirees, and the reader-epoch values it last observed for every other
// lane.
type localState[T any] struct {
	full     *cache[T]
	deferred *cache[T]
	retirees []retiree[T]

	prevCounters [maxConcurrentGuards]uint64
}

// Handle is a goroutine's private context for one Pool, an explicit value
// the caller acquires once rather than implicit per-thread state (see
// github.com/FlovinTue/gdul/tlocal's Handle for the same pattern applied to
// the TLS slot table, which this type is built on top of). A Handle must
// not be used from more than one goroutine concurrently.
type Handle[T any] struct {
	pool     *Pool[T]
	th       *tlocal.Handle
	guardIdx int32 // -1 until the first Guard call acquires a reader-epoch lane
}

// NewHandle returns a new per-goroutine context bound to p.
func (p *Pool[T]) NewHandle() *Handle[T] {
	return &Handle[T]{pool: p, th: tlocal.NewHandle(), guardIdx: -1}
}

func (h *Handle[T]) local() *localState[T] {
	st := tlocal.Get(h.th, h.pool.localMember)
	if st == nil {
		st = &localState[T]{}
		tlocal.Set(h.th, h.pool.localMember, st)
	}
	return st
}

// Get returns a usable item, drawing from the local full-cache, then the
// global full-cache queue, then growing the block ring, in that order. It
// never returns a nil item; ErrCapacityExceeded is the only failure mode,
// reported as an error rather than a null pointer since Get has no null T
// to return.
func (h *Handle[T]) Get() (*T, error) {
	st := h.local()
	for {
		if st.full != nil {
			if p, ok := st.full.pop(); ok {
				return p, nil
			}
			h.pool.emptyQueue.Push(st.full)
			st.full = nil
		}
		if c, ok := h.pool.fullQueue.Pop(); ok {
			st.full = c
			continue
		}
		if err := h.pool.growBlocks(); err != nil {
			return nil, err
		}
	}
}

// Recycle marks item as eligible for reuse once no guarded reader could
// still be observing it. item must have come from this Pool's Get, whether
// directly or via an item still alive from before an UnsafeReset; any other
// value is a fatal precondition violation.
func (h *Handle[T]) Recycle(item *T) {
	if item == nil {
		faults.Violate("pool: recycle nil item", "item must not be nil")
	}

	p := h.pool
	if !p.ring.locate(item) {
		if b, ok := p.discardFromRetired(item); ok {
			if b.living.Add(-1) == 0 {
				p.dropRetiredBlock(b)
			}
			return
		}
		faults.Violate("pool: recycle foreign item", "item address not contained in any published block, live or retired")
	}

	st := h.local()
	if st.deferred == nil {
		st.deferred = p.acquireEmptyCache()
	}
	if !st.deferred.push(item) {
		h.retire(st)
		st.deferred.push(item)
	}
	if st.deferred.full() {
		h.retire(st)
	}
}

// retire evaluates outstanding retirees for reclamation: AND each
// outstanding retiree's mask with this round's (odd & unchanged) mask,
// publish any that reached zero, then retire the just-filled deferred
// cache with a fresh mask of the lanes currently mid-critical-section and
// acquire a new empty cache to replace it. Mirrors the original's
// update_index_cache/evaluate_caches_for_reclamation pair: a retiree's mask
// only ever shrinks, and a lane's bit drops out the moment that lane is
// observed to have left its critical section or moved on to a new one.
func (h *Handle[T]) retire(st *localState[T]) {
	odd, unchanged := h.indexMasks(st)
	round := odd & unchanged

	kept := st.retirees[:0]
	for _, r := range st.retirees {
		r.mask &= round
		if r.mask == 0 {
			h.pool.fullQueue.Push(r.cache)
			continue
		}
		kept = append(kept, r)
	}
	st.retirees = kept

	st.retirees = append(st.retirees, retiree[T]{mask: odd, cache: st.deferred})
	st.deferred = h.pool.acquireEmptyCache()
}

// indexMasks computes this round's two lane masks, updating st.prevCounters
// as it goes: odd has bit i set iff lane i's counter is currently odd (that
// lane is mid critical-section right now); unchanged has bit i set iff lane
// i's counter is the same value observed on the previous call. A lane only
// stays a hazard for an existing retiree while it is both odd and unchanged
// — the instant it is seen even (left its critical section) or changed
// (moved on to a later one, having necessarily passed back through even in
// between), it can no longer be observing anything retired before this
// round. The own lane is always cleared from both masks.
func (h *Handle[T]) indexMasks(st *localState[T]) (odd, unchanged uint32) {
	for i := 0; i < maxConcurrentGuards; i++ {
		if int32(i) == h.guardIdx {
			continue
		}
		cur := h.pool.epochs[i].counter.Load()
		prev := st.prevCounters[i]
		st.prevCounters[i] = cur
		if cur%2 != 0 {
			odd |= 1 << uint(i)
		}
		if cur == prev {
			unchanged |= 1 << uint(i)
		}
	}
	return odd, unchanged
}

// ensureGuardSlot lazily acquires this Handle's reader-epoch lane, held for
// the Handle's lifetime once acquired.
func (h *Handle[T]) ensureGuardSlot() int32 {
	if h.guardIdx >= 0 {
		return h.guardIdx
	}
	idx, ok := h.pool.guardIdx.Acquire()
	if !ok {
		faults.Violate("pool: guard overflow", "more than the maximum concurrent guarders against this pool")
	}
	h.guardIdx = int32(idx)
	return h.guardIdx
}

// Guard runs fn inside a critical region: h's reader-epoch counter is odd
// for the duration of the call, so any other goroutine's recycle of an item
// fn might read cannot be reclaimed until this call returns. Guard is a
// package-level function rather than a method because Go methods cannot
// introduce a type parameter beyond the receiver's.
func Guard[T any, R any](h *Handle[T], fn func() R) R {
	idx := h.ensureGuardSlot()
	h.pool.epochs[idx].counter.Add(1)
	defer h.pool.epochs[idx].counter.Add(1)
	return fn()
}

// Release returns h's outstanding caches to the pool's global queues and
// frees its reader-epoch lane, if one was acquired. Call this once when the
// owning goroutine is done with the Pool, typically via defer right after
// NewHandle.
func (h *Handle[T]) Release() {
	st := h.local()
	if st.full != nil {
		h.pool.fullQueue.Push(st.full)
		st.full = nil
	}
	if st.deferred != nil {
		if st.deferred.n > 0 {
			// retire leaves st.deferred holding a freshly acquired, empty
			// replacement cache; give it straight back rather than stranding it.
			h.retire(st)
		}
		h.pool.emptyQueue.Push(st.deferred)
		st.deferred = nil
	}
	if h.guardIdx >= 0 {
		h.pool.guardIdx.Release(uint32(h.guardIdx))
		h.guardIdx = -1
	}
	h.th.Release()
}
