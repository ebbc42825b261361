package pool

import (
	"sync"

	"github.com/FlovinTue/gdul/internal/faults"
	"github.com/FlovinTue/gdul/internal/idxpool"
	"github.com/FlovinTue/gdul/internal/mpmcqueue"
	"github.com/FlovinTue/gdul/obslog"
	"github.com/FlovinTue/gdul/tlocal"
	"github.com/joeycumines/logiface"
)

// Pool is a typed, lock-free object pool with guarded reclamation. The zero
// Pool is not usable; construct one with New.
type Pool[T any] struct {
	opts options

	ring       *blockRing[T]
	fullQueue  *mpmcqueue.Queue[*cache[T]]
	emptyQueue *mpmcqueue.Queue[*cache[T]]

	retiredMu sync.Mutex
	retired   []*blockRing[T]

	localMember *tlocal.Member[*localState[T]]
	guardIdx    *idxpool.Pool
	epochs      [maxConcurrentGuards]epochLane

	logger *logiface.Logger[*obslog.Event]
}

// New constructs a Pool, eagerly publishing enough block-ring slots to
// cover BaseCapacity (rounded up to a power of two).
func New[T any](opts ...Option) (*Pool[T], error) {
	if err := checkBlockAlignment[T](); err != nil {
		return nil, err
	}

	o := resolveOptions(opts)

	logger := o.logger
	if logger == nil {
		logger = obslog.Logger()
	}

	p := &Pool[T]{
		opts: o,
		ring: &blockRing[T]{
			rowLen:    o.rowLength,
			cacheSize: o.threadCacheSize,
		},
		fullQueue:  mpmcqueue.New[*cache[T]](),
		emptyQueue: mpmcqueue.New[*cache[T]](),
		guardIdx:   idxpool.New(maxConcurrentGuards),
		logger:     logger,
	}
	p.localMember = tlocal.NewMember[*localState[T]](nil)

	if err := p.reserve(o.baseCapacity); err != nil {
		return nil, err
	}
	return p, nil
}

// reserve eagerly allocates and publishes ring slots, starting from slot 0,
// until their combined row capacity covers need.
func (p *Pool[T]) reserve(need int) error {
	var sum uint32
	for i := 0; sum < uint32(need) && i < maxBlockSlots; i++ {
		if _, err := p.ring.ensure(i, p.fullQueue); err != nil {
			return err
		}
		sum += uint32(1) << uint(i+1)
	}
	return nil
}

// growBlocks publishes the next block-ring slot, or reports
// ErrCapacityExceeded once the next slot's row capacity no longer fits the
// packed block key. Slot 18 (2^19 rows) is the first that does not fit, so
// at most 18 slots are ever published.
func (p *Pool[T]) growBlocks() error {
	i := int(p.ring.end.Load())
	if i >= maxBlockSlots {
		return faults.Wrap("pool: get", ErrCapacityExceeded)
	}
	_, err := p.ring.ensure(i, p.fullQueue)
	return err
}

func (p *Pool[T]) acquireEmptyCache() *cache[T] {
	if c, ok := p.emptyQueue.Pop(); ok {
		c.reset()
		return c
	}
	return newCache[T](p.opts.threadCacheSize)
}

// discardFromRetired searches every block ring retired by a prior
// UnsafeReset for the block that produced item, covering items recycled
// after their generation's ring was replaced.
func (p *Pool[T]) discardFromRetired(item *T) (*block[T], bool) {
	p.retiredMu.Lock()
	defer p.retiredMu.Unlock()
	for _, ring := range p.retired {
		end := int(ring.end.Load())
		for i := 0; i < end; i++ {
			if b := ring.slots[i].Load(); b != nil && b.contains(item) {
				return b, true
			}
		}
	}
	return nil, false
}

// dropRetiredBlock clears a fully-discarded retired block's slot once its
// living_items count has reached zero, releasing the block. If that was the
// last live block in its retired ring, the ring itself is dropped from
// p.retired so a Pool that's reset many times doesn't accumulate an
// unbounded list of empty rings.
func (p *Pool[T]) dropRetiredBlock(b *block[T]) {
	p.retiredMu.Lock()
	defer p.retiredMu.Unlock()
	for ri, ring := range p.retired {
		found := false
		for i := range ring.slots {
			if ring.slots[i].Load() == b {
				ring.slots[i].Store(nil)
				found = true
				break
			}
		}
		if !found {
			continue
		}
		if ringEmpty(ring) {
			p.retired = append(p.retired[:ri], p.retired[ri+1:]...)
		}
		return
	}
}

// ringEmpty reports whether every published slot in ring has already been
// cleared, meaning no live handle can still be holding an item from any of
// its blocks.
func ringEmpty[T any](ring *blockRing[T]) bool {
	end := int(ring.end.Load())
	for i := 0; i < end; i++ {
		if ring.slots[i].Load() != nil {
			return false
		}
	}
	return true
}

// UnsafeReset replaces the pool's block ring and queues with fresh ones,
// re-reserving BaseCapacity as New did. The outgoing ring is kept (not
// freed) so that items recycled after the reset, from generations still
// held by callers, can still be found and discarded via their block's
// living count rather than triggering a false foreign-item violation. A
// retired ring is dropped from p.retired, in its entirety, once every one
// of its blocks has had dropRetiredBlock clear its slot; an item that's
// simply dropped by its holder rather than ever passed back to Recycle
// means its block's living count never reaches zero, so a retired ring
// holding one can persist indefinitely — callers that reset repeatedly
// should still Recycle every outstanding item from a prior generation
// rather than discarding it, if they want retired rings to be reclaimable.
// Concurrent use of any other method during UnsafeReset is undefined
// behavior.
func (p *Pool[T]) UnsafeReset() {
	// Items still queued in the outgoing generation were never handed out, so
	// no caller can Recycle them: take them off their blocks' living counts now.
	old := p.ring
	for c, ok := p.fullQueue.Pop(); ok; c, ok = p.fullQueue.Pop() {
		for item, ok := c.pop(); ok; item, ok = c.pop() {
			for i := 0; i < int(old.end.Load()); i++ {
				if b := old.slots[i].Load(); b != nil && b.contains(item) && b.living.Add(-1) == 0 {
					old.slots[i].Store(nil)
				}
			}
		}
	}

	p.retiredMu.Lock()
	if !ringEmpty(old) {
		p.retired = append(p.retired, old)
	}
	p.retiredMu.Unlock()

	p.ring = &blockRing[T]{rowLen: p.opts.rowLength, cacheSize: p.opts.threadCacheSize}
	p.fullQueue = mpmcqueue.New[*cache[T]]()
	p.emptyQueue = mpmcqueue.New[*cache[T]]()

	if err := p.reserve(p.opts.baseCapacity); err != nil {
		faults.Violate("pool: reset failed to re-reserve base capacity", err.Error())
	}
}

// PoolStats is a diagnostic snapshot of a Pool's block ring.
type PoolStats struct {
	PublishedBlocks int
	TotalCapacity   uint64
}

// Stats returns a point-in-time snapshot of the live block ring's
// publication state. It takes no lock and may race with concurrent growth;
// the numbers it returns were each true at some instant during the call.
func (p *Pool[T]) Stats() PoolStats {
	end := int(p.ring.end.Load())
	var total uint64
	for i := 0; i < end; i++ {
		if b := p.ring.slots[i].Load(); b != nil {
			total += uint64(b.capRows)
		}
	}
	return PoolStats{PublishedBlocks: end, TotalCapacity: total}
}
