package pool

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/FlovinTue/gdul/internal/cacheline"
	"github.com/FlovinTue/gdul/internal/faults"
	"github.com/FlovinTue/gdul/internal/mpmcqueue"
)

// maxBlockSlots is the fixed size of a block ring: up to 19 block slots.
const maxBlockSlots = 19

// keyCapBits is the width of the packed key's capacity field; the remaining
// bits hold the block's begin address shifted right by 3, since every block
// is allocated with at least 8-byte alignment.
const (
	keyCapBits      = 19
	keyAddrBits     = 64 - keyCapBits
	maxCapacityRows = (1 << keyCapBits) - 1
	addrShift       = 3
)

// block is a fixed-capacity contiguous array of T, carved into cache
// slices at publication time and never resized.
type block[T any] struct {
	items   []T
	key     uint64
	capRows uint32
	rowLen  int

	pushSync atomic.Uint32
	living   atomic.Int64
}

// packBlockKey packs a block's begin address and row capacity into a single
// word, so containment tests need no dereference of the block itself.
func packBlockKey(beginAddr uintptr, capRows uint32) uint64 {
	return uint64(capRows&maxCapacityRows)<<keyAddrBits | uint64(beginAddr>>addrShift)
}

func unpackBlockKey(key uint64) (beginAddr uintptr, capRows uint32) {
	capRows = uint32(key >> keyAddrBits)
	beginAddr = uintptr(key&((1<<keyAddrBits)-1)) << addrShift
	return
}

// checkBlockAlignment enforces spec §4.3.4/§6's block-alignment
// requirement: packBlockKey only reconstructs a block's begin address from
// bits shifted right by addrShift, so it is lossless only if every block of
// T is guaranteed allocated on an addrShift-bit-aligned boundary. Go
// guarantees a slice's backing array is aligned to at least its element
// type's natural alignment, and no more — so a T whose natural alignment is
// below that threshold (e.g. byte, int32 on some platforms) could have its
// block allocated at an address the packed key cannot represent, silently
// corrupting every future containment check against that block. The pool
// refuses to construct rather than risk that.
func checkBlockAlignment[T any]() error {
	var zero T
	const required = uintptr(1) << addrShift
	if align := unsafe.Alignof(zero); align < required {
		return faults.Wrap("pool: new", fmt.Errorf("%w: alignment %d, need at least %d", ErrUnsupportedAlignment, align, required))
	}
	return nil
}

// contains reports whether p was carved from this block, via the packed
// address range rather than a linear scan of items.
func (b *block[T]) contains(p *T) bool {
	if len(b.items) == 0 {
		return false
	}
	begin, capRows := unpackBlockKey(b.key)
	addr := uintptr(unsafe.Pointer(p))
	size := uintptr(capRows) * uintptr(b.rowLen) * unsafe.Sizeof(b.items[0])
	return addr >= begin && addr < begin+size
}

// blockRing is the fixed array of lazily-allocated, exponentially growing
// blocks plus its release/acquire-ordered publication index.
type blockRing[T any] struct {
	slots [maxBlockSlots]atomic.Pointer[block[T]]

	_         cacheline.Pad
	end       atomic.Uint32
	_         cacheline.Pad
	rowLen    int
	cacheSize int
}

// ensure lazily allocates and publishes slot i. Any number of goroutines may
// race to call this for the same i; only one wins the CAS install, but
// every caller that reaches the install step helps slice the winner's block
// into caches, and any of them may advance the ring's end index once
// slicing is exhausted. A caller that finds slot i already installed returns
// that block at once, without helping.
func (r *blockRing[T]) ensure(i int, fullQueue *mpmcqueue.Queue[*cache[T]]) (*block[T], error) {
	slot := &r.slots[i]
	if b := slot.Load(); b != nil {
		return b, nil
	}

	capRows := uint32(1) << uint(i+1)
	if capRows > maxCapacityRows {
		return nil, faults.Wrap("pool: grow block ring", ErrCapacityExceeded)
	}

	nb := &block[T]{
		items:   make([]T, int(capRows)*r.rowLen),
		capRows: capRows,
		rowLen:  r.rowLen,
	}
	nb.living.Store(int64(capRows))
	// key must be fully computed before the block is published: a losing
	// CAS below reloads the winner's pointer with no further
	// synchronization, so any field set after publication would race.
	nb.key = packBlockKey(uintptr(unsafe.Pointer(&nb.items[0])), capRows)

	if !slot.CompareAndSwap(nil, nb) {
		nb = slot.Load()
	}

	// Step 3: slice into cacheSize-item caches, coordinated by push_sync so
	// every assisting goroutine does a disjoint share of the work.
	for {
		start := nb.pushSync.Add(uint32(r.cacheSize)) - uint32(r.cacheSize)
		if start >= nb.capRows {
			break
		}
		end := start + uint32(r.cacheSize)
		if end > nb.capRows {
			end = nb.capRows
		}
		c := newCache[T](int(end - start))
		for k := start; k < end; k++ {
			c.push(&nb.items[int(k)*r.rowLen])
		}
		fullQueue.Push(c)
	}

	// Step 4: publish blocks_end_index with release ordering. Harmless if
	// another assisting goroutine already did this.
	for {
		cur := r.end.Load()
		if cur != uint32(i) {
			break
		}
		if r.end.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	return nb, nil
}

// locate reports whether p was carved from any currently published block in
// this ring. It scans every published slot rather than only the most
// recent two, per the decision recorded in DESIGN.md.
func (r *blockRing[T]) locate(p *T) bool {
	end := int(r.end.Load())
	for i := 0; i < end; i++ {
		if b := r.slots[i].Load(); b != nil && b.contains(p) {
			return true
		}
	}
	return false
}
