// Package idxpool implements the "index pool" primitive described for the
// TLS slot table: a set of integers partitioned into in-use and free, which
// grows monotonically via a next-unused counter when the free set is empty,
// and otherwise reuses a freed index.
//
// The same primitive backs two distinct users in this module: tlocal's
// unbounded per-variable slot index, and the guarded pool's bounded
// (UMax-capped) reader-epoch lane. Both are lock-free stacks; ABA safety on
// the free-stack top comes from a generation tag packed alongside the head
// pointer in a single atomic.Uint64, the same "copy, mutate one lane, CAS"
// shape the DWCAS cell implements at 128 bits, shrunk to fit a plain 64-bit
// atomic since a 32-bit index and a 32-bit generation are all the state the
// free-stack top needs.
package idxpool

import (
	"sync/atomic"

	"github.com/FlovinTue/gdul/internal/growarray"
)

// Pool allocates and recycles small non-negative integer indices.
// A zero Pool is not usable; construct with New.
type Pool struct {
	next  atomic.Uint32
	limit uint32 // 0 means unbounded
	free  *growarray.Array[uint32]
	top   atomic.Uint64 // packed (head+1)<<32 | generation; head+1==0 means empty
}

// New returns an index pool. limit, if non-zero, caps the number of
// simultaneously in-use indices (Acquire fails once that many are live and
// none have been released).
func New(limit uint32) *Pool {
	return &Pool{limit: limit, free: growarray.New[uint32](8)}
}

func packTop(headPlus1, gen uint32) uint64 {
	return uint64(headPlus1)<<32 | uint64(gen)
}

func unpackTop(v uint64) (headPlus1, gen uint32) {
	return uint32(v >> 32), uint32(v)
}

// Acquire returns a previously-freed index if one is available, otherwise
// grows the pool by one via the next-unused counter. ok is false only when
// the pool has a limit and every index up to that limit is currently in use.
func (p *Pool) Acquire() (idx uint32, ok bool) {
	for {
		cur := p.top.Load()
		headPlus1, gen := unpackTop(cur)
		if headPlus1 == 0 {
			n := p.next.Load()
			if p.limit != 0 && n >= p.limit {
				return 0, false
			}
			if p.next.CompareAndSwap(n, n+1) {
				return n, true
			}
			continue
		}

		head := headPlus1 - 1
		nextCell := p.free.Slot(int(head))
		nextBoxed := nextCell.Load()
		var nextFreePlus1 uint32
		if nextBoxed != nil {
			nextFreePlus1 = *nextBoxed + 1
		}
		newTop := packTop(nextFreePlus1, gen+1)
		if p.top.CompareAndSwap(cur, newTop) {
			return head, true
		}
	}
}

// Release returns idx to the free set, making it eligible for a future
// Acquire. Releasing an index not currently held by the caller, or
// releasing the same index twice without an intervening Acquire, corrupts
// the free stack; callers must maintain that discipline themselves, the
// same obligation tlocal's variable destruction and the guarded pool's
// handle release place on their own callers.
func (p *Pool) Release(idx uint32) {
	boxed := new(uint32)
	for {
		cur := p.top.Load()
		headPlus1, gen := unpackTop(cur)
		*boxed = 0
		if headPlus1 != 0 {
			*boxed = headPlus1 - 1
		} else {
			boxed = nil
		}
		p.free.Slot(int(idx)).Store(boxed)
		newTop := packTop(idx+1, gen+1)
		if p.top.CompareAndSwap(cur, newTop) {
			return
		}
		boxed = new(uint32)
	}
}

// Limit returns the configured capacity, or 0 if unbounded.
func (p *Pool) Limit() uint32 { return p.limit }
