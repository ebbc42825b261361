package pool

import (
	"sync/atomic"

	"github.com/FlovinTue/gdul/internal/cacheline"
)

// maxConcurrentGuards is the fixed number of reader-epoch lanes, and so the
// maximum number of goroutines that may ever call Guard against one Pool
// concurrently.
const maxConcurrentGuards = 16

// epochLane is one cache-line-padded counter in the reader-epoch array.
// Even means the owning goroutine is not inside a guarded region; odd means
// it is.
type epochLane struct {
	_       cacheline.Pad
	counter atomic.Uint64
	_       cacheline.Pad
}

// retiree is a deferred-reclaim cache still waiting on an all-clear from
// the other participating goroutines.
type retiree[T any] struct {
	mask  uint32
	cache *cache[T]
}
