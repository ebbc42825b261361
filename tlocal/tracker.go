package tlocal

import (
	"sync/atomic"

	"github.com/FlovinTue/gdul/internal/growarray"
	"github.com/FlovinTue/gdul/internal/idxpool"
)

// tracker is the untyped, process-wide record behind one Member, holding
// the construction argument and the iteration number at which it (or its
// most recent successor at the same index) was installed.
type tracker struct {
	init      any
	iteration uint64
}

var (
	// indexPool hands out slot indices, unbounded (any number of Members may
	// be alive at once).
	indexPool = idxpool.New(0)

	// trackers is shared across every Member regardless of its T, since the
	// slot index space is itself untyped; Member[T] performs the type
	// assertion on read.
	trackers = growarray.New[tracker](8)

	// iteration is the process-wide counter handed to each newly constructed
	// Member, establishing the total order refresh depends on.
	iteration atomic.Uint64
)
