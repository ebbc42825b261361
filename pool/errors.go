package pool

import "errors"

// ErrCapacityExceeded is returned when a Pool's block ring cannot grow any
// further: every slot up to its maximum capacity is already published. The
// Pool remains usable at whatever capacity it already reached.
var ErrCapacityExceeded = errors.New("pool: capacity exceeded")

// ErrUnsupportedAlignment is returned by New when T's natural alignment is
// below the block ring's required minimum (spec §4.3.4/§6: block alignment
// must be at least 8 bytes so the packed block_key can reconstruct a
// block's begin address losslessly). The Pool is never constructed in this
// case; there is no partially-built state to leave behind.
var ErrUnsupportedAlignment = errors.New("pool: unsupported element alignment")
