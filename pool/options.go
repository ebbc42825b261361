package pool

import (
	"github.com/FlovinTue/gdul/obslog"
	"github.com/joeycumines/logiface"
)

// Option configures a Pool at construction time, in the functional-option
// style: each Option is applied in turn over the defaults by resolveOptions.
type Option interface {
	applyPoolOption(*options)
}

type optionFunc func(*options)

func (f optionFunc) applyPoolOption(o *options) { f(o) }

type options struct {
	baseCapacity    int
	threadCacheSize int
	rowLength       int
	logger          *logiface.Logger[*obslog.Event]
}

// resolveOptions applies opts over the documented defaults and rounds
// BaseCapacity / ThreadCacheSize up to powers of two, clamping
// ThreadCacheSize to BaseCapacity.
func resolveOptions(opts []Option) options {
	o := options{
		baseCapacity:    1,
		threadCacheSize: 1,
		rowLength:       1,
	}
	for _, opt := range opts {
		opt.applyPoolOption(&o)
	}
	o.baseCapacity = nextPow2(o.baseCapacity)
	o.threadCacheSize = nextPow2(o.threadCacheSize)
	if o.threadCacheSize > o.baseCapacity {
		o.threadCacheSize = o.baseCapacity
	}
	return o
}

// BaseCapacity sets the initial reserved item count, rounded up to a power
// of two. Required to be at least 1.
func BaseCapacity(n int) Option {
	return optionFunc(func(o *options) {
		if n < 1 {
			n = 1
		}
		o.baseCapacity = n
	})
}

// ThreadCacheSize sets the number of items per thread-local cache slice,
// rounded up to a power of two and clamped to BaseCapacity.
func ThreadCacheSize(n int) Option {
	return optionFunc(func(o *options) {
		if n < 1 {
			n = 1
		}
		o.threadCacheSize = n
	})
}

// RowLength sets the number of contiguous Ts each item actually spans,
// letting a Pool[T] serve as a pool of small fixed-length arrays of T
// (default 1).
func RowLength(n int) Option {
	return optionFunc(func(o *options) {
		if n < 1 {
			n = 1
		}
		o.rowLength = n
	})
}

// Logger sets the diagnostic logger the Pool keeps for itself (by default
// the shared logger from github.com/FlovinTue/gdul/obslog at New). No Pool
// code path logs through it: invariant violations are reported through
// obslog's shared logger whatever this option says.
func Logger(l *logiface.Logger[*obslog.Event]) Option {
	return optionFunc(func(o *options) { o.logger = l })
}

func nextPow2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
