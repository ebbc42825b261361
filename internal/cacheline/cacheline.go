// Package cacheline provides false-sharing padding for hot atomic fields,
// using golang.org/x/sys/cpu's CacheLinePad as the source of cache
// geometry rather than a hard-coded constant.
package cacheline

import "golang.org/x/sys/cpu"

// Pad is embedded before and/or after a hot atomic field to keep it off a
// cache line shared with neighboring fields.
type Pad = cpu.CacheLinePad
