package growarray

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArray_SlotGrowsAndPersists(t *testing.T) {
	a := New[int](2)
	require.Equal(t, 2, a.Len())

	v := 7
	a.Slot(0).Store(&v)
	assert.Equal(t, 2, a.Len())

	// Index 5 is beyond the initial backing length; Slot must grow the
	// array and still return a stable cell for index 0.
	a.Slot(5).Store(&v)
	assert.GreaterOrEqual(t, a.Len(), 6)
	assert.Equal(t, &v, a.Slot(0).Load())
}

func TestArray_SnapshotNeverShrinksAndSeesGrowth(t *testing.T) {
	a := New[int](1)
	first := a.Snapshot()
	assert.Len(t, first, 1)

	a.Slot(10)
	second := a.Snapshot()
	assert.GreaterOrEqual(t, len(second), 11)
}

// TestArray_ConcurrentGrowthPreservesExistingEntries hammers Slot with many
// goroutines racing to grow the array to different, overlapping sizes,
// confirming the two-phase swap/copy/promote protocol never loses an
// already-installed value and every goroutine observes a consistent result.
func TestArray_ConcurrentGrowthPreservesExistingEntries(t *testing.T) {
	const goroutines = 32
	const perGoroutine = 64

	a := New[int](1)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		g := g
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				idx := g*perGoroutine + i
				val := idx
				a.Slot(idx).CompareAndSwap(nil, &val)
			}
		}()
	}
	wg.Wait()

	for g := 0; g < goroutines; g++ {
		for i := 0; i < perGoroutine; i++ {
			idx := g*perGoroutine + i
			p := a.Slot(idx).Load()
			require.NotNil(t, p, "slot %d was never installed", idx)
			assert.Equal(t, idx, *p)
		}
	}
}

// TestArray_ConcurrentGrowthAgainstLiveReader checks that a reader
// continuously scanning Snapshot never sees a torn/shrunk backing slice
// while writers concurrently force growth.
func TestArray_ConcurrentGrowthAgainstLiveReader(t *testing.T) {
	a := New[int](1)
	var maxSeen atomic.Int64
	var stop atomic.Bool

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			snap := a.Snapshot()
			if int64(len(snap)) < maxSeen.Load() {
				t.Errorf("snapshot length regressed: got %d, previously saw %d", len(snap), maxSeen.Load())
				return
			}
			maxSeen.Store(int64(len(snap)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			v := i
			a.Slot(i).Store(&v)
		}
		stop.Store(true)
	}()
	wg.Wait()
}
