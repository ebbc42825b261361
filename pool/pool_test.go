package pool

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPool_UnderAlignedElementRejected checks that New refuses to construct
// a Pool over a T whose natural alignment is below the block ring's
// required minimum, rather than silently risking a mis-packed block_key.
func TestPool_UnderAlignedElementRejected(t *testing.T) {
	_, err := New[byte](BaseCapacity(1), ThreadCacheSize(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAlignment)
}

func TestPool_SingleThreadGetRecycleEventuallyReuses(t *testing.T) {
	p, err := New[int](BaseCapacity(4), ThreadCacheSize(4))
	require.NoError(t, err)
	h := p.NewHandle()
	defer h.Release()

	first, err := h.Get()
	require.NoError(t, err)
	h.Recycle(first)

	// With nobody else ever holding a guard open, every retiree clears on
	// the next round; a generous bound well clear of that confirms
	// reuse without depending on exact queue interleaving.
	var reused bool
	for i := 0; i < 32 && !reused; i++ {
		v, err := h.Get()
		require.NoError(t, err)
		if v == first {
			reused = true
		}
		h.Recycle(v)
	}
	assert.True(t, reused, "a recycled pointer should eventually be reissued")
}

// TestPool_BlockGrowthNoDoubleHandOut checks that repeated Get calls with
// no Recycle in between never hand out the same pointer twice, and that the
// block ring grows as needed without crashing.
func TestPool_BlockGrowthNoDoubleHandOut(t *testing.T) {
	p, err := New[int](BaseCapacity(2), ThreadCacheSize(1))
	require.NoError(t, err)
	h := p.NewHandle()
	defer h.Release()

	const n = 100
	seen := make(map[*int]bool, n)
	for i := 0; i < n; i++ {
		v, err := h.Get()
		require.NoError(t, err)
		require.False(t, seen[v], "duplicate pointer handed out at i=%d", i)
		seen[v] = true
	}

	stats := p.Stats()
	wantBlocks := int(math.Ceil(math.Log2(float64(n + 1))))
	assert.LessOrEqual(t, stats.PublishedBlocks, wantBlocks+1)
	assert.GreaterOrEqual(t, stats.TotalCapacity, uint64(n))
}

// TestPool_GuardDelaysReclamation checks that items read under an open
// guard are not reissued until that guard closes and a full quiescent
// round has elapsed since.
func TestPool_GuardDelaysReclamation(t *testing.T) {
	p, err := New[int](BaseCapacity(2), ThreadCacheSize(1))
	require.NoError(t, err)

	hA := p.NewHandle()
	defer hA.Release()
	hB := p.NewHandle()
	defer hB.Release()

	item, err := hA.Get()
	require.NoError(t, err)

	var reissuedInsideGuard bool
	Guard(hB, func() any {
		hA.Recycle(item)
		for i := 0; i < 8; i++ {
			v, err := hA.Get()
			require.NoError(t, err)
			if v == item {
				reissuedInsideGuard = true
			}
			hA.Recycle(v)
		}
		return nil
	})
	assert.False(t, reissuedInsideGuard, "item must not be reissued while hB's guard is open")

	var reissuedAfterGuard bool
	for i := 0; i < 8 && !reissuedAfterGuard; i++ {
		v, err := hA.Get()
		require.NoError(t, err)
		if v == item {
			reissuedAfterGuard = true
		}
		hA.Recycle(v)
	}
	assert.True(t, reissuedAfterGuard, "item should be reissued once hB's guard has closed")
}

// TestPool_ReclamationProgressesAgainstBusyNeighborGuard is a regression
// test for a liveness defect: a retiree's mask must drop a neighbor lane's
// bit the moment that lane is observed even or moved on to a later guard,
// not only once it has gone two consecutive evaluations without changing.
// A neighbor that keeps entering and leaving guards back-to-back would
// otherwise look "changed" on essentially every evaluation and permanently
// block reclamation. Here hB hammers Guard in a tight loop while hA
// Get/Recycles far more items than the pool's base capacity; if
// reclamation is making progress, the published block count stays below the
// number of blocks it would take to hand out a fresh item on every
// iteration.
func TestPool_ReclamationProgressesAgainstBusyNeighborGuard(t *testing.T) {
	p, err := New[int](BaseCapacity(2), ThreadCacheSize(1))
	require.NoError(t, err)

	hA := p.NewHandle()
	defer hA.Release()
	hB := p.NewHandle()
	defer hB.Release()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				Guard(hB, func() any { return nil })
			}
		}
	}()

	const iterations = 500
	for i := 0; i < iterations; i++ {
		v, err := hA.Get()
		require.NoError(t, err)
		hA.Recycle(v)
	}
	close(stop)
	<-done

	// Blocks (capacities 2, 4, 8, ...) needed to hold one fresh item per
	// iteration with no reuse at all.
	noReuseBlocks, capSum := 0, 0
	for capSum < iterations {
		capSum += 1 << (noReuseBlocks + 1)
		noReuseBlocks++
	}

	stats := p.Stats()
	assert.Less(t, stats.PublishedBlocks, noReuseBlocks,
		"reclamation should keep recycling items instead of growing a fresh block every iteration")
}

func TestPool_RecycleNilPanics(t *testing.T) {
	p, err := New[int](BaseCapacity(1), ThreadCacheSize(1))
	require.NoError(t, err)
	h := p.NewHandle()
	defer h.Release()

	assert.Panics(t, func() { h.Recycle(nil) })
}

func TestPool_RecycleForeignItemPanics(t *testing.T) {
	p, err := New[int](BaseCapacity(1), ThreadCacheSize(1))
	require.NoError(t, err)
	h := p.NewHandle()
	defer h.Release()

	foreign := new(int)
	assert.Panics(t, func() { h.Recycle(foreign) })
}

// TestPool_UnsafeResetDiscardsStaleItems checks that after a reset,
// recycling an item from a prior generation is silently absorbed
// (decrementing that block's living count) rather than reissued by the new
// generation.
func TestPool_UnsafeResetDiscardsStaleItems(t *testing.T) {
	p, err := New[int](BaseCapacity(2), ThreadCacheSize(1))
	require.NoError(t, err)
	h := p.NewHandle()
	defer h.Release()

	stale, err := p.NewHandle().Get()
	require.NoError(t, err)

	p.UnsafeReset()

	// Recycling the pre-reset item must not panic (it is still contained in
	// a retired, living block) and must not surface through the new
	// generation's Get results.
	assert.NotPanics(t, func() { h.Recycle(stale) })

	for i := 0; i < 8; i++ {
		v, err := h.Get()
		require.NoError(t, err)
		assert.NotEqual(t, stale, v)
		h.Recycle(v)
	}
}

// TestPool_UnsafeResetPrunesEmptiedRetiredRings checks that once every item
// from a retired generation has been recycled back through its original
// Handle (driving each block's living count to zero), the retired ring
// itself is dropped from the pool rather than lingering forever.
func TestPool_UnsafeResetPrunesEmptiedRetiredRings(t *testing.T) {
	p, err := New[int](BaseCapacity(2), ThreadCacheSize(1))
	require.NoError(t, err)
	h := p.NewHandle()
	defer h.Release()

	const n = 4
	stale := make([]*int, 0, n)
	for i := 0; i < n; i++ {
		v, err := h.Get()
		require.NoError(t, err)
		stale = append(stale, v)
	}

	p.UnsafeReset()
	require.Len(t, p.retired, 1, "the pre-reset ring should be retired")

	for _, v := range stale {
		h.Recycle(v)
	}

	assert.Len(t, p.retired, 0, "a retired ring should be pruned once every one of its blocks has emptied")
}

func TestPool_SingleItemPoolServicesOneAtATime(t *testing.T) {
	p, err := New[int](BaseCapacity(1), ThreadCacheSize(1))
	require.NoError(t, err)
	h := p.NewHandle()
	defer h.Release()

	v, err := h.Get()
	require.NoError(t, err)
	require.NotNil(t, v)
	h.Recycle(v)
}

// TestPool_ConcurrentGetRecycleNoCorruption is a torture test: many
// goroutines hammering Get/Recycle through independent Handles on a shared
// Pool must finish without a panic or deadlock. Each goroutine writes to its
// item inside a guard, so a pointer held by two goroutines at once shows up
// as a data race when run with -race; the test itself does not compare
// pointers across goroutines.
func TestPool_ConcurrentGetRecycleNoCorruption(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrency torture test in short mode")
	}

	p, err := New[int](BaseCapacity(8), ThreadCacheSize(4))
	require.NoError(t, err)

	const goroutines = 16
	const iterations = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			h := p.NewHandle()
			defer h.Release()
			for i := 0; i < iterations; i++ {
				v, err := h.Get()
				if err != nil {
					return
				}
				Guard(h, func() any {
					*v = i
					return nil
				})
				h.Recycle(v)
			}
		}()
	}
	wg.Wait()
}
