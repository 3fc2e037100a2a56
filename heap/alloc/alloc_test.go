package alloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
)

func Test_AllocRoundtrip(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	p, err := a.Alloc(11)
	require.NoError(t, err)
	require.NotEqual(t, Nil, p)

	b, err := a.Bytes(p)
	require.NoError(t, err)
	require.Len(t, b, 11)
	copy(b, "ABCDEFGHIJ\x00")

	again, err := a.Bytes(p)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCDEFGHIJ\x00"), again)

	usable, err := a.UsableSize(p)
	require.NoError(t, err)
	assert.Equal(t, 16, usable, "11 bytes round up to one unit")

	assertInvariants(t, a)
}

func Test_AllocZeroIsDistinctAndFreeable(t *testing.T) {
	a, diag := newTestAllocator(t, nil)

	p1, err := a.Alloc(0)
	require.NoError(t, err)
	p2, err := a.Alloc(0)
	require.NoError(t, err)

	require.NotEqual(t, Nil, p1)
	require.NotEqual(t, Nil, p2)
	assert.NotEqual(t, p1, p2)

	// The first block is carved from the very top of the heap.
	_, end := a.HeapBounds()
	assert.Equal(t, end-UnitSize, p1)
	assert.Less(t, p1, end)

	b, err := a.Bytes(p1)
	require.NoError(t, err)
	assert.Empty(t, b)
	usable, err := a.UsableSize(p1)
	require.NoError(t, err)
	assert.Equal(t, UnitSize, usable)

	require.NoError(t, a.Free(p1))
	require.NoError(t, a.Free(p2))
	assert.Empty(t, diag.String())
	assertInvariants(t, a)
}

func Test_AllocZeroReallocGrows(t *testing.T) {
	a, diag := newTestAllocator(t, nil)

	p, err := a.Alloc(0)
	require.NoError(t, err)

	q, err := a.Realloc(p, 32)
	require.NoError(t, err)
	require.NotEqual(t, Nil, q)
	assert.Empty(t, diag.String())
	assert.Equal(t, 1, a.Stats().BlocksInUse)
	assertInvariants(t, a)
}

func Test_AllocAlignment(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	for size := range 100 {
		p, err := a.Alloc(size)
		require.NoError(t, err)
		assert.Zero(t, uint64(p)%UnitSize, "size %d: pointer %s not aligned", size, p)
	}
}

func Test_AllocNonOverlapping(t *testing.T) {
	a, _ := newTestAllocator(t, &Options{MinGrowthUnits: 8})

	ptrs := make([]Ptr, 0, 200)
	for i := range 200 {
		ptrs = append(ptrs, mustAlloc(t, a, 1+i*7%150, byte(i)))
	}

	for i, p := range ptrs {
		b, err := a.Bytes(p)
		require.NoError(t, err)
		require.True(t, allBytes(b, byte(i)), "block %d (%s) was overwritten", i, p)
	}
	assertInvariants(t, a)
}

func Test_AllocNegativeSize(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	_, err := a.Alloc(-1)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func Test_AllocSplitsFromHighEnd(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	p1, err := a.Alloc(16)
	require.NoError(t, err)

	_, end := a.HeapBounds()
	assert.Equal(t, end-UnitSize, p1, "first block carved from the top of the new arena")

	p2, err := a.Alloc(16)
	require.NoError(t, err)
	assert.Equal(t, p1-2*UnitSize, p2, "second block sits directly below the first")

	s := a.Stats()
	assert.Equal(t, 2, s.SplitCount)
	assert.Equal(t, 1, s.GrowCalls)

	// The free remainder keeps its address.
	free := freeList(t, a)
	require.Len(t, free, 1)
	start, _ := a.HeapBounds()
	assert.Equal(t, start, free[0].Header)
	assert.Equal(t, uint64(DefaultMinGrowthUnits-4), free[0].Units)
}

func Test_AllocExactFit(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	p1 := mustAlloc(t, a, 100, 'a')
	spacer := mustAlloc(t, a, 16, 'b')
	require.NoError(t, a.Free(p1))

	p3, err := a.Alloc(100)
	require.NoError(t, err)
	assert.Equal(t, p1, p3, "freed block reused whole")
	assert.Equal(t, 1, a.Stats().ExactFits)

	b, err := a.Bytes(spacer)
	require.NoError(t, err)
	assert.True(t, allBytes(b, 'b'))
	assertInvariants(t, a)
}

func Test_AllocGrowthCoalescesWithTopBlock(t *testing.T) {
	a, _ := newTestAllocator(t, &Options{MinGrowthUnits: 4})

	p, err := a.Alloc(16)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))
	require.Len(t, freeList(t, a), 1)

	// 6 units do not fit in the 4-unit heap: growth must append to the
	// trailing free block instead of starting a second one.
	_, err = a.Alloc(80)
	require.NoError(t, err)

	s := a.Stats()
	assert.Equal(t, 2, s.GrowCalls)
	assert.Equal(t, int64(10*UnitSize), s.ArenaBytes)
	assert.GreaterOrEqual(t, s.CoalesceBackward, 2)

	free := freeList(t, a)
	require.Len(t, free, 1)
	assert.Equal(t, uint64(4), free[0].Units)
	assertInvariants(t, a)
}

func Test_AllocOutOfMemory(t *testing.T) {
	a, _ := newTestAllocator(t, &Options{MaxArenaBytes: 4096, MinGrowthUnits: 16})

	_, err := a.Alloc(1 << 20)
	require.ErrorIs(t, err, ErrOutOfMemory)

	// A failed growth leaves the allocator usable.
	p := mustAlloc(t, a, 64, 'x')
	require.NoError(t, a.Free(p))
	assertInvariants(t, a)
}

func Test_AllocLargerThanBlockLimit(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	_, err := a.Alloc(math.MaxInt)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Zero(t, a.Stats().GrowCalls)
}

func Test_AllocCustomSource(t *testing.T) {
	src := newSliceSource(64<<10, 5)
	a, _ := newTestAllocator(t, &Options{Source: src, MinGrowthUnits: 64})

	p := mustAlloc(t, a, 40, 'q')
	assert.Zero(t, uint64(p)%UnitSize)

	start, _ := a.HeapBounds()
	assert.Equal(t, Ptr(32), start, "break padded to 16, sentinel at 16")
	assertInvariants(t, a)

	require.NoError(t, a.Close())
	assert.True(t, src.closed)
}

func Test_AllocSourceExhausted(t *testing.T) {
	src := newSliceSource(format.UnitSize, 0)
	a, _ := newTestAllocator(t, &Options{Source: src})

	_, err := a.Alloc(1)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.ErrorIs(t, err, errSliceFull)
}

func Test_Closed(t *testing.T) {
	a, _ := newTestAllocator(t, nil)
	p := mustAlloc(t, a, 8, 1)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "second Close is a no-op")

	_, err := a.Alloc(8)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, a.Free(p), ErrClosed)
	_, err = a.Realloc(p, 16)
	require.ErrorIs(t, err, ErrClosed)
	_, err = a.Calloc(1, 1)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, a.Check(), ErrClosed)
}
