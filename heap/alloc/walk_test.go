package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BlocksTileHeap(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	sizes := []int{5, 0, 40, 300, 17}
	for i, n := range sizes {
		mustAlloc(t, a, n, byte(i))
	}

	start, end := a.HeapBounds()
	next := start
	var lens []int
	err := a.Blocks(func(b BlockInfo) bool {
		assert.Equal(t, next, b.Header, "blocks must be contiguous")
		assert.Equal(t, b.Header+UnitSize, b.Ptr)
		next = b.Header + Ptr(b.Bytes())
		if !b.Free() {
			lens = append(lens, b.Len)
		}
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, end, next, "walk must end at the heap end")

	// Carved from the high end: address order is the reverse of allocation order.
	assert.Equal(t, []int{17, 300, 40, 0, 5}, lens)
	assert.Equal(t, 1, a.Stats().GrowCalls)
}

func Test_BlocksEarlyStop(t *testing.T) {
	a, _ := newTestAllocator(t, nil)
	for range 5 {
		mustAlloc(t, a, 8, 0)
	}

	visited := 0
	require.NoError(t, a.Blocks(func(BlockInfo) bool {
		visited++
		return visited < 2
	}))
	assert.Equal(t, 2, visited)
}

func Test_BlocksEmptyHeap(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	called := false
	require.NoError(t, a.Blocks(func(BlockInfo) bool { called = true; return true }))
	require.NoError(t, a.FreeBlocks(func(BlockInfo) bool { called = true; return true }))
	assert.False(t, called)
}

func Test_FreeBlocksAddressOrder(t *testing.T) {
	a, _ := newTestAllocator(t, nil)

	var ptrs []Ptr
	for i := range 8 {
		ptrs = append(ptrs, mustAlloc(t, a, 32, byte(i)))
	}
	// Free every other block so none of them can merge.
	for i := 0; i < len(ptrs); i += 2 {
		require.NoError(t, a.Free(ptrs[i]))
	}

	list := freeList(t, a)
	require.Len(t, list, 5, "remainder plus four isolated blocks")
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Header, list[i].Header)
	}
	for _, b := range list {
		assert.True(t, b.Free())
	}
}
