package alloc

// Stats holds allocator counters. Values are a snapshot; the allocator keeps
// updating its own copy.
type Stats struct {
	GrowCalls int   `json:"grow_calls"` // Number of successful arena growths
	GrowBytes int64 `json:"grow_bytes"` // Total bytes granted by the source (arena size)

	AllocCalls int `json:"alloc_calls"` // Alloc calls, including those made by Calloc and Realloc
	FreeCalls  int `json:"free_calls"`  // Free calls with a non-nil pointer, plus Realloc moves

	SplitCount       int `json:"split_count"`       // Allocations carved from a larger free block
	ExactFits        int `json:"exact_fits"`        // Allocations that unlinked a whole free block
	CoalesceForward  int `json:"coalesce_forward"`  // Frees merged with the block above
	CoalesceBackward int `json:"coalesce_backward"` // Frees merged into the block below

	InvalidPointers int `json:"invalid_pointers"` // Pointers rejected by validation

	BlocksInUse int   `json:"blocks_in_use"` // Live allocations
	BytesInUse  int64 `json:"bytes_in_use"`  // Requested bytes across live allocations
	ArenaBytes  int64 `json:"arena_bytes"`   // heapEnd - heapStart
}

// Stats returns a snapshot of the allocator counters.
func (a *FreeListAllocator) Stats() Stats {
	s := a.stats
	s.ArenaBytes = int64(a.heapEnd - a.heapStart)
	return s
}
