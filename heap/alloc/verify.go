package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// VerifyError describes the first structural inconsistency Check found.
type VerifyError struct {
	Type    string // Error category, e.g. "FreeList"
	Message string // Human-readable description
	Offset  int64  // Arena offset where the error occurred (-1 if N/A)
}

func (e *VerifyError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("alloc: %s at %#x: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("alloc: %s: %s", e.Type, e.Message)
}

// Check walks the whole heap and the free list and cross-checks them:
//   - every block has a known tag and fits in the heap
//   - no two free blocks that fit in one header are address-adjacent
//   - the free list is in ascending address order from the sentinel
//   - every free list node is a free block found by the walk, and vice versa
//   - the live block count matches the statistics
//
// Check is O(heap blocks) and intended for tests and debugging.
func (a *FreeListAllocator) Check() error {
	if a.closed {
		return ErrClosed
	}
	if format.Size(a.data, a.base) != 0 || format.TagAt(a.data, a.base) != format.TagFreed {
		return &VerifyError{Type: "Sentinel", Message: "sentinel header overwritten", Offset: int64(a.base)}
	}

	free := make(map[uint64]uint64)
	live := 0
	prevFree := false
	var prevUnits uint64
	var walkErr *VerifyError
	err := a.Blocks(func(b BlockInfo) bool {
		switch b.Tag {
		case format.TagFreed:
			if prevFree && mergeable(prevUnits, b.Units) {
				walkErr = &VerifyError{Type: "Coalesce", Message: "adjacent free blocks", Offset: int64(b.Header)}
				return false
			}
			free[uint64(b.Header)] = b.Units
			prevFree, prevUnits = true, b.Units
		case format.TagAllocated:
			if uint64(b.Len) > format.PayloadCap(b.Units) {
				walkErr = &VerifyError{
					Type:    "Block",
					Message: fmt.Sprintf("live length %d exceeds capacity of %d units", b.Len, b.Units),
					Offset:  int64(b.Header),
				}
				return false
			}
			live++
			prevFree = false
		default:
			walkErr = &VerifyError{Type: "Block", Message: fmt.Sprintf("unknown tag %#x", uint32(b.Tag)), Offset: int64(b.Header)}
			return false
		}
		return true
	})
	if err != nil {
		return &VerifyError{Type: "Walk", Message: err.Error(), Offset: -1}
	}
	if walkErr != nil {
		return walkErr
	}

	seen := 0
	last := a.base
	err = a.FreeBlocks(func(b BlockInfo) bool {
		off := uint64(b.Header)
		switch units, ok := free[off]; {
		case !ok:
			walkErr = &VerifyError{Type: "FreeList", Message: "node is not a free block", Offset: int64(off)}
		case off <= last:
			walkErr = &VerifyError{Type: "FreeList", Message: "nodes out of address order", Offset: int64(off)}
		case units != b.Units:
			walkErr = &VerifyError{Type: "FreeList", Message: "node size disagrees with heap walk", Offset: int64(off)}
		}
		if walkErr != nil {
			return false
		}
		last = off
		seen++
		return true
	})
	if err != nil {
		return &VerifyError{Type: "FreeList", Message: err.Error(), Offset: -1}
	}
	if walkErr != nil {
		return walkErr
	}
	if seen != len(free) {
		return &VerifyError{
			Type:    "FreeList",
			Message: fmt.Sprintf("%d free blocks in heap but %d on the list", len(free), seen),
			Offset:  -1,
		}
	}
	if live != a.stats.BlocksInUse {
		return &VerifyError{
			Type:    "Stats",
			Message: fmt.Sprintf("%d allocated blocks in heap but stats report %d", live, a.stats.BlocksInUse),
			Offset:  -1,
		}
	}
	return nil
}
