package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// BlockInfo describes one block in the arena.
type BlockInfo struct {
	Header Ptr        // Address of the header unit
	Ptr    Ptr        // Address of the payload (what Alloc returned)
	Units  uint64     // Block size in header units, including the header
	Tag    format.Tag // TagAllocated or TagFreed
	Len    int        // Live payload length; 0 for free blocks
}

// Free reports whether the block is on the free list.
func (b BlockInfo) Free() bool { return b.Tag == format.TagFreed }

// Bytes returns the block size in bytes, header included.
func (b BlockInfo) Bytes() int64 { return int64(b.Units) * format.UnitSize }

// Blocks visits every block in [heapStart, heapEnd) in address order, stopping
// early when fn returns false. Blocks tile the heap, so the walk follows sizes
// from one header to the next. A header that cannot be decoded stops the walk
// with an error.
func (a *FreeListAllocator) Blocks(fn func(BlockInfo) bool) error {
	if a.closed {
		return ErrClosed
	}
	if !a.started {
		return nil
	}
	for off := a.heapStart; off < a.heapEnd; {
		h, next, err := format.NextBlock(a.data, off, a.heapEnd)
		if err != nil {
			return fmt.Errorf("alloc: walk: %w", err)
		}
		info := BlockInfo{
			Header: Ptr(h.Offset),
			Ptr:    Ptr(h.Payload()),
			Units:  h.Units,
			Tag:    h.Tag,
		}
		if h.Tag == format.TagAllocated {
			info.Len = int(h.Word)
		}
		if !fn(info) {
			return nil
		}
		off = next
	}
	return nil
}

// FreeBlocks visits the free list in list order starting after the sentinel,
// stopping early when fn returns false. The walk gives up with an error if the
// list does not return to the sentinel within the number of units in the heap.
func (a *FreeListAllocator) FreeBlocks(fn func(BlockInfo) bool) error {
	if a.closed {
		return ErrClosed
	}
	limit := (a.heapEnd - a.heapStart) / format.UnitSize
	steps := uint64(0)
	for cur := format.Next(a.data, a.base); cur != a.base; cur = format.Next(a.data, cur) {
		if steps > limit {
			return fmt.Errorf("alloc: free list does not return to the sentinel after %d nodes", steps)
		}
		steps++
		if cur < a.heapStart || cur >= a.heapEnd || !format.IsUnitAligned(cur) {
			return fmt.Errorf("alloc: free list node %#x outside heap [%#x, %#x)", cur, a.heapStart, a.heapEnd)
		}
		info := BlockInfo{
			Header: Ptr(cur),
			Ptr:    Ptr(cur + format.UnitSize),
			Units:  format.Size(a.data, cur),
			Tag:    format.TagAt(a.data, cur),
		}
		if !fn(info) {
			return nil
		}
	}
	return nil
}
