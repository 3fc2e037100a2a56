// Package alloc provides a malloc-style heap allocator over a single growable
// arena, with tagged block headers that catch double frees and stray pointers.
//
// # Overview
//
// The arena is one contiguous region of address space obtained from a Source
// (by default a vmem.Region: reserved once, committed as it grows). Pointers
// are byte offsets into that region. Free memory is tracked by a circular,
// address-ordered, singly-linked list threaded through the free blocks
// themselves, in the style of the classic K&R allocator:
//
//   - Alloc(size): first fit, resuming from a roving cursor
//   - Free(p): validate, poison, insert by address, merge with neighbours
//   - Calloc(n, size): overflow-checked, zero-filled Alloc
//   - Realloc(p, size): allocate, copy min(old, new) bytes, free
//
// # Block Layout
//
// Every block starts with one 16-byte header unit and its size is a whole
// number of units:
//
//	0x00  next/len  uint64  next free header (free) / requested length (allocated)
//	0x08  size      uint32  block size in units, header included
//	0x0C  tag       uint32  TagAllocated or TagFreed
//	0x10  payload
//
// A request for n bytes takes ceil(n/16)+1 units. Alloc(0) is sized like
// Alloc(1), so its pointer always lies strictly inside the heap.
//
// # Usage Example
//
//	a, err := alloc.New(nil)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	p, err := a.Alloc(11)
//	if err != nil {
//	    return err
//	}
//	b, _ := a.Bytes(p)
//	copy(b, "ABCDEFGHIJ\x00")
//
//	p, err = a.Realloc(p, 20) // first 11 bytes preserved
//
//	_ = a.Free(p)
//	_ = a.Free(p) // reported: "free: invalid pointer 0x...: double free detected"
//
// # Growth
//
// When a search wraps around the free list without finding a fit, the arena
// grows by max(request, MinGrowthUnits) units. The new space is tagged
// allocated and immediately freed, so it merges with any free block left at
// the top of the heap by the previous growth. Growth failure surfaces as
// ErrOutOfMemory; the allocator stays usable.
//
// # Validation
//
// Free, Realloc, Bytes and UsableSize validate pointers before touching the
// heap. Rejections are written to Options.Diagnostics as one line each and
// returned as *PointerError, matching ErrInvalidPointer plus one of:
//
//	ErrOutOfBounds  "out of heap bounds"    pointer outside (heapStart, heapEnd)
//	ErrDoubleFree   "double free detected"  header tagged freed
//	ErrCorrupted    "heap corruption"       misaligned pointer or unknown tag
//
// Freed payloads are overwritten with Options.Poison (0xDD by default), so a
// read through a stale pointer sees a recognisable pattern.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must serialize all access to
// one allocator, including Stats and Check.
//
// # Related Packages
//
//   - github.com/joshuapare/heapkit/heap/htable: hash table stored in the arena
//   - github.com/joshuapare/heapkit/heap/metrics: Prometheus Observer
//   - github.com/joshuapare/heapkit/heap/printer: text and JSON reports
//   - github.com/joshuapare/heapkit/internal/vmem: default Source
package alloc
