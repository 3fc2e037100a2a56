package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Ptr is an address inside the arena: the byte offset of a payload from the
// start of the managed region. Nil is never a valid payload address.
type Ptr uint64

// Nil is the null pointer.
const Nil Ptr = 0

// UnitSize is the header unit, the allocation granularity, and the alignment
// of every pointer the allocator returns.
const UnitSize = format.UnitSize

// String formats p as a hex address.
func (p Ptr) String() string { return fmt.Sprintf("%#x", uint64(p)) }

// Add returns p offset by n bytes. Pointer arithmetic is unchecked; the
// validator rejects results that do not name a live block.
func (p Ptr) Add(n int) Ptr { return Ptr(int64(p) + int64(n)) }

// Allocator is the malloc-style contract consumed by arena-backed data
// structures.
//
// Implementations:
//   - FreeListAllocator: circular first-fit free list with tagged headers
type Allocator interface {
	// Alloc returns a pointer to at least size bytes. Alloc(0) returns a
	// distinct, freeable pointer.
	Alloc(size int) (Ptr, error)

	// Calloc allocates n*size zeroed bytes, failing with ErrOverflow when the
	// product does not fit.
	Calloc(n, size int) (Ptr, error)

	// Realloc moves p's contents to a block of size bytes. Realloc(p, 0) frees
	// p and returns Nil.
	Realloc(p Ptr, size int) (Ptr, error)

	// Free returns p's block to the allocator. Free(Nil) is a no-op; invalid
	// pointers are reported and ignored.
	Free(p Ptr) error

	// Bytes returns the live payload of p.
	Bytes(p Ptr) ([]byte, error)
}

// Source supplies raw address space. Sbrk advances the break by n bytes and
// returns the previous break; Bytes returns every committed byte, [0, break).
// The bytes behind an offset must never move once handed out.
//
// internal/vmem.Region is the default implementation.
type Source interface {
	Sbrk(n int) (uint64, error)
	Bytes() []byte
	Close() error
}

// Observer receives allocator events. Methods are called synchronously on the
// allocating goroutine and must not call back into the allocator.
type Observer interface {
	ObserveAlloc(size int)
	ObserveFree(size int)
	ObserveGrow(bytes int)
	ObserveInvalid(op string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveAlloc(int)             {}
func (nopObserver) ObserveFree(int)              {}
func (nopObserver) ObserveGrow(int)              {}
func (nopObserver) ObserveInvalid(string, error) {}
