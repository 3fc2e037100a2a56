package alloc

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates the growth source refused to extend the arena.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrInvalidPointer is the parent of every pointer validation failure.
	// Match it with errors.Is to catch all of them at once.
	ErrInvalidPointer = errors.New("alloc: invalid pointer")

	// ErrOutOfBounds indicates a pointer outside the heap range.
	ErrOutOfBounds = errors.New("out of heap bounds")

	// ErrDoubleFree indicates a pointer whose block is already free.
	ErrDoubleFree = errors.New("double free detected")

	// ErrCorrupted indicates a pointer whose header is not a live block header.
	ErrCorrupted = errors.New("heap corruption")

	// ErrOverflow indicates calloc's count * size does not fit in an int.
	ErrOverflow = errors.New("alloc: size overflow")

	// ErrInvalidSize indicates a negative size or count.
	ErrInvalidSize = errors.New("alloc: negative size")

	// ErrNilPointer indicates Realloc was handed Nil.
	ErrNilPointer = errors.New("alloc: nil pointer")

	// ErrClosed indicates the allocator has been closed.
	ErrClosed = errors.New("alloc: allocator closed")
)

// PointerError records a rejected pointer and the operation that rejected it.
// It matches both ErrInvalidPointer and its specific cause under errors.Is.
type PointerError struct {
	Op  string // free, realloc, bytes, ...
	Ptr Ptr
	Err error // ErrOutOfBounds, ErrDoubleFree or ErrCorrupted
}

func (e *PointerError) Error() string {
	return fmt.Sprintf("%s: invalid pointer %s: %v", e.Op, e.Ptr, e.Err)
}

func (e *PointerError) Unwrap() []error {
	return []error{ErrInvalidPointer, e.Err}
}
