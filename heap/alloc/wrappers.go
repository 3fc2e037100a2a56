package alloc

import (
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Calloc allocates n*size bytes and zeroes them.
func (a *FreeListAllocator) Calloc(n, size int) (Ptr, error) {
	if a.closed {
		return Nil, ErrClosed
	}
	if n < 0 || size < 0 {
		return Nil, ErrInvalidSize
	}
	total, ok := buf.MulOverflowSafe(n, size)
	if !ok {
		return Nil, ErrOverflow
	}

	p, err := a.Alloc(total)
	if err != nil {
		return Nil, err
	}
	clear(a.data[uint64(p) : uint64(p)+uint64(total)])
	return p, nil
}

// Realloc moves the contents of p into a new block of size bytes and frees p.
//
// Unlike C realloc, Realloc(Nil, size) is an error (ErrNilPointer) rather than
// an allocation. Realloc(p, 0) frees p and returns Nil. The copy covers
// min(old length, size) bytes, so growing never reads past the old payload.
// If the new allocation fails, p is left untouched and still owned by the
// caller.
func (a *FreeListAllocator) Realloc(p Ptr, size int) (Ptr, error) {
	if a.closed {
		return Nil, ErrClosed
	}
	if p == Nil {
		return Nil, ErrNilPointer
	}
	if size < 0 {
		return Nil, ErrInvalidSize
	}
	if size == 0 {
		if err := a.Free(p); err != nil {
			return Nil, err
		}
		return Nil, nil
	}

	h, err := a.validate(p, "realloc")
	if err != nil {
		return Nil, err
	}
	keep := min(format.Len(a.data, h), uint64(size))

	np, err := a.Alloc(size)
	if err != nil {
		return Nil, err
	}
	// Alloc may have grown the arena; a.data now covers both blocks.
	copy(a.data[uint64(np):uint64(np)+keep], a.data[uint64(p):uint64(p)+keep])

	a.stats.FreeCalls++
	a.freeBlock(h)
	return np, nil
}
