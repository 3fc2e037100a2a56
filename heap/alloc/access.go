package alloc

import (
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Bytes returns the live payload of p: exactly the size most recently passed
// to Alloc, Calloc or Realloc. The slice aliases arena memory and stays
// usable across later growth, but must not be touched after p is freed.
func (a *FreeListAllocator) Bytes(p Ptr) ([]byte, error) {
	if a.closed {
		return nil, ErrClosed
	}
	h, err := a.validate(p, "bytes")
	if err != nil {
		return nil, err
	}
	n := format.Len(a.data, h)
	b, _ := buf.SliceU64(a.data, uint64(p), n)
	return b, nil
}

// UsableSize returns the payload capacity of p's block, which may exceed the
// requested size by up to UnitSize-1 bytes.
func (a *FreeListAllocator) UsableSize(p Ptr) (int, error) {
	if a.closed {
		return 0, ErrClosed
	}
	h, err := a.validate(p, "usable_size")
	if err != nil {
		return 0, err
	}
	return int(format.PayloadCap(format.Size(a.data, h))), nil
}

// Raw returns n arena bytes starting at p without validating p. It returns nil
// when the range is not inside committed memory. Raw exists for inspection,
// e.g. observing the poison pattern behind a freed pointer.
func (a *FreeListAllocator) Raw(p Ptr, n int) []byte {
	if a.closed || n < 0 {
		return nil
	}
	b, ok := buf.SliceU64(a.data, uint64(p), uint64(n))
	if !ok {
		return nil
	}
	return b
}
