package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Free returns p's block to the free list.
//
// Free(Nil) is a no-op. A pointer that fails validation is reported on the
// diagnostics stream and returned as a *PointerError; the heap is left exactly
// as it was. A valid block has its payload poisoned, is tagged freed, and is
// merged with any free neighbour directly above or below it.
func (a *FreeListAllocator) Free(p Ptr) error {
	if a.closed {
		return ErrClosed
	}
	if p == Nil {
		return nil
	}
	a.stats.FreeCalls++

	h, err := a.validate(p, "free")
	if err != nil {
		return err
	}
	a.freeBlock(h)
	return nil
}

// freeBlock releases a validated, allocated header and updates accounting.
func (a *FreeListAllocator) freeBlock(h uint64) {
	n := int(format.Len(a.data, h))
	a.stats.BlocksInUse--
	a.stats.BytesInUse -= int64(n)
	a.release(h)
	a.obs.ObserveFree(n)
}

// release poisons the block at h and links it into the free list at its
// address position, coalescing with both neighbours.
//
// The list is address-ordered starting from the sentinel, which sits below
// every block, so exactly one node cur satisfies cur < h < cur.next, or h lies
// past the highest node (the wrap point, where cur >= cur.next).
func (a *FreeListAllocator) release(h uint64) {
	data := a.data
	units := format.Size(data, h)

	payload := data[h+format.UnitSize : h+units*format.UnitSize]
	for i := range payload {
		payload[i] = a.poison
	}
	format.SetTag(data, h, format.TagFreed)

	cur := a.rover
	for {
		next := format.Next(data, cur)
		if h > cur && h < next {
			break
		}
		if cur >= next && (h > cur || h < next) {
			break
		}
		cur = next
	}

	// Forward: absorb the successor if it starts where h ends.
	next := format.Next(data, cur)
	if h+units*format.UnitSize == next && mergeable(units, format.Size(data, next)) {
		units += format.Size(data, next)
		format.SetSize(data, h, units)
		format.SetNext(data, h, format.Next(data, next))
		a.stats.CoalesceForward++
	} else {
		format.SetNext(data, h, next)
	}

	// Backward: fold h into cur if cur ends where h starts.
	if curUnits := format.Size(data, cur); cur+curUnits*format.UnitSize == h && mergeable(curUnits, units) {
		format.SetSize(data, cur, curUnits+units)
		format.SetNext(data, cur, format.Next(data, h))
		a.stats.CoalesceBackward++
	} else {
		format.SetNext(data, cur, h)
	}

	// Next search starts near the region just freed.
	a.rover = cur
}

// mergeable reports whether two adjacent free blocks fit in one header. Only
// a caller-supplied Source can grow the heap far enough to refuse a merge.
func mergeable(x, y uint64) bool {
	return x+y <= format.MaxUnits
}

// validate checks that p names a live allocated block and returns its header
// offset. Checks run in order and stop at the first failure:
//
//  1. p lies strictly inside (heapStart, heapEnd)
//  2. p is unit-aligned, so a header sits directly in front of it
//  3. the header is not tagged freed
//  4. the header is tagged allocated and its size stays inside the heap
//
// Every failure is written to the diagnostics stream.
func (a *FreeListAllocator) validate(p Ptr, op string) (uint64, error) {
	if p == Nil {
		return 0, ErrNilPointer
	}
	off := uint64(p)
	if !a.started || off <= a.heapStart || off >= a.heapEnd {
		return 0, a.reject(op, p, ErrOutOfBounds)
	}
	if !format.IsUnitAligned(off - a.heapStart) {
		return 0, a.reject(op, p, ErrCorrupted)
	}

	h := off - format.UnitSize
	switch format.TagAt(a.data, h) {
	case format.TagAllocated:
	case format.TagFreed:
		return 0, a.reject(op, p, ErrDoubleFree)
	default:
		return 0, a.reject(op, p, ErrCorrupted)
	}

	units := format.Size(a.data, h)
	if units == 0 || units > (a.heapEnd-h)/format.UnitSize {
		return 0, a.reject(op, p, ErrCorrupted)
	}
	if format.Len(a.data, h) > format.PayloadCap(units) {
		return 0, a.reject(op, p, ErrCorrupted)
	}
	return h, nil
}

// reject reports a validation failure and returns it as a *PointerError.
func (a *FreeListAllocator) reject(op string, p Ptr, cause error) error {
	err := &PointerError{Op: op, Ptr: p, Err: cause}
	a.stats.InvalidPointers++
	fmt.Fprintln(a.diag, err.Error())
	a.log.Debug("invalid pointer", "op", op, "ptr", p.String(), "cause", cause)
	a.obs.ObserveInvalid(op, cause)
	return err
}
