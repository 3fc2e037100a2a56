package alloc

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/vmem"
)

// FreeListAllocator serves allocations from a circular, address-ordered,
// singly-linked list of free blocks laid out inside one growable arena.
//   - First fit, searching from a roving cursor that remembers where the last
//     search ended
//   - Oversized blocks are split and the request carved from the high end, so
//     the free remainder never moves
//   - Freed blocks are poisoned and merged with both address neighbours
//   - Every header carries a tag, so double frees and stray pointers are
//     reported instead of corrupting the list
type FreeListAllocator struct {
	src  Source
	data []byte // src.Bytes(), refreshed after every growth

	// Free list state. base is the sentinel header at the lowest arena
	// address: size 0, never handed out, the list head when nothing is free.
	base  uint64
	rover uint64 // roving cursor; the search resumes at rover's successor

	// Heap bounds, as offsets. heapStart is the break recorded at the first
	// growth; heapEnd only ever grows.
	heapStart uint64
	heapEnd   uint64
	started   bool

	minGrowth uint64 // units
	poison    byte
	diag      io.Writer
	log       *slog.Logger
	obs       Observer

	stats  Stats
	closed bool

	// Test hook: called after each growth with the granted units (nil in production)
	onGrow func(units uint64)
}

// New creates an allocator. A nil opts uses DefaultOptions.
//
// Unless opts.Source is set, New reserves opts.MaxArenaBytes of address space
// up front; memory is committed only as the arena grows.
func New(opts *Options) (*FreeListAllocator, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o = o.withDefaults()

	src := o.Source
	if src == nil {
		region, err := vmem.Reserve(o.MaxArenaBytes)
		if err != nil {
			return nil, fmt.Errorf("alloc: %w", err)
		}
		src = region
	}

	a := &FreeListAllocator{
		src:       src,
		minGrowth: uint64(o.MinGrowthUnits),
		poison:    o.Poison,
		diag:      o.Diagnostics,
		log:       o.Logger,
		obs:       o.Observer,
	}
	if a.obs == nil {
		a.obs = nopObserver{}
	}

	if err := a.initBase(); err != nil {
		_ = src.Close()
		return nil, err
	}
	return a, nil
}

// initBase carves the sentinel header out of the source. A source whose break
// is not unit-aligned is padded first so every later header is aligned.
func (a *FreeListAllocator) initBase() error {
	brk, err := a.src.Sbrk(0)
	if err != nil {
		return fmt.Errorf("alloc: read break: %w", err)
	}
	if pad := format.AlignUnit(brk) - brk; pad > 0 {
		if _, err := a.src.Sbrk(int(pad)); err != nil {
			return fmt.Errorf("%w: align break: %w", ErrOutOfMemory, err)
		}
	}
	base, err := a.src.Sbrk(format.UnitSize)
	if err != nil {
		return fmt.Errorf("%w: sentinel: %w", ErrOutOfMemory, err)
	}
	a.data = a.src.Bytes()
	a.base = base
	a.rover = base
	format.Write(a.data, format.Header{
		Offset: base,
		Units:  0,
		Tag:    format.TagFreed,
		Word:   base, // points to itself: empty list
	})
	return nil
}

// Alloc returns a pointer to size bytes of uninitialised memory.
//
// The request is rounded up to whole header units plus one unit for the
// header itself. Alloc(0) still reserves one payload unit, so its pointer lies
// inside the heap, is distinct from every other live pointer and may be
// passed to Free.
func (a *FreeListAllocator) Alloc(size int) (Ptr, error) {
	if a.closed {
		return Nil, ErrClosed
	}
	if size < 0 {
		return Nil, ErrInvalidSize
	}
	a.stats.AllocCalls++

	units := format.UnitsFor(uint64(max(size, 1)))
	if units > format.MaxUnits {
		return Nil, fmt.Errorf("%w: request of %d bytes exceeds the largest block", ErrOutOfMemory, size)
	}

	h, err := a.findFit(units)
	if err != nil {
		return Nil, err
	}

	format.SetTag(a.data, h, format.TagAllocated)
	format.SetLen(a.data, h, uint64(size))

	a.stats.BlocksInUse++
	a.stats.BytesInUse += int64(size)
	a.obs.ObserveAlloc(size)

	return Ptr(h + format.UnitSize), nil
}

// findFit unlinks or carves a block of exactly units units and returns its
// header offset. The caller tags it.
func (a *FreeListAllocator) findFit(units uint64) (uint64, error) {
	prev := a.rover
	for cur := format.Next(a.data, prev); ; prev, cur = cur, format.Next(a.data, cur) {
		if size := format.Size(a.data, cur); size >= units {
			if size == units {
				// Exact fit: unlink the whole block.
				format.SetNext(a.data, prev, format.Next(a.data, cur))
				a.stats.ExactFits++
			} else {
				// Split: shrink the free block in place and hand out its tail.
				format.SetSize(a.data, cur, size-units)
				cur += (size - units) * format.UnitSize
				format.SetSize(a.data, cur, units)
				a.stats.SplitCount++
			}
			a.rover = prev
			return cur, nil
		}

		if cur == a.rover {
			// Wrapped around without a fit. Growth frees a block at least
			// units large and leaves the cursor just before it.
			if err := a.grow(units); err != nil {
				return 0, err
			}
			cur = a.rover
		}
	}
}

// grow extends the arena by at least units header units and releases the new
// space onto the free list, where it merges with a trailing free block left by
// an earlier growth.
func (a *FreeListAllocator) grow(units uint64) error {
	units = max(units, a.minGrowth)
	nbytes, ok := buf.MulU64(units, format.UnitSize)
	if !ok || nbytes > math.MaxInt {
		return fmt.Errorf("%w: growth of %d units overflows", ErrOutOfMemory, units)
	}

	old, err := a.src.Sbrk(int(nbytes))
	if err != nil {
		a.log.Debug("grow denied", "units", units, "bytes", nbytes, "err", err)
		return fmt.Errorf("%w: grow by %d units: %w", ErrOutOfMemory, units, err)
	}
	a.data = a.src.Bytes()

	if !a.started {
		a.heapStart = old
		a.started = true
	}
	a.heapEnd = old + nbytes

	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(nbytes)
	a.obs.ObserveGrow(int(nbytes))
	a.log.Debug("grow",
		"call", a.stats.GrowCalls,
		"units", units,
		"bytes", nbytes,
		"heap_start", a.heapStart,
		"heap_end", a.heapEnd,
	)

	// The new block enters the world allocated and is freed like any other,
	// so the free list stays the single record of available memory.
	format.Write(a.data, format.Header{
		Offset: old,
		Units:  units,
		Tag:    format.TagAllocated,
	})
	a.release(old)

	if a.onGrow != nil {
		a.onGrow(units)
	}
	return nil
}

// Close releases the arena. Every pointer becomes invalid; later calls return
// ErrClosed.
func (a *FreeListAllocator) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.data = nil
	a.log.Debug("close", "grow_calls", a.stats.GrowCalls, "grow_bytes", a.stats.GrowBytes)
	return a.src.Close()
}

// HeapBounds returns the heap range [start, end). Both are zero before the
// first growth.
func (a *FreeListAllocator) HeapBounds() (start, end Ptr) {
	return Ptr(a.heapStart), Ptr(a.heapEnd)
}

// Compile-time interface check
var _ Allocator = (*FreeListAllocator)(nil)
