package format

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// Header is a decoded block header.
//
// Block layout:
//
//	Offset  Size        Description
//	0x00    UnitSize    Header (see consts.go for field offsets)
//	0x10    ...         Payload, (Units-1)*UnitSize bytes
type Header struct {
	Offset uint64 // Arena offset of the header unit
	Units  uint64 // Block size in units, including the header
	Tag    Tag
	Word   uint64 // next (free) or live length (allocated)
}

// End returns the arena offset one past the block.
func (h Header) End() uint64 { return h.Offset + h.Units*UnitSize }

// Payload returns the arena offset of the first payload byte.
func (h Header) Payload() uint64 { return h.Offset + UnitSize }

// NextBlock decodes the header at off and returns it together with the offset
// of the block physically following it. limit is the exclusive end of the heap.
func NextBlock(b []byte, off, limit uint64) (Header, uint64, error) {
	if !IsUnitAligned(off) {
		return Header{}, 0, fmt.Errorf("block at %#x: %w", off, ErrMisaligned)
	}
	if off >= limit || !buf.Has(b, int(off), UnitSize) {
		return Header{}, 0, fmt.Errorf("block at %#x: %w", off, ErrTruncated)
	}
	h := Header{
		Offset: off,
		Units:  Size(b, off),
		Tag:    TagAt(b, off),
		Word:   ReadU64(b, off+NextOffset),
	}
	if h.Units == 0 {
		return Header{}, 0, fmt.Errorf("block at %#x: %w", off, ErrZeroSize)
	}
	end := h.End()
	if end > limit || end < off {
		return Header{}, 0, fmt.Errorf("block at %#x (%d units): %w", off, h.Units, ErrOverrun)
	}
	return h, end, nil
}

// Write stores h at h.Offset.
func Write(b []byte, h Header) {
	PutU64(b, h.Offset+NextOffset, h.Word)
	SetSize(b, h.Offset, h.Units)
	SetTag(b, h.Offset, h.Tag)
}
