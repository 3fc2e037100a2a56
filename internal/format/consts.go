// Package format defines the in-arena layout of heap block headers. Every block
// the allocator manages, free or allocated, starts with exactly one header unit;
// all block sizes are expressed as multiples of that unit.
package format

const (
	// UnitSize is the size of one header unit in bytes. It is also the
	// allocation granularity and the alignment of every payload pointer:
	// 16 bytes is the largest scalar alignment on 64-bit platforms.
	UnitSize = 16

	// UnitMask is UnitSize-1, used for alignment arithmetic.
	UnitMask = UnitSize - 1

	// Header field layout (little-endian):
	//
	//	0x00  next/len  uint64  next free header while FREED, live payload length while ALLOCATED
	//	0x08  size      uint32  block size in units, including the header unit
	//	0x0C  tag       uint32  TagAllocated or TagFreed
	NextOffset = 0x00
	LenOffset  = NextOffset
	SizeOffset = 0x08
	TagOffset  = 0x0C

	// MaxUnits is the largest block size the size field can record.
	MaxUnits = 1<<32 - 1
)

// Tag marks the lifecycle state of a block.
type Tag uint32

const (
	// TagAllocated marks a block handed out to a caller.
	TagAllocated Tag = 0xA110CA7E

	// TagFreed marks a block that is (or was merged into) free memory.
	TagFreed Tag = 0xF4EEF4EE
)

// String returns a short name for known tags and the raw value otherwise.
func (t Tag) String() string {
	switch t {
	case TagAllocated:
		return "allocated"
	case TagFreed:
		return "freed"
	default:
		return "corrupt"
	}
}

// DefaultPoison is the byte written over freed payloads. It never forms either
// tag value, so a stale header read through a poisoned region reports corruption.
const DefaultPoison byte = 0xDD
