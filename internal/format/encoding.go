package format

import "encoding/binary"

// Header field codecs. Offsets are absolute positions in the arena buffer;
// callers are expected to have bounds-checked the header unit.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off uint64, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off uint64, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off uint64) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off uint64) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// Next returns the free-list successor recorded in the header at h.
func Next(b []byte, h uint64) uint64 { return ReadU64(b, h+NextOffset) }

// SetNext records the free-list successor of the header at h.
func SetNext(b []byte, h, next uint64) { PutU64(b, h+NextOffset, next) }

// Len returns the live payload length recorded in the allocated header at h.
func Len(b []byte, h uint64) uint64 { return ReadU64(b, h+LenOffset) }

// SetLen records the live payload length of the allocated header at h.
func SetLen(b []byte, h, n uint64) { PutU64(b, h+LenOffset, n) }

// Size returns the block size in units of the header at h.
func Size(b []byte, h uint64) uint64 { return uint64(ReadU32(b, h+SizeOffset)) }

// SetSize records the block size in units of the header at h.
func SetSize(b []byte, h, units uint64) { PutU32(b, h+SizeOffset, uint32(units)) }

// TagAt returns the tag of the header at h.
func TagAt(b []byte, h uint64) Tag { return Tag(ReadU32(b, h+TagOffset)) }

// SetTag writes the tag of the header at h.
func SetTag(b []byte, h uint64, t Tag) { PutU32(b, h+TagOffset, uint32(t)) }
