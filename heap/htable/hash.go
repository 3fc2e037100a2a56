package htable

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashFunc hashes key under seed. Equal keys must hash equally for a given seed.
type HashFunc func(key []byte, seed uint32) uint32

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619

	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// FNV1a is 32-bit FNV-1a with the seed folded into the offset basis. Seed 0
// gives the standard FNV-1a value.
func FNV1a(key []byte, seed uint32) uint32 {
	h := uint32(fnvOffset32) ^ seed
	for _, c := range key {
		h ^= uint32(c)
		h *= fnvPrime32
	}
	return h
}

// FNV1a64 is 64-bit FNV-1a seeded the same way as FNV1a. It is not a
// HashFunc; tables fold it down with FoldFNV64.
func FNV1a64(key []byte, seed uint64) uint64 {
	h := uint64(fnvOffset64) ^ seed
	for _, c := range key {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

// FoldFNV64 adapts FNV1a64 to a HashFunc by xor-folding the 64-bit sum.
func FoldFNV64(key []byte, seed uint32) uint32 {
	sum := FNV1a64(key, uint64(seed))
	return uint32(sum) ^ uint32(sum>>32)
}

// XXHash is xxhash64 over the little-endian seed followed by key, folded to
// 32 bits.
func XXHash(key []byte, seed uint32) uint32 {
	var s [4]byte
	binary.LittleEndian.PutUint32(s[:], seed)

	d := xxhash.New()
	_, _ = d.Write(s[:])
	_, _ = d.Write(key)
	sum := d.Sum64()
	return uint32(sum) ^ uint32(sum>>32)
}
