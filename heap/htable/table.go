// Package htable is a separate-chaining hash table whose storage lives entirely
// in an allocator arena: the bucket array, every bucket's entry array, and a
// private copy of each key and value are arena blocks.
//
// Bucket layout (24 bytes):
//
//	0x00  entries  uint64  Ptr to the entry array (Nil when empty)
//	0x08  size     uint64  entries in use
//	0x10  cap      uint64  entry array capacity
//
// Entry layout (24 bytes):
//
//	0x00  hash     uint32
//	0x04  keyLen   uint32
//	0x08  key      uint64  Ptr to the key copy
//	0x10  val      uint64  Ptr to the value copy
//
// Table is not safe for concurrent use.
package htable

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/format"
)

const (
	DefaultInitialCapacity = 16
	DefaultLoadFactor      = 0.75

	// First entry array capacity of a bucket; arrays double from there.
	initialBucketCap = 4
)

const (
	bucketEntries = 0x00
	bucketSize    = 0x08
	bucketCap     = 0x10
	bucketBytes   = 24

	entryHash   = 0x00
	entryKeyLen = 0x04
	entryKey    = 0x08
	entryVal    = 0x10
	entryBytes  = 24
)

var (
	// ErrNotFound indicates the key is not in the table.
	ErrNotFound = errors.New("htable: key not found")

	// ErrNilKey indicates a nil key. Empty, non-nil keys are allowed.
	ErrNilKey = errors.New("htable: nil key")

	// ErrKeyTooLong indicates a key longer than the entry format can record.
	ErrKeyTooLong = errors.New("htable: key too long")

	// ErrDestroyed indicates the table has been destroyed.
	ErrDestroyed = errors.New("htable: table destroyed")
)

// Config controls table construction. Zero fields select defaults.
type Config struct {
	// Hash is the key hash function.
	// Default: FNV1a
	Hash HashFunc

	// Seed is passed to Hash on every call.
	Seed uint32

	// LoadFactor is the size/capacity ratio that triggers doubling.
	// Default: 0.75
	LoadFactor float64

	// InitialCapacity is rounded up to a power of two.
	// Default: 16
	InitialCapacity int
}

// Table maps byte-string keys to byte-string values.
type Table struct {
	a        alloc.Allocator
	buckets  alloc.Ptr
	capacity uint64 // power of two
	size     int

	hash       HashFunc
	seed       uint32
	loadFactor float64

	destroyed bool
}

// New creates a table whose storage is allocated from a. A nil cfg uses the
// defaults.
func New(a alloc.Allocator, cfg *Config) (*Table, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Hash == nil {
		c.Hash = FNV1a
	}
	if c.LoadFactor <= 0 {
		c.LoadFactor = DefaultLoadFactor
	}
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = DefaultInitialCapacity
	}

	t := &Table{
		a:          a,
		capacity:   nextPow2(uint64(c.InitialCapacity)),
		hash:       c.Hash,
		seed:       c.Seed,
		loadFactor: c.LoadFactor,
	}
	buckets, err := a.Calloc(int(t.capacity), bucketBytes)
	if err != nil {
		return nil, fmt.Errorf("htable: allocate %d buckets: %w", t.capacity, err)
	}
	t.buckets = buckets
	return t, nil
}

// Len returns the number of keys in the table.
func (t *Table) Len() int { return t.size }

// Capacity returns the number of buckets.
func (t *Table) Capacity() int { return int(t.capacity) }

// Set stores a copy of val under a copy of key, replacing any previous value.
func (t *Table) Set(key, val []byte) error {
	if err := t.checkKey(key); err != nil {
		return err
	}
	hash := t.hash(key, t.seed)

	bb, boff, err := t.bucket(hash)
	if err != nil {
		return err
	}
	eb, idx, err := t.find(bb, boff, hash, key)
	if err != nil {
		return err
	}
	if idx >= 0 {
		// Replace: the new copy is made before the old one is released.
		vp, err := t.copyIn(val)
		if err != nil {
			return err
		}
		e := uint64(idx) * entryBytes
		old := alloc.Ptr(format.ReadU64(eb, e+entryVal))
		format.PutU64(eb, e+entryVal, uint64(vp))
		return t.free(old)
	}

	if float64(t.size+1) > float64(t.capacity)*t.loadFactor {
		if err := t.resize(t.capacity * 2); err != nil {
			return err
		}
		if bb, boff, err = t.bucket(hash); err != nil {
			return err
		}
	}

	kp, err := t.copyIn(key)
	if err != nil {
		return err
	}
	vp, err := t.copyIn(val)
	if err != nil {
		_ = t.free(kp)
		return err
	}

	var entry [entryBytes]byte
	format.PutU32(entry[:], entryHash, hash)
	format.PutU32(entry[:], entryKeyLen, uint32(len(key)))
	format.PutU64(entry[:], entryKey, uint64(kp))
	format.PutU64(entry[:], entryVal, uint64(vp))
	if err := t.appendEntry(bb, boff, entry[:]); err != nil {
		_ = t.free(kp)
		_ = t.free(vp)
		return err
	}
	t.size++
	return nil
}

// Get returns a copy of the value stored under key.
func (t *Table) Get(key []byte) ([]byte, error) {
	if err := t.checkKey(key); err != nil {
		return nil, err
	}
	hash := t.hash(key, t.seed)
	bb, boff, err := t.bucket(hash)
	if err != nil {
		return nil, err
	}
	eb, idx, err := t.find(bb, boff, hash, key)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, ErrNotFound
	}
	vb, err := t.a.Bytes(alloc.Ptr(format.ReadU64(eb, uint64(idx)*entryBytes+entryVal)))
	if err != nil {
		return nil, fmt.Errorf("htable: value: %w", err)
	}
	return bytes.Clone(vb), nil
}

// Has reports whether key is in the table.
func (t *Table) Has(key []byte) bool {
	if t.checkKey(key) != nil {
		return false
	}
	hash := t.hash(key, t.seed)
	bb, boff, err := t.bucket(hash)
	if err != nil {
		return false
	}
	_, idx, err := t.find(bb, boff, hash, key)
	return err == nil && idx >= 0
}

// Delete removes key and releases its key and value copies.
func (t *Table) Delete(key []byte) error {
	if err := t.checkKey(key); err != nil {
		return err
	}
	hash := t.hash(key, t.seed)
	bb, boff, err := t.bucket(hash)
	if err != nil {
		return err
	}
	eb, idx, err := t.find(bb, boff, hash, key)
	if err != nil {
		return err
	}
	if idx < 0 {
		return ErrNotFound
	}

	e := uint64(idx) * entryBytes
	kp := alloc.Ptr(format.ReadU64(eb, e+entryKey))
	vp := alloc.Ptr(format.ReadU64(eb, e+entryVal))

	// Swap-remove: the last entry fills the hole.
	n := format.ReadU64(bb, boff+bucketSize)
	last := (n - 1) * entryBytes
	copy(eb[e:e+entryBytes], eb[last:last+entryBytes])
	format.PutU64(bb, boff+bucketSize, n-1)
	t.size--

	return errors.Join(t.free(kp), t.free(vp))
}

// Reserve grows the bucket array so that n keys fit without exceeding the
// load factor.
func (t *Table) Reserve(n int) error {
	if t.destroyed {
		return ErrDestroyed
	}
	if n <= 0 {
		return nil
	}
	want := nextPow2(uint64(math.Ceil(float64(n) / t.loadFactor)))
	if want <= t.capacity {
		return nil
	}
	return t.resize(want)
}

// Clear removes every key, releasing all entry arrays and copies. The bucket
// array keeps its capacity.
func (t *Table) Clear() error {
	if t.destroyed {
		return ErrDestroyed
	}
	bb, err := t.a.Bytes(t.buckets)
	if err != nil {
		return fmt.Errorf("htable: buckets: %w", err)
	}

	var errs []error
	for i := range t.capacity {
		boff := i * bucketBytes
		entries := alloc.Ptr(format.ReadU64(bb, boff+bucketEntries))
		if entries == alloc.Nil {
			continue
		}
		n := format.ReadU64(bb, boff+bucketSize)
		if eb, err := t.a.Bytes(entries); err != nil {
			errs = append(errs, err)
		} else {
			for j := range n {
				e := j * entryBytes
				errs = append(errs,
					t.free(alloc.Ptr(format.ReadU64(eb, e+entryKey))),
					t.free(alloc.Ptr(format.ReadU64(eb, e+entryVal))))
			}
		}
		errs = append(errs, t.free(entries))
		clear(bb[boff : boff+bucketBytes])
	}
	t.size = 0
	return errors.Join(errs...)
}

// Destroy clears the table and releases the bucket array. The table cannot
// be used afterwards.
func (t *Table) Destroy() error {
	if t.destroyed {
		return nil
	}
	err := t.Clear()
	t.destroyed = true
	return errors.Join(err, t.free(t.buckets))
}

// Iter calls fn for every key/value pair in bucket order until fn returns
// false. The slices alias arena memory and are valid until the next mutation.
func (t *Table) Iter(fn func(key, val []byte) bool) error {
	if t.destroyed {
		return ErrDestroyed
	}
	bb, err := t.a.Bytes(t.buckets)
	if err != nil {
		return fmt.Errorf("htable: buckets: %w", err)
	}
	for i := range t.capacity {
		boff := i * bucketBytes
		n := format.ReadU64(bb, boff+bucketSize)
		if n == 0 {
			continue
		}
		eb, err := t.a.Bytes(alloc.Ptr(format.ReadU64(bb, boff+bucketEntries)))
		if err != nil {
			return fmt.Errorf("htable: entries: %w", err)
		}
		for j := range n {
			e := j * entryBytes
			kb, err := t.a.Bytes(alloc.Ptr(format.ReadU64(eb, e+entryKey)))
			if err != nil {
				return fmt.Errorf("htable: key: %w", err)
			}
			vb, err := t.a.Bytes(alloc.Ptr(format.ReadU64(eb, e+entryVal)))
			if err != nil {
				return fmt.Errorf("htable: value: %w", err)
			}
			if !fn(kb, vb) {
				return nil
			}
		}
	}
	return nil
}

func (t *Table) checkKey(key []byte) error {
	switch {
	case t.destroyed:
		return ErrDestroyed
	case key == nil:
		return ErrNilKey
	case uint64(len(key)) > math.MaxUint32:
		return ErrKeyTooLong
	}
	return nil
}

// bucket returns the bucket array and the byte offset of hash's bucket in it.
func (t *Table) bucket(hash uint32) ([]byte, uint64, error) {
	bb, err := t.a.Bytes(t.buckets)
	if err != nil {
		return nil, 0, fmt.Errorf("htable: buckets: %w", err)
	}
	return bb, (uint64(hash) & (t.capacity - 1)) * bucketBytes, nil
}

// find returns the bucket's entry array and the index of key in it, or -1.
func (t *Table) find(bb []byte, boff uint64, hash uint32, key []byte) ([]byte, int, error) {
	n := format.ReadU64(bb, boff+bucketSize)
	if n == 0 {
		return nil, -1, nil
	}
	eb, err := t.a.Bytes(alloc.Ptr(format.ReadU64(bb, boff+bucketEntries)))
	if err != nil {
		return nil, -1, fmt.Errorf("htable: entries: %w", err)
	}
	for i := range n {
		e := i * entryBytes
		if format.ReadU32(eb, e+entryHash) != hash || format.ReadU32(eb, e+entryKeyLen) != uint32(len(key)) {
			continue
		}
		kb, err := t.a.Bytes(alloc.Ptr(format.ReadU64(eb, e+entryKey)))
		if err != nil {
			return nil, -1, fmt.Errorf("htable: key: %w", err)
		}
		if bytes.Equal(kb, key) {
			return eb, int(i), nil
		}
	}
	return eb, -1, nil
}

// appendEntry adds a raw entry to the bucket at boff, growing its entry array
// with Realloc when full.
func (t *Table) appendEntry(bb []byte, boff uint64, entry []byte) error {
	n := format.ReadU64(bb, boff+bucketSize)
	if err := t.reserveBucket(bb, boff, n+1); err != nil {
		return err
	}
	eb, err := t.a.Bytes(alloc.Ptr(format.ReadU64(bb, boff+bucketEntries)))
	if err != nil {
		return fmt.Errorf("htable: entries: %w", err)
	}
	copy(eb[n*entryBytes:], entry)
	format.PutU64(bb, boff+bucketSize, n+1)
	return nil
}

func (t *Table) reserveBucket(bb []byte, boff, want uint64) error {
	cp := format.ReadU64(bb, boff+bucketCap)
	if want <= cp {
		return nil
	}
	newCap := uint64(initialBucketCap)
	if cp > 0 {
		newCap = cp * 2
	}
	for newCap < want {
		newCap *= 2
	}

	entries := alloc.Ptr(format.ReadU64(bb, boff+bucketEntries))
	var (
		p   alloc.Ptr
		err error
	)
	if entries == alloc.Nil {
		p, err = t.a.Alloc(int(newCap * entryBytes))
	} else {
		p, err = t.a.Realloc(entries, int(newCap*entryBytes))
	}
	if err != nil {
		return fmt.Errorf("htable: grow bucket to %d entries: %w", newCap, err)
	}
	format.PutU64(bb, boff+bucketEntries, uint64(p))
	format.PutU64(bb, boff+bucketCap, newCap)
	return nil
}

// resize rehashes every entry into a fresh bucket array of newCap buckets.
// Key and value copies are not moved. On failure the table is unchanged.
func (t *Table) resize(newCap uint64) error {
	nb, err := t.a.Calloc(int(newCap), bucketBytes)
	if err != nil {
		return fmt.Errorf("htable: resize to %d buckets: %w", newCap, err)
	}
	nbb, err := t.a.Bytes(nb)
	if err != nil {
		return fmt.Errorf("htable: buckets: %w", err)
	}
	bb, err := t.a.Bytes(t.buckets)
	if err != nil {
		return fmt.Errorf("htable: buckets: %w", err)
	}

	for i := range t.capacity {
		boff := i * bucketBytes
		n := format.ReadU64(bb, boff+bucketSize)
		if n == 0 {
			continue
		}
		eb, err := t.a.Bytes(alloc.Ptr(format.ReadU64(bb, boff+bucketEntries)))
		if err != nil {
			t.discardBuckets(nb, nbb, newCap)
			return fmt.Errorf("htable: entries: %w", err)
		}
		for j := range n {
			entry := eb[j*entryBytes : (j+1)*entryBytes]
			noff := (uint64(format.ReadU32(entry, entryHash)) & (newCap - 1)) * bucketBytes
			if err := t.appendEntry(nbb, noff, entry); err != nil {
				t.discardBuckets(nb, nbb, newCap)
				return err
			}
		}
	}

	for i := range t.capacity {
		if entries := alloc.Ptr(format.ReadU64(bb, i*bucketBytes+bucketEntries)); entries != alloc.Nil {
			_ = t.free(entries)
		}
	}
	_ = t.free(t.buckets)
	t.buckets = nb
	t.capacity = newCap
	return nil
}

// discardBuckets frees a half-built bucket array and its entry arrays.
func (t *Table) discardBuckets(nb alloc.Ptr, nbb []byte, capacity uint64) {
	for i := range capacity {
		if entries := alloc.Ptr(format.ReadU64(nbb, i*bucketBytes+bucketEntries)); entries != alloc.Nil {
			_ = t.free(entries)
		}
	}
	_ = t.free(nb)
}

func (t *Table) copyIn(b []byte) (alloc.Ptr, error) {
	p, err := t.a.Alloc(len(b))
	if err != nil {
		return alloc.Nil, fmt.Errorf("htable: copy %d bytes: %w", len(b), err)
	}
	dst, err := t.a.Bytes(p)
	if err != nil {
		return alloc.Nil, fmt.Errorf("htable: copy: %w", err)
	}
	copy(dst, b)
	return p, nil
}

func (t *Table) free(p alloc.Ptr) error {
	if err := t.a.Free(p); err != nil {
		return fmt.Errorf("htable: free %s: %w", p, err)
	}
	return nil
}

func nextPow2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}
