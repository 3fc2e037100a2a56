// Package vmem provides the arena growth source: a contiguous range of address
// space that is reserved once and committed stepwise, the way a process break
// moves with sbrk(2). Offsets into the region never move, so a region can hand
// out stable block offsets while it grows.
package vmem

import (
	"errors"
	"fmt"
	"os"
)

// ErrExhausted indicates the reservation cannot satisfy a growth request.
var ErrExhausted = errors.New("vmem: address space reservation exhausted")

// ErrClosed indicates the region has been released.
var ErrClosed = errors.New("vmem: region closed")

// Region is a reserved address range with a movable break. Bytes below the
// break are committed and read/write; bytes above it are not accessible.
//
// Region is not safe for concurrent use.
type Region struct {
	mem       []byte // whole reservation
	brk       int    // current break
	committed int    // bytes made accessible, page-rounded
	pageSize  int
}

// Reserve reserves size bytes of address space (rounded up to the page size)
// without committing any of it.
func Reserve(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("vmem: invalid reservation size %d", size)
	}
	pageSize := os.Getpagesize()
	size = roundUp(size, pageSize)
	mem, err := reserve(size)
	if err != nil {
		return nil, fmt.Errorf("vmem: reserve %d bytes: %w", size, err)
	}
	return &Region{mem: mem, pageSize: pageSize}, nil
}

// Sbrk advances the break by n bytes and returns the previous break. The new
// bytes are zero. Sbrk(0) reports the current break.
func (r *Region) Sbrk(n int) (uint64, error) {
	if r.mem == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, fmt.Errorf("vmem: negative sbrk %d", n)
	}
	old := r.brk
	if n > len(r.mem)-r.brk {
		return 0, fmt.Errorf("%w: break=%d grow=%d reserved=%d", ErrExhausted, r.brk, n, len(r.mem))
	}
	end := r.brk + n
	if end > r.committed {
		want := min(roundUp(end, r.pageSize), len(r.mem))
		if err := commit(r.mem[r.committed:want]); err != nil {
			return 0, fmt.Errorf("vmem: commit [%d,%d): %w", r.committed, want, err)
		}
		r.committed = want
	}
	r.brk = end
	return uint64(old), nil
}

// Brk returns the current break offset.
func (r *Region) Brk() uint64 { return uint64(r.brk) }

// Reserved returns the size of the reservation in bytes.
func (r *Region) Reserved() int { return len(r.mem) }

// Bytes returns the committed part of the region, [0, Brk()).
// The slice stays valid across later Sbrk calls but does not cover bytes
// committed after it was taken.
func (r *Region) Bytes() []byte {
	if r.mem == nil {
		return nil
	}
	return r.mem[:r.brk:r.brk]
}

// Close releases the reservation. Calling Close more than once is a no-op.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	mem := r.mem
	r.mem = nil
	r.brk, r.committed = 0, 0
	return release(mem)
}

func roundUp(n, to int) int {
	return (n + to - 1) / to * to
}
