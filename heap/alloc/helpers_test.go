package alloc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Allocator Construction
// ============================================================================

// newTestAllocator creates an allocator whose diagnostics are captured in the
// returned buffer. The allocator is closed when the test ends.
func newTestAllocator(t testing.TB, opts *Options) (*FreeListAllocator, *bytes.Buffer) {
	t.Helper()

	var o Options
	if opts != nil {
		o = *opts
	}
	diag := &bytes.Buffer{}
	o.Diagnostics = diag

	a, err := New(&o)
	require.NoError(t, err, "failed to create allocator")
	t.Cleanup(func() { _ = a.Close() })

	return a, diag
}

// mustAlloc allocates size bytes and fills them with fill.
func mustAlloc(t testing.TB, a *FreeListAllocator, size int, fill byte) Ptr {
	t.Helper()

	p, err := a.Alloc(size)
	require.NoError(t, err)
	b, err := a.Bytes(p)
	require.NoError(t, err)
	require.Len(t, b, size)
	for i := range b {
		b[i] = fill
	}
	return p
}

// ============================================================================
// Inspection
// ============================================================================

func countBlocks(t testing.TB, a *FreeListAllocator) (live, free int) {
	t.Helper()

	err := a.Blocks(func(b BlockInfo) bool {
		if b.Free() {
			free++
		} else {
			live++
		}
		return true
	})
	require.NoError(t, err)
	return live, free
}

func freeList(t testing.TB, a *FreeListAllocator) []BlockInfo {
	t.Helper()

	var out []BlockInfo
	require.NoError(t, a.FreeBlocks(func(b BlockInfo) bool {
		out = append(out, b)
		return true
	}))
	return out
}

func assertInvariants(t testing.TB, a *FreeListAllocator) {
	t.Helper()
	require.NoError(t, a.Check())
}

func allBytes(b []byte, v byte) bool {
	for _, c := range b {
		if c != v {
			return false
		}
	}
	return true
}

// ============================================================================
// Sources
// ============================================================================

var errSliceFull = errors.New("slice source full")

// sliceSource is a fixed-capacity Source backed by a plain slice.
type sliceSource struct {
	mem    []byte
	brk    int
	closed bool
}

func newSliceSource(capacity, brk int) *sliceSource {
	return &sliceSource{mem: make([]byte, capacity), brk: brk}
}

func (s *sliceSource) Sbrk(n int) (uint64, error) {
	if s.brk+n > len(s.mem) {
		return 0, errSliceFull
	}
	old := s.brk
	s.brk += n
	return uint64(old), nil
}

func (s *sliceSource) Bytes() []byte { return s.mem[:s.brk:s.brk] }

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}
