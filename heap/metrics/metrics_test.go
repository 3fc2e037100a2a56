package metrics

import (
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
)

func TestObserverTracksAllocator(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test")

	a, err := alloc.New(&alloc.Options{Observer: m, Diagnostics: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	p, err := a.Alloc(100)
	require.NoError(t, err)
	q, err := a.Alloc(20)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))
	_ = a.Free(p)
	_ = a.Free(q.Add(3))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.allocs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frees))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.liveBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.liveBlocks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.grows))
	assert.Equal(t, float64(a.Stats().ArenaBytes), testutil.ToFloat64(m.arenaBytes))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalidTotal.WithLabelValues("free", "double_free")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalidTotal.WithLabelValues("free", "corruption")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestNilRegistererLeavesCollectorsUnregistered(t *testing.T) {
	m := New(nil, "scratch")
	m.ObserveAlloc(8)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.allocs))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "out_of_bounds", Reason(alloc.ErrOutOfBounds))
	assert.Equal(t, "double_free", Reason(&alloc.PointerError{Op: "free", Err: alloc.ErrDoubleFree}))
	assert.Equal(t, "corruption", Reason(alloc.ErrCorrupted))
	assert.Equal(t, "other", Reason(errors.New("boom")))
}
