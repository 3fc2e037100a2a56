package main

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
)

func TestStress_Workload(t *testing.T) {
	a, err := alloc.New(&alloc.Options{Diagnostics: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := stress(a, 5000, 256, 64, 3)
	require.NoError(t, err)

	assert.Len(t, res.Checkpoint, 10)
	for i := 1; i < len(res.Checkpoint); i++ {
		assert.GreaterOrEqual(t, res.Checkpoint[i], res.Checkpoint[i-1], "arena never shrinks")
	}
	assert.LessOrEqual(t, res.Stats.BlocksInUse, 64)
	assert.Zero(t, res.Stats.InvalidPointers)
	require.NoError(t, a.Check())
}

func TestStress_Deterministic(t *testing.T) {
	run := func() *StressResult {
		a, err := alloc.New(&alloc.Options{Diagnostics: io.Discard, MinGrowthUnits: 32})
		require.NoError(t, err)
		defer a.Close()
		res, err := stress(a, 2000, 512, 100, 42)
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, run(), run())
}

func TestStress_JSONOutput(t *testing.T) {
	withFlags(t, true, false, false)
	oldIter := stressIterations
	stressIterations = 1000
	t.Cleanup(func() { stressIterations = oldIter })

	var out, diag bytes.Buffer
	require.NoError(t, runStress(&out, &diag))

	var res StressResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 1000, res.Iterations)
	assert.Equal(t, 1000, res.Stats.AllocCalls+res.Stats.FreeCalls)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "heapctl dev")
	assert.Contains(t, out.String(), "min growth:  1024 units (16 KiB)")
	assert.Contains(t, out.String(), "max arena:   256 MiB")
	assert.Contains(t, out.String(), "poison:      0xdd")
}
