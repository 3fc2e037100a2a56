package printer

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/joshuapare/heapkit/heap/alloc"
)

func newTestHeap(t *testing.T) *alloc.FreeListAllocator {
	t.Helper()

	a, err := alloc.New(&alloc.Options{Diagnostics: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestPrinter_Text(t *testing.T) {
	a := newTestHeap(t)
	for range 1000 {
		p, err := a.Alloc(8)
		require.NoError(t, err)
		require.NoError(t, a.Free(p))
	}
	_, err := a.Alloc(11)
	require.NoError(t, err)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.ShowBlocks = true
	require.NoError(t, New(a, &buf, opts).Print())

	output := buf.String()
	t.Logf("Text output:\n%s", output)

	require.Contains(t, output, "Heap [0x10, 0x4010)")
	require.Contains(t, output, "16 KiB")
	require.Contains(t, output, "Alloc calls:       1,001")
	require.Contains(t, output, "Live:              1 blocks, 11 B")
	require.Contains(t, output, "Blocks:")
	require.Contains(t, output, "allocated  11 / 16 B")
	require.Contains(t, output, "free")
}

func TestPrinter_TextWithoutBlocks(t *testing.T) {
	a := newTestHeap(t)

	var buf bytes.Buffer
	require.NoError(t, New(a, &buf, Options{}).Print())
	require.Contains(t, buf.String(), "Grow calls:        0")
	require.NotContains(t, buf.String(), "Blocks:")
}

func TestPrinter_TextLanguage(t *testing.T) {
	a := newTestHeap(t)
	for range 1200 {
		p, err := a.Alloc(1)
		require.NoError(t, err)
		require.NoError(t, a.Free(p))
	}

	var buf bytes.Buffer
	require.NoError(t, New(a, &buf, Options{Language: language.German}).Print())
	require.Contains(t, buf.String(), "1.200")
}

func TestPrinter_JSON(t *testing.T) {
	a := newTestHeap(t)
	p, err := a.Alloc(40)
	require.NoError(t, err)
	_, err = a.Alloc(3)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJSON
	opts.ShowBlocks = true
	require.NoError(t, New(a, &buf, opts).Print())

	var rep jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	require.Equal(t, "0x10", rep.HeapStart)
	require.Equal(t, 2, rep.Stats.AllocCalls)
	require.Equal(t, 1, rep.Stats.BlocksInUse)
	require.False(t, rep.Truncated)

	// [free remainder][3-byte block][freed 40-byte block]
	require.Len(t, rep.Blocks, 3)
	require.Equal(t, "freed", rep.Blocks[0].State)
	require.Equal(t, "allocated", rep.Blocks[1].State)
	require.Equal(t, 3, rep.Blocks[1].Len)
	require.Equal(t, "freed", rep.Blocks[2].State)
	require.Empty(t, rep.Blocks[2].Ptr)
}

func TestPrinter_MaxBlocks(t *testing.T) {
	a := newTestHeap(t)
	for range 10 {
		_, err := a.Alloc(8)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	opts := Options{Format: FormatText, ShowBlocks: true, MaxBlocks: 4}
	require.NoError(t, New(a, &buf, opts).Print())
	require.Contains(t, buf.String(), "(first 4 blocks shown)")

	buf.Reset()
	opts.Format = FormatJSON
	require.NoError(t, New(a, &buf, opts).Print())
	var rep jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	require.Len(t, rep.Blocks, 4)
	require.True(t, rep.Truncated)
}

func TestPrinter_UnsupportedFormat(t *testing.T) {
	a := newTestHeap(t)
	err := New(a, io.Discard, Options{Format: "xml"}).Print()
	require.Error(t, err)
}
