// Package printer renders allocator state as text or JSON: counters, heap
// bounds and, optionally, a map of every block in address order.
package printer

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/heap/alloc"
)

const (
	DefaultMaxBlocks = 64
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs human-readable text format.
	FormatText Format = "text"

	// FormatJSON outputs a single JSON document.
	FormatJSON Format = "json"
)

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// ShowBlocks includes the block map after the counters.
	// Default: false
	ShowBlocks bool

	// MaxBlocks limits how many blocks the map lists (0 = unlimited).
	// Default: 64
	MaxBlocks int

	// Language selects digit grouping for counts in text output.
	// Default: language.English
	Language language.Tag
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:    FormatText,
		MaxBlocks: DefaultMaxBlocks,
		Language:  language.English,
	}
}

// Heap is the read-only view of an allocator the printer needs.
// *alloc.FreeListAllocator satisfies it.
type Heap interface {
	Stats() alloc.Stats
	HeapBounds() (start, end alloc.Ptr)
	Blocks(fn func(alloc.BlockInfo) bool) error
}

// Printer handles formatted output of allocator state.
type Printer struct {
	opts   Options
	writer io.Writer
	heap   Heap
	msg    *message.Printer
}

// New creates a new Printer.
//
// Example:
//
//	a, _ := alloc.New(nil)
//	p := printer.New(a, os.Stdout, printer.DefaultOptions())
//	p.Print()
func New(h Heap, w io.Writer, opts Options) *Printer {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	return &Printer{
		opts:   opts,
		writer: w,
		heap:   h,
		msg:    message.NewPrinter(opts.Language),
	}
}

// Print writes the heap report in the configured format.
func (p *Printer) Print() error {
	switch p.opts.Format {
	case FormatText:
		return p.printText()
	case FormatJSON:
		return p.printJSON()
	default:
		return fmt.Errorf("printer: unsupported format %q", p.opts.Format)
	}
}

// collectBlocks returns up to MaxBlocks blocks and whether the walk was cut
// short.
func (p *Printer) collectBlocks() ([]alloc.BlockInfo, bool, error) {
	var (
		blocks    []alloc.BlockInfo
		truncated bool
	)
	err := p.heap.Blocks(func(b alloc.BlockInfo) bool {
		if p.opts.MaxBlocks > 0 && len(blocks) == p.opts.MaxBlocks {
			truncated = true
			return false
		}
		blocks = append(blocks, b)
		return true
	})
	if err != nil {
		return nil, false, err
	}
	return blocks, truncated, nil
}
