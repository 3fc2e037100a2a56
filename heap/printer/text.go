package printer

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// printText prints counters and the optional block map in human-readable form.
func (p *Printer) printText() error {
	s := p.heap.Stats()
	start, end := p.heap.HeapBounds()

	p.msg.Fprintf(p.writer, "Heap [%s, %s)  %s\n", start, end, humanize.IBytes(uint64(s.ArenaBytes)))
	p.msg.Fprintf(p.writer, "  Grow calls:        %d (%s)\n", s.GrowCalls, humanize.IBytes(uint64(s.GrowBytes)))
	p.msg.Fprintf(p.writer, "  Alloc calls:       %d\n", s.AllocCalls)
	p.msg.Fprintf(p.writer, "  Free calls:        %d\n", s.FreeCalls)
	p.msg.Fprintf(p.writer, "  Splits / exact:    %d / %d\n", s.SplitCount, s.ExactFits)
	p.msg.Fprintf(p.writer, "  Coalesce fwd/back: %d / %d\n", s.CoalesceForward, s.CoalesceBackward)
	p.msg.Fprintf(p.writer, "  Invalid pointers:  %d\n", s.InvalidPointers)
	p.msg.Fprintf(p.writer, "  Live:              %d blocks, %s\n", s.BlocksInUse, humanize.IBytes(uint64(s.BytesInUse)))

	if !p.opts.ShowBlocks {
		return nil
	}

	blocks, truncated, err := p.collectBlocks()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.writer, "Blocks:")
	for _, b := range blocks {
		if b.Free() {
			p.msg.Fprintf(p.writer, "  %-10s free       %s (%d units)\n",
				b.Header, humanize.IBytes(uint64(b.Bytes())), b.Units)
			continue
		}
		p.msg.Fprintf(p.writer, "  %-10s allocated  %d / %d B\n",
			b.Ptr, b.Len, b.Bytes()-alloc.UnitSize)
	}
	if truncated {
		fmt.Fprintf(p.writer, "  ... (first %d blocks shown)\n", p.opts.MaxBlocks)
	}
	return nil
}
