package printer

import (
	"encoding/json"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// jsonReport is the JSON document Print writes.
type jsonReport struct {
	HeapStart string      `json:"heap_start"`
	HeapEnd   string      `json:"heap_end"`
	Stats     alloc.Stats `json:"stats"`
	Blocks    []jsonBlock `json:"blocks,omitempty"`
	Truncated bool        `json:"truncated,omitempty"`
}

// jsonBlock is one entry of the block map.
type jsonBlock struct {
	Header string `json:"header"`
	Ptr    string `json:"ptr,omitempty"`
	State  string `json:"state"`
	Units  uint64 `json:"units"`
	Len    int    `json:"len,omitempty"`
}

func (p *Printer) printJSON() error {
	start, end := p.heap.HeapBounds()
	rep := jsonReport{
		HeapStart: start.String(),
		HeapEnd:   end.String(),
		Stats:     p.heap.Stats(),
	}

	if p.opts.ShowBlocks {
		blocks, truncated, err := p.collectBlocks()
		if err != nil {
			return err
		}
		rep.Truncated = truncated
		rep.Blocks = make([]jsonBlock, 0, len(blocks))
		for _, b := range blocks {
			jb := jsonBlock{
				Header: b.Header.String(),
				State:  b.Tag.String(),
				Units:  b.Units,
			}
			if !b.Free() {
				jb.Ptr = b.Ptr.String()
				jb.Len = b.Len
			}
			rep.Blocks = append(rep.Blocks, jb)
		}
	}

	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
