package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a header unit.
	ErrTruncated = errors.New("format: truncated header")
	// ErrZeroSize indicates a header recorded a block size of zero units.
	ErrZeroSize = errors.New("format: zero-unit block")
	// ErrOverrun indicates a block extends past the end of the heap.
	ErrOverrun = errors.New("format: block overruns heap end")
	// ErrMisaligned indicates a header offset is not a multiple of UnitSize.
	ErrMisaligned = errors.New("format: misaligned header")
)
