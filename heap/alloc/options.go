package alloc

import (
	"io"
	"log/slog"
	"os"

	"github.com/joshuapare/heapkit/internal/format"
)

// Runtime allocation logging is controlled by the HEAPKIT_LOG_ALLOC env var.
const envLogAlloc = "HEAPKIT_LOG_ALLOC"

const (
	// DefaultMinGrowthUnits is the smallest growth request, in header units
	// (1024 units = 16 KiB).
	DefaultMinGrowthUnits = 1024

	// DefaultMaxArenaBytes is the address space reserved for the arena when no
	// Source is supplied.
	DefaultMaxArenaBytes = 256 << 20

	// MaxArenaLimit caps MaxArenaBytes. The heap behind the sentinel then
	// never exceeds one block of format.MaxUnits units, so no merge can
	// overflow a header's size field.
	MaxArenaLimit uint64 = format.MaxUnits * format.UnitSize
)

// Options configures a FreeListAllocator. The zero value of every field
// selects its default.
type Options struct {
	// MinGrowthUnits is the minimum number of header units requested from the
	// source per growth.
	// Default: DefaultMinGrowthUnits
	MinGrowthUnits int

	// MaxArenaBytes sizes the address space reservation. Ignored when Source
	// is set. Values above MaxArenaLimit are clamped.
	// Default: DefaultMaxArenaBytes
	MaxArenaBytes int

	// Poison is written over every freed payload byte.
	// Default: format.DefaultPoison (0xDD)
	Poison byte

	// Diagnostics receives one line per rejected pointer.
	// Default: os.Stderr
	Diagnostics io.Writer

	// Logger receives debug events (growth, close).
	// Default: discard, or a stderr text logger when HEAPKIT_LOG_ALLOC is set.
	Logger *slog.Logger

	// Observer receives allocation events, e.g. heap/metrics.
	// Default: none
	Observer Observer

	// Source supplies address space. The allocator takes ownership and closes
	// it on Close.
	// Default: a vmem.Region of MaxArenaBytes
	Source Source
}

// DefaultOptions returns the options New uses when passed nil.
func DefaultOptions() Options {
	return Options{
		MinGrowthUnits: DefaultMinGrowthUnits,
		MaxArenaBytes:  DefaultMaxArenaBytes,
		Poison:         format.DefaultPoison,
		Diagnostics:    os.Stderr,
		Logger:         defaultLogger(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MinGrowthUnits <= 0 {
		o.MinGrowthUnits = def.MinGrowthUnits
	}
	if o.MinGrowthUnits > format.MaxUnits {
		o.MinGrowthUnits = format.MaxUnits
	}
	if o.MaxArenaBytes <= 0 {
		o.MaxArenaBytes = def.MaxArenaBytes
	}
	if limit := MaxArenaLimit; uint64(o.MaxArenaBytes) > limit {
		o.MaxArenaBytes = int(limit)
	}
	if o.Poison == 0 {
		o.Poison = def.Poison
	}
	if o.Diagnostics == nil {
		o.Diagnostics = def.Diagnostics
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	return o
}

func defaultLogger() *slog.Logger {
	if os.Getenv(envLogAlloc) == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
