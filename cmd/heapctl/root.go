package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/metrics"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	metricsOut bool

	// Allocator flags
	minGrowth int
	maxArena  int
	poison    uint8
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Drive and inspect a heapkit allocator",
	Long: `heapctl runs allocation workloads against a heapkit free-list allocator
and reports what happened to the heap: growth, splitting, coalescing, and every
pointer the validator rejected.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		BoolVar(&metricsOut, "metrics", false, "Print Prometheus metrics after the run")

	rootCmd.PersistentFlags().
		IntVar(&minGrowth, "min-growth", alloc.DefaultMinGrowthUnits, "Minimum arena growth in 16-byte units")
	rootCmd.PersistentFlags().
		IntVar(&maxArena, "max-arena", alloc.DefaultMaxArenaBytes, "Address space reserved for the arena in bytes")
	rootCmd.PersistentFlags().
		Uint8Var(&poison, "poison", 0xDD, "Byte written over freed payloads (must be non-zero)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// session bundles an allocator with the optional metrics registry it reports to.
type session struct {
	a   *alloc.FreeListAllocator
	reg *prometheus.Registry
}

// newSession builds an allocator from the global flags. Rejected pointers are
// reported on diag.
func newSession(diag io.Writer) (*session, error) {
	if poison == 0 {
		return nil, errors.New("--poison must be non-zero")
	}
	opts := &alloc.Options{
		MinGrowthUnits: minGrowth,
		MaxArenaBytes:  maxArena,
		Poison:         poison,
		Diagnostics:    diag,
	}
	if verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	s := &session{}
	if metricsOut {
		s.reg = prometheus.NewRegistry()
		opts.Observer = metrics.New(s.reg, "heapctl")
	}

	a, err := alloc.New(opts)
	if err != nil {
		return nil, err
	}
	s.a = a
	return s, nil
}

// writeMetrics prints the session's metrics in the Prometheus text format.
func (s *session) writeMetrics(w io.Writer) error {
	if s.reg == nil {
		return nil
	}
	mfs, err := s.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) Close() error { return s.a.Close() }

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(w io.Writer, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(w, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(w io.Writer, format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(w, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
