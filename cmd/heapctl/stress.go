package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
)

var (
	stressIterations int
	stressSize       int
	stressSeed       int64
	stressLive       int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressIterations, "iterations", 100000, "Number of alloc/free operations")
	cmd.Flags().IntVar(&stressSize, "size", 1024, "Largest request size in bytes")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&stressLive, "live", 512, "Largest number of simultaneously live blocks")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a random allocation workload",
		Long: `The stress command runs a seeded random mix of alloc and free calls,
verifies the heap at checkpoints, and reports whether the arena size reached a
plateau: a steady workload should stop growing the heap once fragmentation
settles.

Example:
  heapctl stress --iterations 1000000 --size 4096 --seed 7
  heapctl stress --json --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}

// StressResult summarises a stress run.
type StressResult struct {
	Seed       int64       `json:"seed"`
	Iterations int         `json:"iterations"`
	Checkpoint []int64     `json:"arena_bytes_by_decile"`
	Plateau    bool        `json:"plateau"`
	Stats      alloc.Stats `json:"stats"`
}

func runStress(out, diag io.Writer) error {
	if stressIterations <= 0 || stressSize < 0 || stressLive <= 0 {
		return errors.New("iterations and live must be positive, size non-negative")
	}

	s, err := newSession(diag)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := stress(s.a, stressIterations, stressSize, stressLive, stressSeed)
	if err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printInfo(out, "Iterations: %d (seed %d)\n", res.Iterations, res.Seed)
		printInfo(out, "Arena:      %s in %d growths\n",
			humanize.IBytes(uint64(res.Stats.ArenaBytes)), res.Stats.GrowCalls)
		printInfo(out, "Splits:     %d, exact fits: %d\n", res.Stats.SplitCount, res.Stats.ExactFits)
		printInfo(out, "Coalesced:  %d forward, %d backward\n", res.Stats.CoalesceForward, res.Stats.CoalesceBackward)
		for i, b := range res.Checkpoint {
			printVerbose(out, "  %3d%%  %s\n", (i+1)*10, humanize.IBytes(uint64(b)))
		}
		if res.Plateau {
			printInfo(out, "Plateau:    yes\n")
		} else {
			printInfo(out, "Plateau:    no (arena still growing in the last half)\n")
		}
	}

	if metricsOut {
		return s.writeMetrics(out)
	}
	return nil
}

// stress drives a random workload against a. The arena is sampled at every
// tenth of the run; it has plateaued when the second half saw no growth.
func stress(a *alloc.FreeListAllocator, iterations, maxSize, maxLive int, seed int64) (*StressResult, error) {
	rng := rand.New(rand.NewSource(seed))
	live := make([]alloc.Ptr, 0, maxLive)
	res := &StressResult{Seed: seed, Iterations: iterations}
	step := max(iterations/10, 1)

	for i := range iterations {
		if len(live) < maxLive && (len(live) == 0 || rng.Intn(2) == 0) {
			p, err := a.Alloc(rng.Intn(maxSize + 1))
			if err != nil {
				return nil, fmt.Errorf("iteration %d: %w", i, err)
			}
			live = append(live, p)
		} else {
			j := rng.Intn(len(live))
			if err := a.Free(live[j]); err != nil {
				return nil, fmt.Errorf("iteration %d: %w", i, err)
			}
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		}

		if (i+1)%step == 0 && len(res.Checkpoint) < 10 {
			if err := a.Check(); err != nil {
				return nil, fmt.Errorf("iteration %d: %w", i, err)
			}
			res.Checkpoint = append(res.Checkpoint, a.Stats().ArenaBytes)
		}
	}

	if n := len(res.Checkpoint); n >= 2 {
		res.Plateau = res.Checkpoint[n/2-1] == res.Checkpoint[n-1]
	}
	res.Stats = a.Stats()
	return res, nil
}
