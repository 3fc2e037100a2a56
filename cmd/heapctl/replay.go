package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/printer"
)

var replayBlocks bool

func init() {
	cmd := newReplayCmd()
	cmd.Flags().BoolVar(&replayBlocks, "blocks", false, "Include the block map in stats output")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <script>",
		Short: "Run an allocation script",
		Long: `The replay command executes an allocation script, one command per line.
Pointers are named; NAME+N and NAME-N address N bytes past or before a named
pointer, which is how stray pointers are exercised. Lines starting with # are
comments. Use - to read the script from stdin.

Commands:
  alloc NAME SIZE        allocate SIZE bytes
  calloc NAME N SIZE     allocate N*SIZE zeroed bytes
  realloc NAME SIZE      resize NAME, preserving its contents
  free NAME              free NAME (or NAME+N)
  write NAME TEXT        copy TEXT into NAME's payload
  read NAME              print NAME's payload
  check                  verify heap structure
  stats                  print allocator statistics

Example:
  heapctl replay script.txt
  heapctl replay script.txt --json --blocks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}

func runReplay(path string, out, diag io.Writer) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	s, err := newSession(diag)
	if err != nil {
		return err
	}
	defer s.Close()

	r := &replayer{a: s.a, out: out, vars: make(map[string]alloc.Ptr)}
	if err := r.run(in); err != nil {
		return err
	}

	if jsonOut {
		opts := printer.Options{Format: printer.FormatJSON, ShowBlocks: replayBlocks}
		if err := printer.New(s.a, out, opts).Print(); err != nil {
			return err
		}
	}
	if metricsOut {
		return s.writeMetrics(out)
	}
	return nil
}

// replayer executes script commands against one allocator.
type replayer struct {
	a    *alloc.FreeListAllocator
	out  io.Writer
	vars map[string]alloc.Ptr
	line int
}

func (r *replayer) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		r.line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := r.exec(text); err != nil {
			return fmt.Errorf("line %d: %w", r.line, err)
		}
	}
	return sc.Err()
}

func (r *replayer) exec(text string) error {
	cmd, rest, _ := strings.Cut(text, " ")
	args := strings.Fields(rest)

	switch cmd {
	case "alloc":
		if err := want(cmd, args, 2); err != nil {
			return err
		}
		size, err := parseSize(args[1])
		if err != nil {
			return err
		}
		p, err := r.a.Alloc(size)
		if err != nil {
			return err
		}
		r.vars[args[0]] = p
		printInfo(r.out, "alloc %s %d -> %s\n", args[0], size, p)

	case "calloc":
		if err := want(cmd, args, 3); err != nil {
			return err
		}
		n, err := parseSize(args[1])
		if err != nil {
			return err
		}
		size, err := parseSize(args[2])
		if err != nil {
			return err
		}
		p, err := r.a.Calloc(n, size)
		if err != nil {
			return err
		}
		r.vars[args[0]] = p
		printInfo(r.out, "calloc %s %d*%d -> %s\n", args[0], n, size, p)

	case "realloc":
		if err := want(cmd, args, 2); err != nil {
			return err
		}
		p, err := r.ptr(args[0])
		if err != nil {
			return err
		}
		size, err := parseSize(args[1])
		if err != nil {
			return err
		}
		np, err := r.a.Realloc(p, size)
		if r.reported(err) {
			return nil
		}
		if err != nil {
			return err
		}
		r.vars[baseName(args[0])] = np
		printInfo(r.out, "realloc %s %d -> %s\n", args[0], size, np)

	case "free":
		if err := want(cmd, args, 1); err != nil {
			return err
		}
		p, err := r.ptr(args[0])
		if err != nil {
			return err
		}
		switch err := r.a.Free(p); {
		case r.reported(err):
		case err != nil:
			return err
		default:
			printInfo(r.out, "free %s\n", args[0])
		}

	case "write":
		name, payload, _ := strings.Cut(rest, " ")
		p, err := r.ptr(name)
		if err != nil {
			return err
		}
		b, err := r.a.Bytes(p)
		if r.reported(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(payload) > len(b) {
			return fmt.Errorf("write: %d bytes do not fit in %s (%d bytes)", len(payload), name, len(b))
		}
		copy(b, payload)
		printVerbose(r.out, "write %s %q\n", name, payload)

	case "read":
		if err := want(cmd, args, 1); err != nil {
			return err
		}
		p, err := r.ptr(args[0])
		if err != nil {
			return err
		}
		b, err := r.a.Bytes(p)
		if r.reported(err) {
			return nil
		}
		if err != nil {
			return err
		}
		printInfo(r.out, "read %s %q\n", args[0], b)

	case "check":
		if err := r.a.Check(); err != nil {
			return err
		}
		printInfo(r.out, "check ok\n")

	case "stats":
		if jsonOut || quiet {
			return nil
		}
		opts := printer.DefaultOptions()
		opts.ShowBlocks = replayBlocks
		return printer.New(r.a, r.out, opts).Print()

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// reported reports whether err is a pointer rejection. The allocator has
// already written the diagnostic line, so the script keeps going.
func (r *replayer) reported(err error) bool {
	return errors.Is(err, alloc.ErrInvalidPointer)
}

// ptr resolves NAME, NAME+N or NAME-N.
func (r *replayer) ptr(expr string) (alloc.Ptr, error) {
	name, off := expr, 0
	if i := strings.IndexAny(expr, "+-"); i > 0 {
		n, err := strconv.Atoi(expr[i:])
		if err != nil {
			return alloc.Nil, fmt.Errorf("bad pointer offset in %q", expr)
		}
		name, off = expr[:i], n
	}
	if name == "nil" {
		return alloc.Nil.Add(off), nil
	}
	p, ok := r.vars[name]
	if !ok {
		return alloc.Nil, fmt.Errorf("unknown pointer %q", name)
	}
	return p.Add(off), nil
}

func baseName(expr string) string {
	if i := strings.IndexAny(expr, "+-"); i > 0 {
		return expr[:i]
	}
	return expr
}

func want(cmd string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", cmd, n, len(args))
	}
	return nil
}

func parseSize(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad size %q", s)
	}
	return n, nil
}
