package main

import (
	"context"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/maralloc/brk"
	"github.com/joshuapare/maralloc/malloc"
)

var (
	benchWorkers int
	benchOps     int
	benchMaxSize string
	benchSeed    uint64
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVarP(&benchWorkers, "workers", "w", runtime.GOMAXPROCS(0), "Concurrent workers")
	cmd.Flags().IntVarP(&benchOps, "ops", "n", 100000, "Operations per worker")
	cmd.Flags().StringVar(&benchMaxSize, "max-size", "4KiB", "Largest single request")
	cmd.Flags().Uint64Var(&benchSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a concurrent random workload",
		Long: `The bench command runs workers that each issue a random mix of alloc,
calloc, realloc and free calls against one shared heap, verifying the
contents of every allocation before it is released.

Example:
  maralloctl bench
  maralloctl bench --workers 16 --ops 50000 --max-size 64KiB --arena 1GiB
  maralloctl bench --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context())
		},
	}
	return cmd
}

// BenchReport is the JSON form of the bench command.
type BenchReport struct {
	Workers    int            `json:"workers"`
	Ops        uint64         `json:"ops"`
	Elapsed    time.Duration  `json:"elapsedNs"`
	OpsPerSec  float64        `json:"opsPerSec"`
	ArenaBytes int            `json:"arenaBytes"`
	Heap       malloc.Stats   `json:"heap"`
	Arena      brk.ArenaStats `json:"arena"`
}

func runBench(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	maxSize, err := parseSize(benchMaxSize)
	if err != nil {
		return err
	}

	h, a, err := openHeap()
	if err != nil {
		return err
	}
	defer a.Close()

	w := workload{Workers: benchWorkers, Ops: benchOps, MaxSize: maxSize, Seed: benchSeed}
	printVerbose("Running %d workers x %d ops, max size %s\n",
		w.Workers, w.Ops, humanize.IBytes(uint64(maxSize)))

	start := time.Now()
	res, err := w.run(ctx, h)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	report := BenchReport{
		Workers:    w.Workers,
		Ops:        res.Ops,
		Elapsed:    elapsed,
		OpsPerSec:  float64(res.Ops) / elapsed.Seconds(),
		ArenaBytes: a.Len(),
		Heap:       h.Stats(),
		Arena:      a.Stats(),
	}
	if jsonOut {
		return printJSON(report)
	}
	printReport(report)
	return nil
}

func printReport(r BenchReport) {
	p := message.NewPrinter(language.English)
	st := r.Heap

	printInfo("%s", p.Sprintf("Ran %d ops on %d workers in %v (%.0f ops/s)\n",
		r.Ops, r.Workers, r.Elapsed.Round(time.Millisecond), r.OpsPerSec))
	printInfo("\nCalls:\n")
	printInfo("%s", p.Sprintf("  alloc    %d\n  calloc   %d\n  realloc  %d (%d in place)\n  free     %d\n",
		st.AllocCalls, st.CallocCalls, st.ReallocCalls, st.ReallocInPlace, st.FreeCalls))
	printInfo("\nLedger:\n")
	printInfo("%s", p.Sprintf("  reuses   %d\n  grows    %d\n  shrinks  %d\n", st.Reuses, st.Grows, st.Shrinks))
	printInfo("%s", p.Sprintf("  blocks   %d (%d free)\n", st.Blocks, st.FreeBlocks))
	printInfo("  heap     %s (%s free payload)\n",
		humanize.IBytes(st.HeapBytes), humanize.IBytes(st.BytesFree))
	printInfo("\nArena:\n")
	printInfo("  break    %s\n", humanize.IBytes(uint64(r.ArenaBytes)))
	printInfo("%s", p.Sprintf("  moves    %d grow, %d shrink, %d failed\n",
		r.Arena.Grows, r.Arena.Shrinks, r.Arena.Failures))
	printInfo("  returned %s to the kernel\n", humanize.IBytes(uint64(r.Arena.BytesDiscarded)))
}
