package main

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/maralloc/malloc"
)

func init() {
	rootCmd.AddCommand(newScenarioCmd())
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Replay the reference allocation sequence",
		Long: `The scenario command runs a fixed sequence against a fresh heap and
prints the ledger after every step:

  p1 = alloc(10)
  p2 = alloc(20)
  free(p1)
  p3 = alloc(5)     reuses p1's block
  free(p2)          trailing, shrinks the heap

Example:
  maralloctl scenario
  maralloctl scenario --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario()
		},
	}
	return cmd
}

// ScenarioStep is one line of the scenario transcript.
type ScenarioStep struct {
	Op      string             `json:"op"`
	Result  string             `json:"result,omitempty"`
	Ledger  []malloc.BlockInfo `json:"ledger"`
	HeapTop uintptr            `json:"heapTop"`
}

// ScenarioResult is the JSON form of the scenario command.
type ScenarioResult struct {
	Base  uintptr        `json:"base"`
	Steps []ScenarioStep `json:"steps"`
	Reuse bool           `json:"reuse"`
	Stats malloc.Stats   `json:"stats"`
}

func runScenario() error {
	h, a, err := openHeap()
	if err != nil {
		return err
	}
	defer a.Close()

	base, err := a.Sbrk(0)
	if err != nil {
		return err
	}
	res := ScenarioResult{Base: uintptr(base)}

	record := func(op, result string) error {
		top, err := a.Sbrk(0)
		if err != nil {
			return err
		}
		res.Steps = append(res.Steps, ScenarioStep{
			Op:      op,
			Result:  result,
			Ledger:  h.Blocks(),
			HeapTop: uintptr(top),
		})
		return nil
	}
	alloc := func(name string, size uintptr) (unsafe.Pointer, error) {
		p, err := h.Alloc(size)
		if err != nil {
			return nil, fmt.Errorf("%s = alloc(%d): %w", name, size, err)
		}
		return p, record(fmt.Sprintf("%s = alloc(%d)", name, size), fmt.Sprintf("%p", p))
	}
	free := func(name string, p unsafe.Pointer) error {
		h.Free(p)
		return record(fmt.Sprintf("free(%s)", name), "")
	}

	p1, err := alloc("p1", 10)
	if err != nil {
		return err
	}
	p2, err := alloc("p2", 20)
	if err != nil {
		return err
	}
	if err := free("p1", p1); err != nil {
		return err
	}
	p3, err := alloc("p3", 5)
	if err != nil {
		return err
	}
	if err := free("p2", p2); err != nil {
		return err
	}
	res.Reuse = p3 == p1
	res.Stats = h.Stats()

	if jsonOut {
		return printJSON(res)
	}

	printInfo("Heap base %#x\n", res.Base)
	for _, s := range res.Steps {
		if s.Result != "" {
			printInfo("\n%s -> %s\n", s.Op, s.Result)
		} else {
			printInfo("\n%s\n", s.Op)
		}
		printLedger(s.Ledger, res.Base)
		printVerbose("  heap top %#x (+%s)\n", s.HeapTop, humanize.IBytes(uint64(s.HeapTop-res.Base)))
	}
	printInfo("\np3 reused p1's block: %t\n", res.Reuse)
	return nil
}

// printLedger prints one line per block with its offset from base.
func printLedger(blocks []malloc.BlockInfo, base uintptr) {
	if len(blocks) == 0 {
		printInfo("  (empty)\n")
		return
	}
	for i, b := range blocks {
		state := "used"
		if b.Free {
			state = "free"
		}
		printInfo("  [%d] +%-6d size=%-4d span=%-4d %s\n", i, b.Addr-base, b.Size, b.Span, state)
	}
}
