package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/maralloc/malloc"
)

// workload describes a random mix of allocator calls run by several workers.
type workload struct {
	Workers int
	Ops     int
	MaxSize int
	Seed    uint64
}

// workloadResult summarises one run.
type workloadResult struct {
	Ops       uint64
	Corrupted int
}

type tagged struct {
	p   unsafe.Pointer
	tag byte
}

// run executes the workload against h. Every worker writes its own tag over
// each allocation and checks it before release; any mismatch is counted and
// fails the run. All allocations are released before run returns.
func (w workload) run(ctx context.Context, h malloc.Allocator) (workloadResult, error) {
	if w.Workers < 1 || w.Ops < 1 || w.MaxSize < 1 {
		return workloadResult{}, fmt.Errorf("workload needs positive workers, ops and max size")
	}

	results := make([]workloadResult, w.Workers)
	g, ctx := errgroup.WithContext(ctx)
	for id := 0; id < w.Workers; id++ {
		g.Go(func() error {
			return w.worker(ctx, h, id, &results[id])
		})
	}
	err := g.Wait()

	var total workloadResult
	for _, r := range results {
		total.Ops += r.Ops
		total.Corrupted += r.Corrupted
	}
	return total, err
}

func (w workload) worker(ctx context.Context, h malloc.Allocator, id int, res *workloadResult) error {
	r := rand.New(rand.NewPCG(w.Seed, uint64(id)))
	tag := byte(id%255 + 1)
	live := make([]tagged, 0, 128)

	verify := func(t tagged) bool {
		for _, c := range malloc.Bytes(t.p) {
			if c != t.tag {
				res.Corrupted++
				return false
			}
		}
		return true
	}
	stamp := func(p unsafe.Pointer) tagged {
		b := malloc.Bytes(p)
		for i := range b {
			b[i] = tag
		}
		return tagged{p, tag}
	}
	release := func() error {
		for _, t := range live {
			verify(t)
			h.Free(t.p)
		}
		live = live[:0]
		if res.Corrupted > 0 {
			return fmt.Errorf("worker %d: %d corrupted allocations", id, res.Corrupted)
		}
		return nil
	}

	for i := 0; i < w.Ops; i++ {
		if i%256 == 0 && ctx.Err() != nil {
			_ = release()
			return ctx.Err()
		}
		res.Ops++

		size := uintptr(1 + r.IntN(w.MaxSize))
		switch op := r.IntN(10); {
		case op < 4 || len(live) == 0:
			p, err := h.Alloc(size)
			if err != nil {
				_ = release()
				return err
			}
			live = append(live, stamp(p))

		case op < 5:
			elem := uintptr(1 + r.IntN(16))
			p, err := h.Calloc(max(size/elem, 1), elem)
			if err != nil {
				_ = release()
				return err
			}
			live = append(live, stamp(p))

		case op < 7:
			j := r.IntN(len(live))
			verify(live[j])
			q, err := h.Realloc(live[j].p, size)
			if err != nil {
				_ = release()
				return err
			}
			live[j] = stamp(q)

		default:
			j := r.IntN(len(live))
			verify(live[j])
			h.Free(live[j].p)
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	return release()
}
