package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/maralloc/brk"
	"github.com/joshuapare/maralloc/malloc"
)

type fixedStats malloc.Stats

func (f fixedStats) Stats() malloc.Stats { return malloc.Stats(f) }

type fixedArena struct {
	st       brk.ArenaStats
	len, cap int
}

func (f fixedArena) Stats() brk.ArenaStats { return f.st }
func (f fixedArena) Len() int              { return f.len }
func (f fixedArena) Cap() int              { return f.cap }

func TestCollector_Exposition(t *testing.T) {
	c := NewCollector(fixedStats{
		Blocks:          3,
		FreeBlocks:      1,
		BytesInUse:      30,
		BytesFree:       10,
		HeapBytes:       144,
		AllocCalls:      5,
		FreeCalls:       2,
		CallocCalls:     1,
		ReallocCalls:    4,
		Reuses:          2,
		Grows:           3,
		Shrinks:         1,
		ReallocInPlace:  2,
		InvalidArgument: 1,
		OutOfMemory:     7,
	}, "maralloc")

	want := `
# HELP maralloc_heap_blocks Blocks in the ledger.
# TYPE maralloc_heap_blocks gauge
maralloc_heap_blocks 3
# HELP maralloc_heap_free_blocks Ledger blocks marked free.
# TYPE maralloc_heap_free_blocks gauge
maralloc_heap_free_blocks 1
# HELP maralloc_heap_payload_bytes Recorded payload bytes by block state.
# TYPE maralloc_heap_payload_bytes gauge
maralloc_heap_payload_bytes{state="free"} 10
maralloc_heap_payload_bytes{state="used"} 30
# HELP maralloc_heap_bytes Bytes carved from the heap-growth primitive, headers included.
# TYPE maralloc_heap_bytes gauge
maralloc_heap_bytes 144
# HELP maralloc_heap_calls_total Allocator entry point calls.
# TYPE maralloc_heap_calls_total counter
maralloc_heap_calls_total{op="alloc"} 5
maralloc_heap_calls_total{op="calloc"} 1
maralloc_heap_calls_total{op="free"} 2
maralloc_heap_calls_total{op="realloc"} 4
# HELP maralloc_heap_failures_total Calls rejected, by error class.
# TYPE maralloc_heap_failures_total counter
maralloc_heap_failures_total{class="invalid_argument"} 1
maralloc_heap_failures_total{class="out_of_memory"} 7
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(want),
		"maralloc_heap_blocks",
		"maralloc_heap_free_blocks",
		"maralloc_heap_payload_bytes",
		"maralloc_heap_bytes",
		"maralloc_heap_calls_total",
		"maralloc_heap_failures_total",
	))
	require.Equal(t, 15, testutil.CollectAndCount(c))
}

func TestCollector_Lint(t *testing.T) {
	problems, err := testutil.CollectAndLint(NewCollector(fixedStats{}, "maralloc"))
	require.NoError(t, err)
	require.Empty(t, problems)

	problems, err = testutil.CollectAndLint(NewArenaCollector(fixedArena{}, "maralloc"))
	require.NoError(t, err)
	require.Empty(t, problems)
}

func TestCollector_LiveHeap(t *testing.T) {
	a, err := brk.Open(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	h, err := malloc.New(a)
	require.NoError(t, err)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(h, "maralloc")))
	require.NoError(t, reg.Register(NewArenaCollector(a, "maralloc")))

	p1, err := h.Alloc(10)
	require.NoError(t, err)
	p2, err := h.Alloc(20)
	require.NoError(t, err)
	h.Free(p1)
	_, err = h.Alloc(5)
	require.NoError(t, err)
	h.Free(p2)
	_, err = h.Alloc(0)
	require.ErrorIs(t, err, malloc.ErrInvalidArgument)

	want := `
# HELP maralloc_heap_blocks Blocks in the ledger.
# TYPE maralloc_heap_blocks gauge
maralloc_heap_blocks 1
# HELP maralloc_heap_grows_total Allocations that extended the heap.
# TYPE maralloc_heap_grows_total counter
maralloc_heap_grows_total 2
# HELP maralloc_heap_reuses_total Allocations served from a free block.
# TYPE maralloc_heap_reuses_total counter
maralloc_heap_reuses_total 1
# HELP maralloc_heap_shrinks_total Trailing releases that shrank the heap.
# TYPE maralloc_heap_shrinks_total counter
maralloc_heap_shrinks_total 1
# HELP maralloc_heap_failures_total Calls rejected, by error class.
# TYPE maralloc_heap_failures_total counter
maralloc_heap_failures_total{class="invalid_argument"} 1
maralloc_heap_failures_total{class="out_of_memory"} 0
# HELP maralloc_arena_break_moves_total Successful break movements by direction.
# TYPE maralloc_arena_break_moves_total counter
maralloc_arena_break_moves_total{direction="grow"} 2
maralloc_arena_break_moves_total{direction="shrink"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want),
		"maralloc_heap_blocks",
		"maralloc_heap_grows_total",
		"maralloc_heap_reuses_total",
		"maralloc_heap_shrinks_total",
		"maralloc_heap_failures_total",
		"maralloc_arena_break_moves_total",
	))

	st := h.Stats()
	require.Equal(t, float64(a.Len()), gatherValue(t, reg, "maralloc_arena_bytes"))
	require.Equal(t, float64(st.HeapBytes), gatherValue(t, reg, "maralloc_heap_bytes"))
}

func gatherValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	mfs, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
