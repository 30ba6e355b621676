// Package metrics exports allocator and arena counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshuapare/maralloc/brk"
	"github.com/joshuapare/maralloc/malloc"
)

// StatsSource is anything that can report heap counters. *malloc.Heap
// satisfies it.
type StatsSource interface {
	Stats() malloc.Stats
}

// ArenaSource is anything that can report break movements. *brk.Arena
// satisfies it.
type ArenaSource interface {
	Stats() brk.ArenaStats
	Len() int
	Cap() int
}

type heapCollector struct {
	src StatsSource

	blocks     *prometheus.Desc
	freeBlocks *prometheus.Desc
	bytes      *prometheus.Desc
	heapBytes  *prometheus.Desc
	calls      *prometheus.Desc
	reuses     *prometheus.Desc
	grows      *prometheus.Desc
	shrinks    *prometheus.Desc
	inPlace    *prometheus.Desc
	failures   *prometheus.Desc
}

// NewCollector returns a collector that reads src on every scrape.
// Metric names are prefixed with namespace when it is non-empty.
func NewCollector(src StatsSource, namespace string) prometheus.Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "heap", n)
	}
	return &heapCollector{
		src: src,
		blocks: prometheus.NewDesc(name("blocks"),
			"Blocks in the ledger.", nil, nil),
		freeBlocks: prometheus.NewDesc(name("free_blocks"),
			"Ledger blocks marked free.", nil, nil),
		bytes: prometheus.NewDesc(name("payload_bytes"),
			"Recorded payload bytes by block state.", []string{"state"}, nil),
		heapBytes: prometheus.NewDesc(name("bytes"),
			"Bytes carved from the heap-growth primitive, headers included.", nil, nil),
		calls: prometheus.NewDesc(name("calls_total"),
			"Allocator entry point calls.", []string{"op"}, nil),
		reuses: prometheus.NewDesc(name("reuses_total"),
			"Allocations served from a free block.", nil, nil),
		grows: prometheus.NewDesc(name("grows_total"),
			"Allocations that extended the heap.", nil, nil),
		shrinks: prometheus.NewDesc(name("shrinks_total"),
			"Trailing releases that shrank the heap.", nil, nil),
		inPlace: prometheus.NewDesc(name("realloc_in_place_total"),
			"Realloc calls that returned the original pointer.", nil, nil),
		failures: prometheus.NewDesc(name("failures_total"),
			"Calls rejected, by error class.", []string{"class"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *heapCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.blocks
	ch <- c.freeBlocks
	ch <- c.bytes
	ch <- c.heapBytes
	ch <- c.calls
	ch <- c.reuses
	ch <- c.grows
	ch <- c.shrinks
	ch <- c.inPlace
	ch <- c.failures
}

// Collect implements prometheus.Collector.
func (c *heapCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	gauge(c.blocks, float64(st.Blocks))
	gauge(c.freeBlocks, float64(st.FreeBlocks))
	gauge(c.bytes, float64(st.BytesInUse), "used")
	gauge(c.bytes, float64(st.BytesFree), "free")
	gauge(c.heapBytes, float64(st.HeapBytes))

	counter(c.calls, st.AllocCalls, "alloc")
	counter(c.calls, st.FreeCalls, "free")
	counter(c.calls, st.CallocCalls, "calloc")
	counter(c.calls, st.ReallocCalls, "realloc")
	counter(c.reuses, st.Reuses)
	counter(c.grows, st.Grows)
	counter(c.shrinks, st.Shrinks)
	counter(c.inPlace, st.ReallocInPlace)
	counter(c.failures, st.InvalidArgument, "invalid_argument")
	counter(c.failures, st.OutOfMemory, "out_of_memory")
}

type arenaCollector struct {
	src ArenaSource

	size      *prometheus.Desc
	capacity  *prometheus.Desc
	moves     *prometheus.Desc
	failures  *prometheus.Desc
	discarded *prometheus.Desc
}

// NewArenaCollector returns a collector for the break of an arena.
func NewArenaCollector(src ArenaSource, namespace string) prometheus.Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "arena", n)
	}
	return &arenaCollector{
		src: src,
		size: prometheus.NewDesc(name("bytes"),
			"Bytes below the break.", nil, nil),
		capacity: prometheus.NewDesc(name("capacity_bytes"),
			"Size of the address-space reservation.", nil, nil),
		moves: prometheus.NewDesc(name("break_moves_total"),
			"Successful break movements by direction.", []string{"direction"}, nil),
		failures: prometheus.NewDesc(name("failures_total"),
			"Break movements rejected for lack of memory.", nil, nil),
		discarded: prometheus.NewDesc(name("discarded_bytes_total"),
			"Bytes handed back to the kernel on shrink.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *arenaCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.capacity
	ch <- c.moves
	ch <- c.failures
	ch <- c.discarded
}

// Collect implements prometheus.Collector.
func (c *arenaCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(c.src.Len()))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(c.src.Cap()))
	ch <- prometheus.MustNewConstMetric(c.moves, prometheus.CounterValue, float64(st.Grows), "grow")
	ch <- prometheus.MustNewConstMetric(c.moves, prometheus.CounterValue, float64(st.Shrinks), "shrink")
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(st.Failures))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(st.BytesDiscarded))
}

// Compile-time interface checks
var (
	_ StatsSource = (*malloc.Heap)(nil)
	_ ArenaSource = (*brk.Arena)(nil)
)
