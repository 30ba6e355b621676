package malloc

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/joshuapare/maralloc/brk"
	"github.com/joshuapare/maralloc/internal/logger"
	"github.com/joshuapare/maralloc/internal/sizes"
)

// Allocator is the malloc/calloc/realloc/free surface implemented by Heap.
type Allocator interface {
	// Alloc returns size bytes of uninitialized memory.
	Alloc(size uintptr) (unsafe.Pointer, error)

	// Free releases p. Free(nil) is a no-op.
	Free(p unsafe.Pointer)

	// Calloc returns count*elemSize bytes of zeroed memory.
	Calloc(count, elemSize uintptr) (unsafe.Pointer, error)

	// Realloc resizes the allocation at p, moving it when it must grow.
	Realloc(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error)
}

// Heap is a first-fit allocator over a single heap-growth primitive.
//
// A Heap must be the only user of its Grower: it relies on its newest block
// being the last region below the break.
type Heap struct {
	mu     sync.Mutex // guards everything below, including calls into g
	ledger ledger
	g      brk.Grower
	log    *slog.Logger
	stats  Stats
}

// Stats holds allocator counters and ledger accounting.
type Stats struct {
	Blocks     int    // blocks in the ledger
	FreeBlocks int    // ledger blocks marked free
	BytesInUse uint64 // recorded payload bytes of used blocks
	BytesFree  uint64 // recorded payload bytes of free blocks
	HeapBytes  uint64 // bytes carved from the primitive, headers included

	AllocCalls   uint64 // Alloc() calls
	FreeCalls    uint64 // Free() calls with a non-nil pointer
	CallocCalls  uint64 // Calloc() calls
	ReallocCalls uint64 // Realloc() calls

	Reuses         uint64 // allocations served from a free block
	Grows          uint64 // allocations that extended the heap
	Shrinks        uint64 // trailing releases that shrank the heap
	ReallocInPlace uint64 // Realloc() calls that returned the same pointer

	InvalidArgument uint64 // calls rejected with ErrInvalidArgument
	OutOfMemory     uint64 // calls rejected with ErrOutOfMemory
}

// Option configures a Heap.
type Option func(*Heap)

// WithLogger sets the logger used for heap growth, shrink and failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *Heap) {
		if l != nil {
			h.log = l
		}
	}
}

// New creates an empty Heap over g.
//
// If the current break is not aligned, New extends it by the few bytes needed
// so every block starts on a sizes.Alignment boundary.
func New(g brk.Grower, opts ...Option) (*Heap, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grower", ErrInvalidArgument)
	}
	h := &Heap{g: g, log: logger.L}
	for _, opt := range opts {
		opt(h)
	}

	top, err := g.Sbrk(0)
	if err != nil {
		return nil, fmt.Errorf("malloc: probe heap top: %w", err)
	}
	if mis := uintptr(top) % sizes.Alignment; mis != 0 {
		if _, err := g.Sbrk(int(sizes.Alignment - mis)); err != nil {
			return nil, fmt.Errorf("%w: align heap start: %w", ErrOutOfMemory, err)
		}
	}
	return h, nil
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Len returns the number of blocks in the ledger.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ledger.n
}

// Compile-time interface check
var _ Allocator = (*Heap)(nil)
