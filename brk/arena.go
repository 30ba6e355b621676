package brk

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"unsafe"

	"github.com/joshuapare/maralloc/internal/logger"
	"github.com/joshuapare/maralloc/internal/sizes"
	"github.com/joshuapare/maralloc/internal/vmem"
)

// DefaultCapacity is the reservation size used by the CLI and examples.
const DefaultCapacity = 64 << 20

// Arena emulates a program break inside a fixed reservation.
//
// The reservation is made once by Open and never moves, so pointers handed
// out below the break stay valid until Close. Arena is safe for concurrent
// use, although an allocator normally serializes its calls anyway.
type Arena struct {
	mu sync.Mutex

	data    []byte
	cleanup func() error
	base    unsafe.Pointer

	// brk is the current break as an offset from base.
	brk uintptr

	// resident is the page-aligned high-water mark of bytes that may be
	// backed by physical pages. Shrinks discard pages above the new break.
	resident uintptr

	prefault bool
	log      *slog.Logger

	stats ArenaStats
}

// ArenaStats counts break movements.
type ArenaStats struct {
	Grows          int   // successful positive Sbrk calls
	Shrinks        int   // successful negative Sbrk calls
	Failures       int   // Sbrk calls rejected with ErrNoMemory
	BytesDiscarded int64 // bytes handed back to the kernel
}

// Option configures an Arena.
type Option func(*Arena)

// WithPrefault makes every grow pre-fault the newly exposed pages.
func WithPrefault() Option {
	return func(a *Arena) { a.prefault = true }
}

// WithLogger sets the logger used for reservation lifecycle and failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arena) {
		if l != nil {
			a.log = l
		}
	}
}

// Open reserves capacity bytes (rounded up to a whole page) and returns an
// Arena whose break starts at the beginning of the reservation.
func Open(capacity int, opts ...Option) (*Arena, error) {
	if capacity <= 0 || uintptr(capacity) > math.MaxInt-sizes.PageSize {
		return nil, fmt.Errorf("%w: %d", ErrBadCapacity, capacity)
	}
	size := int(sizes.AlignPage(uintptr(capacity)))

	a := &Arena{log: logger.L}
	for _, opt := range opts {
		opt(a)
	}

	data, cleanup, err := vmem.Reserve(size)
	if err != nil {
		return nil, err
	}
	a.data = data
	a.cleanup = cleanup
	a.base = unsafe.Pointer(unsafe.SliceData(data))

	a.log.Debug("brk: arena reserved", "capacity", size, "base", a.base)
	return a, nil
}

// Sbrk implements Grower.
func (a *Arena) Sbrk(delta int) (unsafe.Pointer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.data == nil {
		return nil, ErrClosed
	}
	prev := unsafe.Add(a.base, a.brk)

	switch {
	case delta == 0:
		return prev, nil

	case delta > 0:
		n := uintptr(delta)
		if n > uintptr(len(a.data))-a.brk {
			a.stats.Failures++
			a.log.Warn("brk: reservation exhausted",
				"requested", delta, "inUse", a.brk, "capacity", len(a.data))
			return nil, fmt.Errorf("%w: requested %d bytes, %d of %d in use",
				ErrNoMemory, delta, a.brk, len(a.data))
		}
		newBrk := a.brk + n
		if a.prefault {
			from := sizes.AlignPageDown(a.brk)
			to := min(sizes.AlignPage(newBrk), uintptr(len(a.data)))
			if err := vmem.Populate(a.data[from:to]); err != nil {
				a.stats.Failures++
				return nil, fmt.Errorf("%w: %w", ErrNoMemory, err)
			}
		}
		a.brk = newBrk
		a.resident = max(a.resident, sizes.AlignPage(newBrk))
		a.stats.Grows++
		return prev, nil

	default:
		// -(delta+1)+1 avoids overflowing on math.MinInt.
		n := uintptr(-(delta + 1)) + 1
		if n > a.brk {
			a.stats.Failures++
			return nil, fmt.Errorf("%w: shrink by %d below base (in use %d)",
				ErrNoMemory, n, a.brk)
		}
		a.brk -= n
		a.stats.Shrinks++
		a.discardAbove(a.brk)
		return prev, nil
	}
}

// discardAbove returns whole pages above the break to the kernel.
func (a *Arena) discardAbove(brk uintptr) {
	from := sizes.AlignPage(brk)
	if from >= a.resident {
		return
	}
	if err := vmem.Discard(a.data[from:a.resident]); err != nil {
		// The pages stay resident; the break itself already moved.
		a.log.Warn("brk: discard failed", "from", from, "to", a.resident, "error", err)
		return
	}
	a.stats.BytesDiscarded += int64(a.resident - from)
	a.resident = from
}

// Base returns the lowest address of the reservation.
func (a *Arena) Base() unsafe.Pointer {
	return a.base
}

// Len returns the number of bytes currently below the break.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.brk)
}

// Cap returns the reservation size.
func (a *Arena) Cap() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.data)
}

// Stats returns a snapshot of the break counters.
func (a *Arena) Stats() ArenaStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Close releases the reservation. Every pointer obtained from the arena
// becomes invalid. Closing twice is a no-op.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.data == nil {
		return nil
	}
	err := a.cleanup()
	a.log.Debug("brk: arena released", "capacity", len(a.data), "inUse", a.brk)
	a.data, a.base, a.brk, a.resident = nil, nil, 0, 0
	return err
}

// Compile-time interface check
var _ Grower = (*Arena)(nil)
