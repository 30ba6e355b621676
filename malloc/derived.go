package malloc

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/maralloc/internal/sizes"
)

// Calloc returns count*elemSize bytes of zeroed memory.
//
// Zero arguments and products that overflow a uintptr fail with
// ErrInvalidArgument before the ledger is consulted.
func (h *Heap) Calloc(count, elemSize uintptr) (unsafe.Pointer, error) {
	h.mu.Lock()
	h.stats.CallocCalls++
	if count == 0 || elemSize == 0 {
		h.stats.InvalidArgument++
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: calloc(%d, %d)", ErrInvalidArgument, count, elemSize)
	}
	size, ok := sizes.MulOverflowSafe(count, elemSize)
	if !ok {
		h.stats.InvalidArgument++
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: calloc(%d, %d) overflows", ErrInvalidArgument, count, elemSize)
	}
	p, err := h.alloc(size)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// The block belongs to the caller now; zero it outside the lock.
	clear(unsafe.Slice((*byte)(p), size))
	return p, nil
}

// Realloc resizes the allocation at p to at least size bytes.
//
// A nil p or a zero size behaves exactly like Alloc(size). When p's block
// already records at least size bytes p is returned unchanged. Otherwise a new
// block is allocated, the old recorded size is copied over and p is freed.
// On failure p and its contents are left untouched.
//
// The old pointer must not be used once Realloc has been called with it.
func (h *Heap) Realloc(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.ReallocCalls++
	if p == nil || size == 0 {
		return h.alloc(size)
	}

	old := blockOf(p)
	if old.size >= size {
		h.stats.ReallocInPlace++
		return p, nil
	}

	q, err := h.alloc(size)
	if err != nil {
		return nil, err
	}
	copy(unsafe.Slice((*byte)(q), old.size), old.bytes())
	h.free(p)
	return q, nil
}
