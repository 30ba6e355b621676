package malloc

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/maralloc/internal/sizes"
)

// Alloc returns a pointer to at least size bytes of uninitialized memory.
//
// The first free block in ledger order whose recorded size is large enough is
// reused as is. Otherwise the heap is extended by one header plus size
// (rounded to sizes.Alignment) and the new block becomes the ledger tail.
// A Grower therefore sees deltas of headerSize + Align(size), not size.
func (h *Heap) Alloc(size uintptr) (unsafe.Pointer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.AllocCalls++
	return h.alloc(size)
}

// alloc is Alloc with h.mu held.
func (h *Heap) alloc(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		h.stats.InvalidArgument++
		return nil, fmt.Errorf("%w: zero size", ErrInvalidArgument)
	}

	if b := h.ledger.firstFit(size); b != nil {
		b.free = false
		h.stats.FreeBlocks--
		h.stats.BytesFree -= uint64(b.size)
		h.stats.BytesInUse += uint64(b.size)
		h.stats.Reuses++
		return payloadOf(b), nil
	}

	return h.extend(size)
}

// extend carves a new block for size bytes from the primitive.
func (h *Heap) extend(size uintptr) (unsafe.Pointer, error) {
	span, ok := spanFor(size)
	if !ok {
		return nil, h.outOfMemory(size, fmt.Errorf("block for %d bytes exceeds address space", size))
	}
	delta, ok := sizes.ToDelta(span)
	if !ok {
		return nil, h.outOfMemory(size, fmt.Errorf("block span %d exceeds maximum break delta", span))
	}

	prev, err := h.g.Sbrk(delta)
	if err != nil {
		return nil, h.outOfMemory(size, err)
	}

	b := (*block)(prev)
	*b = block{size: size}
	h.ledger.push(b)

	h.stats.Blocks++
	h.stats.HeapBytes += uint64(span)
	h.stats.BytesInUse += uint64(size)
	h.stats.Grows++

	h.log.Debug("malloc: heap extended", "size", size, "span", span, "blocks", h.ledger.n)
	return payloadOf(b), nil
}

func (h *Heap) outOfMemory(size uintptr, cause error) error {
	h.stats.OutOfMemory++
	h.log.Warn("malloc: out of memory", "size", size, "error", cause)
	return fmt.Errorf("%w: allocating %d bytes: %w", ErrOutOfMemory, size, cause)
}
