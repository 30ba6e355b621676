package malloc

import "unsafe"

// Free releases the allocation at p. Free(nil) is a no-op.
//
// When p's block is the last region below the break it is unlinked from the
// ledger and its span is returned to the primitive. Any other block is marked
// free and stays in place for reuse by Alloc.
func (h *Heap) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.FreeCalls++
	h.free(p)
}

// free is Free with h.mu held and p non-nil.
func (h *Heap) free(p unsafe.Pointer) {
	b := blockOf(p)

	top, err := h.g.Sbrk(0)
	if err == nil && b.end() == top {
		if h.release(b) {
			return
		}
	}

	b.free = true
	h.stats.FreeBlocks++
	h.stats.BytesInUse -= uint64(b.size)
	h.stats.BytesFree += uint64(b.size)
}

// release shrinks the heap by the trailing block b and unlinks it. When the
// primitive refuses the shrink the ledger is left as it was and release
// reports false.
//
// b's header sits above the break once the shrink succeeds, so everything
// needed from it is read first.
func (h *Heap) release(b *block) bool {
	size, span := b.size, b.span()
	if _, err := h.g.Sbrk(-int(span)); err != nil {
		h.log.Warn("malloc: heap shrink failed", "span", span, "error", err)
		return false
	}
	h.ledger.popTail()

	h.stats.Blocks--
	h.stats.HeapBytes -= uint64(span)
	h.stats.BytesInUse -= uint64(size)
	h.stats.Shrinks++

	h.log.Debug("malloc: heap shrunk", "span", span, "blocks", h.ledger.n)
	return true
}
