package malloc

import "unsafe"

// BlockInfo describes one ledger block.
type BlockInfo struct {
	Addr uintptr // payload address
	Size uintptr // recorded payload size
	Span uintptr // heap bytes occupied, header included
	Free bool
}

// Blocks returns a snapshot of the ledger in order, oldest first.
func (h *Heap) Blocks() []BlockInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]BlockInfo, 0, h.ledger.n)
	h.ledger.walk(func(b *block) bool {
		out = append(out, BlockInfo{
			Addr: uintptr(payloadOf(b)),
			Size: b.size,
			Span: b.span(),
			Free: b.free,
		})
		return true
	})
	return out
}

// UsableSize returns the recorded size of the block owning p, or 0 for nil.
// The result is the capacity Realloc compares against.
func UsableSize(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	return blockOf(p).size
}

// Bytes returns the payload at p as a byte slice of its recorded size.
// The slice aliases heap memory and must not be used after p is freed.
func Bytes(p unsafe.Pointer) []byte {
	if p == nil {
		return nil
	}
	return blockOf(p).bytes()
}

// Bytes is the method form of the package-level Bytes.
func (h *Heap) Bytes(p unsafe.Pointer) []byte {
	return Bytes(p)
}
