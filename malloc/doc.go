// Package malloc provides a first-fit dynamic memory allocator built on a
// program-break style heap-growth primitive.
//
// # Overview
//
// A Heap hands out raw memory carved from the region below a brk.Grower's
// break. Every allocation is a block: a fixed-size header immediately
// followed by the caller's payload. The heap keeps every block it has ever
// carved in a singly-linked ledger ordered by creation, which is also address
// order because the break only grows contiguously.
//
// # Operations
//
//   - Alloc(size): reuse the first free block that is large enough, otherwise
//     extend the break by header + size and append a new block.
//   - Free(p): if p's block is the last one below the break, unlink it and
//     shrink the break; otherwise mark it free for reuse.
//   - Calloc(count, elemSize): overflow-checked Alloc that zero-fills.
//   - Realloc(p, size): return p when its block is already large enough,
//     otherwise allocate, copy and free the old block.
//
// Free blocks are never split, coalesced or shrunk. Only the trailing block
// ever goes back to the primitive, so fragmentation only decreases through
// trailing releases.
//
// # Usage Example
//
//	a, err := brk.Open(brk.DefaultCapacity)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	h, err := malloc.New(a)
//	if err != nil {
//	    return err
//	}
//
//	p, err := h.Alloc(128)
//	if err != nil {
//	    return err
//	}
//	buf := h.Bytes(p) // 128-byte view of the payload
//	copy(buf, "hello")
//	h.Free(p)
//
// # Errors
//
// Alloc, Calloc and Realloc return ErrInvalidArgument for zero sizes and
// overflowing count*elemSize products, and ErrOutOfMemory when the primitive
// refuses to extend the break. A failed call never changes the ledger, and a
// failed Realloc leaves the original block untouched.
//
// # Thread Safety
//
// Every exported method is one critical section under a single mutex per
// Heap, including the call into the primitive. The primitive must therefore
// never call back into the same Heap.
//
// Freeing a pointer twice or freeing memory the Heap did not return is
// undefined behaviour and is not detected.
package malloc
