// Package brk provides the heap-growth primitive consumed by the allocator.
//
// # Contract
//
// A Grower moves a single, contiguous program break:
//
//   - Sbrk(n), n > 0: extends the break by n bytes and returns the previous
//     top, or ErrNoMemory with the break unchanged.
//   - Sbrk(n), n < 0: shrinks the break by -n bytes and returns the previous
//     top. Shrinking below the base is ErrNoMemory.
//   - Sbrk(0): returns the current top without changing anything.
//
// Memory between the base and the current top is readable and writable.
// A Grower must never call back into an allocator that uses it.
//
// # Implementations
//
// Arena emulates a process break inside one up-front address-space
// reservation (an anonymous mapping on unix, a Go byte slice elsewhere).
// Whole pages released by a shrink are handed back to the kernel.
//
// Limit caps how far any Grower may extend, and GrowerFunc adapts a plain
// function, which is convenient for fault injection in tests.
//
// # Usage Example
//
//	a, err := brk.Open(64<<20)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	prev, err := a.Sbrk(4096) // prev is the old top, 4 KiB now usable
package brk
