package malloc

import "errors"

var (
	// ErrInvalidArgument indicates a zero size, zero count or element size, or a
	// count*elemSize product that overflows.
	ErrInvalidArgument = errors.New("malloc: invalid argument")

	// ErrOutOfMemory indicates the heap-growth primitive could not extend the heap.
	ErrOutOfMemory = errors.New("malloc: out of memory")
)
