package brk

import "errors"

var (
	// ErrNoMemory is the failure sentinel: the break change cannot be satisfied.
	ErrNoMemory = errors.New("brk: cannot satisfy break change")

	// ErrClosed indicates the arena has been closed.
	ErrClosed = errors.New("brk: arena closed")

	// ErrBadCapacity indicates a non-positive or unmappable reservation size.
	ErrBadCapacity = errors.New("brk: bad capacity")
)
