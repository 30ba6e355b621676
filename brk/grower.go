package brk

import (
	"fmt"
	"unsafe"
)

// Grower is the heap-growth primitive.
type Grower interface {
	// Sbrk moves the break by delta bytes and returns the previous top.
	Sbrk(delta int) (unsafe.Pointer, error)
}

// GrowerFunc adapts an ordinary function to the Grower interface.
type GrowerFunc func(delta int) (unsafe.Pointer, error)

// Sbrk calls f(delta).
func (f GrowerFunc) Sbrk(delta int) (unsafe.Pointer, error) {
	return f(delta)
}

// limited caps the number of bytes a Grower may hold above its base.
type limited struct {
	g    Grower
	base unsafe.Pointer
	max  uintptr
}

// Limit wraps g so the break never rises more than max bytes above the top
// observed when Limit is called. Requests beyond the cap fail with
// ErrNoMemory and never reach g.
func Limit(g Grower, max int) (Grower, error) {
	if max < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrBadCapacity, max)
	}
	base, err := g.Sbrk(0)
	if err != nil {
		return nil, err
	}
	return &limited{g: g, base: base, max: uintptr(max)}, nil
}

func (l *limited) Sbrk(delta int) (unsafe.Pointer, error) {
	if delta > 0 {
		top, err := l.g.Sbrk(0)
		if err != nil {
			return nil, err
		}
		used := uintptr(top) - uintptr(l.base)
		if used > l.max || uintptr(delta) > l.max-used {
			return nil, fmt.Errorf("%w: limit %d bytes, in use %d, requested %d",
				ErrNoMemory, l.max, used, delta)
		}
	}
	return l.g.Sbrk(delta)
}

// Compile-time interface check
var _ Grower = (*limited)(nil)
