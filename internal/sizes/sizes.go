// Package sizes holds the byte-count arithmetic shared by the allocator and
// the heap-growth primitives.
package sizes

import "math"

const (
	// Alignment is the payload alignment guaranteed by the allocator.
	Alignment = 16

	// AlignmentMask is used for rounding to Alignment.
	AlignmentMask = Alignment - 1

	// PageSize is the granularity at which released heap space is handed
	// back to the kernel.
	PageSize = 4096
)

// Align returns n aligned up to the next 16-byte boundary.
//
// Example:
//
//	Align(1)  = 16
//	Align(16) = 16
//	Align(17) = 32
//
// The caller must ensure n+AlignmentMask does not overflow; see AlignOverflowSafe.
func Align(n uintptr) uintptr {
	return (n + AlignmentMask) &^ AlignmentMask
}

// AlignOverflowSafe aligns n up to Alignment, returning ok = false when the
// rounding would wrap around.
func AlignOverflowSafe(n uintptr) (uintptr, bool) {
	if n > math.MaxUint-AlignmentMask {
		return 0, false
	}
	return Align(n), true
}

// AlignPage returns n aligned up to the next page boundary.
func AlignPage(n uintptr) uintptr {
	return (n + PageSize - 1) &^ (PageSize - 1)
}

// AlignPageDown returns n aligned down to the previous page boundary.
func AlignPageDown(n uintptr) uintptr {
	return n &^ (PageSize - 1)
}

// AddOverflowSafe adds a and b, returning ok = false when the result would
// overflow uintptr.
func AddOverflowSafe(a, b uintptr) (uintptr, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// MulOverflowSafe multiplies count by elemSize, returning ok = false when the
// product does not fit in a uintptr. Overflow is detected by dividing the
// product back by count: a wrapped product never reproduces elemSize.
// A zero operand yields 0, true.
func MulOverflowSafe(count, elemSize uintptr) (uintptr, bool) {
	if count == 0 || elemSize == 0 {
		return 0, true
	}
	product := count * elemSize
	if product/count != elemSize {
		return 0, false
	}
	return product, true
}

// ToDelta converts an unsigned byte count into the signed delta taken by a
// heap-growth primitive, returning ok = false when n exceeds math.MaxInt.
func ToDelta(n uintptr) (int, bool) {
	if n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}
