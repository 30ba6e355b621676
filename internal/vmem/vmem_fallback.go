//go:build !unix

package vmem

import "fmt"

// Reserve allocates size bytes from the Go heap when mmap is not available.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("vmem: invalid reservation size %d", size)
	}
	// One spare byte keeps a pointer to the end of the reservation inside
	// the allocation.
	data := make([]byte, size+1)[:size:size]
	return data, func() error { return nil }, nil
}

// Discard zeroes b; a Go-heap reservation cannot hand pages back.
func Discard(b []byte) error {
	clear(b)
	return nil
}
