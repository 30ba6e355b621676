//go:build unix

package vmem

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Reserve maps size bytes of anonymous, private, read-write memory and
// returns the mapping together with a cleanup that unmaps it.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("vmem: invalid reservation size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("vmem: mmap %d bytes: %w", size, err)
	}
	cleanup := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, cleanup, nil
}

// Discard returns the physical pages behind b to the kernel. The range stays
// mapped; later reads observe zeroes.
func Discard(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	// Only Linux refills private anonymous pages with zeroes after DONTNEED.
	if runtime.GOOS != "linux" {
		clear(b)
	}
	if err := unix.Madvise(b, unix.MADV_DONTNEED); err != nil {
		return fmt.Errorf("vmem: madvise dontneed: %w", err)
	}
	return nil
}
