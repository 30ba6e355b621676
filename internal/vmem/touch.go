package vmem

import (
	"fmt"
	"runtime/debug"
)

const pageSize = 4096

// touch writes one byte per page so every page of b is resident.
// SetPanicOnFault turns a fault on an inaccessible page into an error.
func touch(b []byte) (retErr error) {
	oldSetting := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(oldSetting)

	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				retErr = fmt.Errorf("vmem: fault during populate: %w", err)
			} else {
				retErr = fmt.Errorf("vmem: fault during populate: %v", r)
			}
		}
	}()

	for i := 0; i < len(b); i += pageSize {
		v := b[i]
		b[i] = v
	}
	if last := len(b) - 1; last >= 0 {
		v := b[last]
		b[last] = v
	}
	return nil
}
