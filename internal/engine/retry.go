package engine

import (
	"fmt"

	"github.com/christerso/gpurt/pkg/gpuerr"
)

// retryAllocation generalizes the teacher's Retry helper
// (pkg/vk/errors.go) to gpurt's own error kinds: an *AllocationFailed is
// treated as transient and retried up to attempts times; a *DeviceLost
// is terminal and returned immediately, same as the teacher's
// ERROR_DEVICE_LOST special case.
func retryAllocation(attempts int, fn func() (BufferHandle, error)) (BufferHandle, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		handle, err := fn()
		if err == nil {
			return handle, nil
		}
		if _, ok := gpuerr.AsDeviceLost(err); ok {
			return nil, err
		}
		if _, ok := err.(*gpuerr.AllocationFailed); !ok {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("allocation failed after %d attempts: %w", attempts, lastErr)
}
