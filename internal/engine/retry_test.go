package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christerso/gpurt/pkg/gpuerr"
)

func TestRetryAllocationSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	handle, err := retryAllocation(3, func() (BufferHandle, error) {
		attempts++
		if attempts < 3 {
			return nil, &gpuerr.AllocationFailed{Size: 16, Reason: "fragmented"}
		}
		return "buf", nil
	})
	require.NoError(t, err)
	assert.Equal(t, BufferHandle("buf"), handle)
	assert.Equal(t, 3, attempts)
}

func TestRetryAllocationDoesNotRetryDeviceLost(t *testing.T) {
	attempts := 0
	_, err := retryAllocation(3, func() (BufferHandle, error) {
		attempts++
		return nil, &gpuerr.DeviceLost{Index: 0, Handle: 1}
	})
	require.Error(t, err)
	_, ok := gpuerr.AsDeviceLost(err)
	assert.True(t, ok)
	assert.Equal(t, 1, attempts)
}

func TestRetryAllocationGivesUpAfterAttempts(t *testing.T) {
	attempts := 0
	_, err := retryAllocation(2, func() (BufferHandle, error) {
		attempts++
		return nil, &gpuerr.AllocationFailed{Size: 16, Reason: "out of memory"}
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}
