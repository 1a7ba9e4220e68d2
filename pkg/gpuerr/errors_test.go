package gpuerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceIndexOutOfRangeMessage(t *testing.T) {
	err := &DeviceIndexOutOfRange{Index: 3, Devices: 2}
	assert.Contains(t, err.Error(), "index 3")
	assert.Contains(t, err.Error(), "2 devices")
}

func TestArtifactDecodeUnwraps(t *testing.T) {
	cause := errors.New("unexpected eof")
	err := &ArtifactDecode{Reason: "bytecode", Cause: cause}
	require.ErrorIs(t, err, cause)
}

func TestAsDeviceLostFindsWrapped(t *testing.T) {
	lost := &DeviceLost{Index: 0, Handle: 0xdead}
	wrapped := fmt.Errorf("submit failed: %w", lost)

	found, ok := AsDeviceLost(wrapped)
	require.True(t, ok)
	assert.Equal(t, uint64(0xdead), found.Handle)

	_, ok = AsDeviceLost(errors.New("unrelated"))
	assert.False(t, ok)
}
