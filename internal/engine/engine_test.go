package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/gpuerr"
)

func TestNewNegotiatesAdvertisedIntersectOptimal(t *testing.T) {
	backend := newNoopBackend()
	optimal := features.Empty().WithInt8(true).WithInt64(true)

	e, err := New(backend, 0, optimal)
	require.NoError(t, err)

	assert.True(t, e.Features().Int8())
	assert.True(t, e.Features().Int64())
	assert.False(t, e.Features().Float16())
}

func TestNewRejectsOutOfRangeIndex(t *testing.T) {
	backend := newNoopBackend()
	_, err := New(backend, 7, features.All())

	var outOfRange *gpuerr.DeviceIndexOutOfRange
	require.True(t, errors.As(err, &outOfRange))
	assert.Equal(t, 7, outOfRange.Index)
}

func TestEngineTransitionsToLostAndStaysLost(t *testing.T) {
	backend := newNoopBackend()
	e, err := New(backend, 0, features.All())
	require.NoError(t, err)

	loseDevice(e.dev)

	err = e.Wait()
	require.Error(t, err)
	assert.True(t, e.IsLost())

	_, err = Uninit(e, 16)
	require.Error(t, err)
	lost, ok := gpuerr.AsDeviceLost(err)
	require.True(t, ok)
	assert.Equal(t, e.handle, lost.Handle)
}

func TestCloseMarksEngineLost(t *testing.T) {
	backend := newNoopBackend()
	e, err := New(backend, 0, features.All())
	require.NoError(t, err)

	require.NoError(t, e.Close())
	assert.True(t, e.IsLost())
}
