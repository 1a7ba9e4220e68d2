package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/gpuerr"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(newNoopBackend(), 0, features.All())
	require.NoError(t, err)
	return e
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	data := []byte{1, 2, 3, 4, 5}

	buf, err := Upload(e, data)
	require.NoError(t, err)
	assert.Equal(t, len(data), buf.Len())

	out := make([]byte, len(data))
	require.NoError(t, buf.Download(out))
	assert.Equal(t, data, out)
}

func TestDownloadRejectsMismatchedLength(t *testing.T) {
	e := newTestEngine(t)
	buf, err := Upload(e, []byte{1, 2, 3})
	require.NoError(t, err)

	err = buf.Download(make([]byte, 2))
	var invalidLen *gpuerr.InvalidLength
	require.ErrorAs(t, err, &invalidLen)
}

func TestSliceRejectsOutOfBoundsAndSharesData(t *testing.T) {
	e := newTestEngine(t)
	buf, err := Upload(e, []byte{10, 20, 30, 40})
	require.NoError(t, err)

	_, ok := buf.Slice(2, 10)
	assert.False(t, ok)

	sub, ok := buf.Slice(1, 2)
	require.True(t, ok)
	assert.Equal(t, 2, sub.Len())

	out := make([]byte, 2)
	require.NoError(t, sub.Download(out))
	assert.Equal(t, []byte{20, 30}, out)
}

func TestTransferSameEngineSharesAllocation(t *testing.T) {
	e := newTestEngine(t)
	buf, err := Upload(e, []byte{1, 2, 3})
	require.NoError(t, err)

	moved, err := buf.Transfer(e)
	require.NoError(t, err)
	assert.Same(t, buf.alloc, moved.alloc)
}

func TestTransferCrossEngineCopiesViaStaging(t *testing.T) {
	src := newTestEngine(t)
	dst := newTestEngine(t)
	buf, err := Upload(src, []byte{7, 8, 9})
	require.NoError(t, err)

	moved, err := buf.Transfer(dst)
	require.NoError(t, err)
	assert.Same(t, dst, moved.Engine())

	out := make([]byte, 3)
	require.NoError(t, moved.Download(out))
	assert.Equal(t, []byte{7, 8, 9}, out)
}

func TestDownloadFailsAfterDeviceLost(t *testing.T) {
	e := newTestEngine(t)
	buf, err := Upload(e, []byte{1})
	require.NoError(t, err)

	loseDevice(e.dev)

	err = buf.Download(make([]byte, 1))
	_, ok := gpuerr.AsDeviceLost(err)
	assert.True(t, ok)
}
