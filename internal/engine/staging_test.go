package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagingBufferRoundTrip(t *testing.T) {
	s, err := newStagingBuffer(64)
	require.NoError(t, err)
	defer s.release()

	assert.Len(t, s.bytes(), 64)
	s.bytes()[0] = 0xAB
	assert.Equal(t, byte(0xAB), s.bytes()[0])
}

func TestStagingBufferZeroSize(t *testing.T) {
	s, err := newStagingBuffer(0)
	require.NoError(t, err)
	defer s.release()
	assert.Len(t, s.bytes(), 0)
}
