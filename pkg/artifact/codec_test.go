package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/scalar"
)

func sampleDesc() *Desc {
	return &Desc{
		Name:     "saxpy",
		Bytecode: []uint32{0x07230203, 1, 2, 3},
		Features: features.Empty().WithFloat64(true),
		Threads:  [3]uint32{64, 1, 1},
		Safe:     true,
		SpecDescs: []SpecDesc{
			{Name: "n", ScalarType: scalar.U32, ThreadDim: 0},
			{Name: "eps", ScalarType: scalar.F32, ThreadDim: -1},
		},
		SliceDescs: []SliceDesc{
			{Name: "x", ScalarType: scalar.F32, Mutable: false, Item: true},
			{Name: "y", ScalarType: scalar.F32, Mutable: true, Item: true},
		},
		PushDescs: []PushDesc{
			{Name: "alpha", ScalarType: scalar.F32},
		},
	}
}

func TestEncodeFromBytesRoundTrip(t *testing.T) {
	want := sampleDesc()
	blob := Encode(want)

	got, err := FromBytes(blob)
	require.NoError(t, err)

	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Bytecode, got.Bytecode)
	assert.Equal(t, want.Features, got.Features)
	assert.Equal(t, want.Threads, got.Threads)
	assert.Equal(t, want.Safe, got.Safe)
	assert.Equal(t, want.SpecDescs, got.SpecDescs)
	assert.Equal(t, want.SliceDescs, got.SliceDescs)
	assert.Equal(t, want.PushDescs, got.PushDescs)
}

func TestFromBytesRejectsTrailingBytes(t *testing.T) {
	blob := Encode(sampleDesc())
	blob = append(blob, 0xff)

	_, err := FromBytes(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing bytes")
}

func TestFromBytesRejectsTruncatedInput(t *testing.T) {
	blob := Encode(sampleDesc())
	_, err := FromBytes(blob[:4])
	require.Error(t, err)
}

func TestFromBytesRejectsInvalidScalarTypeTag(t *testing.T) {
	d := sampleDesc()
	d.SpecDescs = nil
	d.SliceDescs = nil
	d.PushDescs = []PushDesc{{Name: "bad", ScalarType: 0xff}}
	blob := Encode(d)

	_, err := FromBytes(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scalar_type")
}

func TestFromBytesRejectsThreadsOutOfRange(t *testing.T) {
	var buf []byte
	buf = appendString(buf, "k")
	buf = appendU32(buf, 0) // empty bytecode
	buf = append(buf, 0, 0, 0, 0, 0) // 5 feature bools, all false
	buf = appendU32(buf, 0)          // threads length 0, invalid

	_, err := FromBytes(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threads")
}

func TestArtifactIDStableAcrossSameBlob(t *testing.T) {
	blob := Encode(sampleDesc())
	d1, err := FromBytes(blob)
	require.NoError(t, err)
	d2, err := FromBytes(blob)
	require.NoError(t, err)

	assert.Equal(t, d1.ArtifactID(), d2.ArtifactID())
}

func appendU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}
