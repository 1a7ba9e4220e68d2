package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/christerso/gpurt/pkg/scalar"
)

func TestPushConstsRangeRoundsUpAndAddsSliceHeaders(t *testing.T) {
	d := &Desc{
		PushDescs: []PushDesc{
			{Name: "n", ScalarType: scalar.U32},
			{Name: "alpha", ScalarType: scalar.F32},
		},
		SliceDescs: []SliceDesc{
			{Name: "x", ScalarType: scalar.F32},
			{Name: "y", ScalarType: scalar.F32, Mutable: true},
		},
	}

	// 4 + 4 = 8 bytes of push consts, already a multiple of 4.
	// plus 8 bytes per bound slice (offset, len) = 16.
	assert.Equal(t, uint32(8+16), d.PushConstsRange())
}

func TestPushConstsRangeRoundsUpOddSize(t *testing.T) {
	d := &Desc{
		PushDescs: []PushDesc{
			{Name: "flag", ScalarType: scalar.U8},
		},
	}
	assert.Equal(t, uint32(4), d.PushConstsRange())
}

func TestSpecializedPreservesArtifactIDAndClearsSpecDescs(t *testing.T) {
	orig := &Desc{
		id:   0xabc,
		Name: "saxpy",
		SpecDescs: []SpecDesc{
			{Name: "n", ScalarType: scalar.U32, ThreadDim: 0},
		},
		SliceDescs: []SliceDesc{{Name: "x", ScalarType: scalar.F32}},
		PushDescs:  []PushDesc{{Name: "alpha", ScalarType: scalar.F32}},
		Safe:       true,
	}

	derived := orig.Specialized([]uint32{1, 2, 3}, [3]uint32{64, 1, 1})

	assert.Equal(t, orig.id, derived.ArtifactID())
	assert.Nil(t, derived.SpecDescs)
	assert.Equal(t, orig.SliceDescs, derived.SliceDescs)
	assert.Equal(t, orig.PushDescs, derived.PushDescs)
	assert.Equal(t, orig.Safe, derived.Safe)
	assert.Equal(t, []uint32{1, 2, 3}, derived.Bytecode)
	assert.Equal(t, [3]uint32{64, 1, 1}, derived.Threads)
}

func TestSpecDescHasThreadDim(t *testing.T) {
	withDim := SpecDesc{ThreadDim: 1}
	withoutDim := SpecDesc{ThreadDim: -1}

	assert.True(t, withDim.HasThreadDim())
	assert.False(t, withoutDim.HasThreadDim())
}
