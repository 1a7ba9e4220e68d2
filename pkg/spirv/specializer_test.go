package spirv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christerso/gpurt/pkg/artifact"
	"github.com/christerso/gpurt/pkg/gpuerr"
	"github.com/christerso/gpurt/pkg/scalar"
)

// inst builds a well-formed instruction (header word plus operands) with
// the given opcode and operand words.
func inst(opcode uint16, operands ...uint32) []uint32 {
	out := make([]uint32, 0, len(operands)+1)
	out = append(out, uint32(len(operands)+1)<<16|uint32(opcode))
	out = append(out, operands...)
	return out
}

// buildModule assembles a minimal bytecode stream with one SpecId
// decoration per result id and one matching SpecConstant instruction.
func buildModule(resultID, specID uint32, literalWords int) []uint32 {
	words := []uint32{magicNumber, 0x10000, 0, 100, 0}
	words = append(words, inst(opDecorate, resultID, decorationSpecID, specID)...)

	operands := []uint32{0 /* result type */, resultID}
	for i := 0; i < literalWords; i++ {
		operands = append(operands, 0)
	}
	words = append(words, inst(opSpecConstant, operands...)...)
	return words
}

func TestParseAssembleRoundTrip(t *testing.T) {
	bytecode := buildModule(7, 0, 1)
	m := Parse(bytecode)
	got := m.Assemble()
	assert.Equal(t, bytecode, got)
}

func TestSpecializePatches32BitLiteral(t *testing.T) {
	bytecode := buildModule(7, 0, 1)
	art := &artifact.Desc{Bytecode: bytecode}

	out := Specialize(art, []scalar.Elem{scalar.U32Elem(0xdeadbeef)}, [3]uint32{1, 1, 1})

	m := Parse(out.Bytecode)
	specConst := m.Instructions[len(m.Instructions)-1]
	assert.Equal(t, uint32(0xdeadbeef), specConst.Operands[2])
}

func TestSpecializer64BitSplitAtByteFour(t *testing.T) {
	// Regression test: the original splitter sliced a 64-bit value's
	// bytes at [..8] and [9..], which both double-counts byte index 4
	// through 7 into the first literal and drops byte 8 entirely. The
	// correct split is [0:4] into the low literal and [4:8] into the
	// high literal.
	bytecode := buildModule(9, 0, 2)
	art := &artifact.Desc{Bytecode: bytecode}

	value := scalar.U64Elem(0x1122334455667788)
	out := Specialize(art, []scalar.Elem{value}, [3]uint32{1, 1, 1})

	m := Parse(out.Bytecode)
	specConst := m.Instructions[len(m.Instructions)-1]

	wantBytes := value.AsBytes()
	wantLow := littleEndianWord(wantBytes[0:4])
	wantHigh := littleEndianWord(wantBytes[4:8])

	assert.Equal(t, wantLow, specConst.Operands[2])
	assert.Equal(t, wantHigh, specConst.Operands[3])
	assert.Equal(t, uint32(0x55667788), specConst.Operands[2])
	assert.Equal(t, uint32(0x11223344), specConst.Operands[3])
}

func TestSpecializeClearsSpecDescsAndKeepsArtifactID(t *testing.T) {
	bytecode := buildModule(7, 0, 1)
	art := &artifact.Desc{
		Bytecode:  bytecode,
		SpecDescs: []artifact.SpecDesc{{Name: "n", ScalarType: scalar.U32, ThreadDim: -1}},
	}

	out := Specialize(art, []scalar.Elem{scalar.U32Elem(4)}, [3]uint32{4, 1, 1})
	assert.Nil(t, out.SpecDescs)
	assert.Equal(t, art.ArtifactID(), out.ArtifactID())
}

func TestSpecializeRewritesLocalSizeExecutionMode(t *testing.T) {
	bytecode := buildModule(7, 0, 1)
	bytecode = append(bytecode, inst(opExecutionMode, 1 /* entry point */, executionModeLocalSize, 64, 1, 1)...)
	art := &artifact.Desc{Bytecode: bytecode}

	out := Specialize(art, []scalar.Elem{scalar.U32Elem(128)}, [3]uint32{128, 1, 1})

	m := Parse(out.Bytecode)
	var found bool
	for _, ins := range m.Instructions {
		if ins.Opcode != opExecutionMode || ins.Operands[1] != executionModeLocalSize {
			continue
		}
		found = true
		assert.Equal(t, [3]uint32{128, 1, 1}, [3]uint32{ins.Operands[2], ins.Operands[3], ins.Operands[4]})
	}
	require.True(t, found, "expected an OpExecutionMode/LocalSize instruction in the re-assembled bytecode")
}

func TestApplyThreadDimsOverridesNamedDimension(t *testing.T) {
	descs := []artifact.SpecDesc{
		{Name: "wg_x", ScalarType: scalar.U32, ThreadDim: 0},
		{Name: "eps", ScalarType: scalar.F32, ThreadDim: -1},
	}
	values := []scalar.Elem{scalar.U32Elem(128), scalar.F32Elem(0.001)}

	threads, err := ApplyThreadDims([3]uint32{64, 1, 1}, descs, values)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{128, 1, 1}, threads)
}

func TestApplyThreadDimsRejectsZero(t *testing.T) {
	descs := []artifact.SpecDesc{{Name: "wg_y", ScalarType: scalar.U32, ThreadDim: 1}}
	values := []scalar.Elem{scalar.U32Elem(0)}

	_, err := ApplyThreadDims([3]uint32{64, 64, 1}, descs, values)
	require.Error(t, err)

	var spec *gpuerr.Specialization
	require.ErrorAs(t, err, &spec)
	assert.Contains(t, spec.Error(), "threads.y cannot be zero")
}
