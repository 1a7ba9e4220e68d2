package spirv

import (
	"fmt"

	"github.com/christerso/gpurt/pkg/artifact"
	"github.com/christerso/gpurt/pkg/gpuerr"
	"github.com/christerso/gpurt/pkg/scalar"
)

var threadDimNames = [3]string{"x", "y", "z"}

// ApplyThreadDims folds any thread_dim-tagged spec constant into base,
// the kernel's default workgroup size. values
// must be parallel to specDescs (same length, same scalar types) —
// callers (KernelBuilder.Specialize) are responsible for that
// programmer-error check; this function only enforces the runtime
// invariant that a thread-dim value can never be zero.
func ApplyThreadDims(base [3]uint32, specDescs []artifact.SpecDesc, values []scalar.Elem) ([3]uint32, error) {
	threads := base
	for i, d := range specDescs {
		if !d.HasThreadDim() {
			continue
		}
		v, ok := values[i].AsU32()
		if !ok {
			// Schema guarantees thread_dim only tags U32 spec consts;
			// a mismatch here means the artifact and caller disagree
			// about scalar types, already checked by the builder.
			continue
		}
		if v == 0 {
			return base, &gpuerr.Specialization{
				Reason: fmt.Sprintf("threads.%s cannot be zero", threadDimNames[d.ThreadDim]),
			}
		}
		threads[d.ThreadDim] = v
	}
	return threads, nil
}

// Specialize patches art's bytecode with values in place of its spec
// constants and rebuilds it under threads, implementing steps 1-6:
// spec-constant literal rewrite (1-3) and the OpExecutionMode/LocalSize
// workgroup-size rewrite (4), then re-assembly (5-6). threads is
// expected to already reflect any thread_dim overrides
// (ApplyThreadDims); Specialize carries it through to both the
// bytecode's execution mode and the derived Desc's metadata, so the two
// never disagree.
func Specialize(art *artifact.Desc, values []scalar.Elem, threads [3]uint32) *artifact.Desc {
	module := Parse(art.Bytecode)

	specIDs := make(map[uint32]uint32, len(art.SpecDescs))
	for _, ins := range module.Instructions {
		if ins.Opcode != opDecorate || len(ins.Operands) != 3 {
			continue
		}
		target, decoration, literal := ins.Operands[0], ins.Operands[1], ins.Operands[2]
		if decoration == decorationSpecID {
			specIDs[target] = literal
		}
	}

	for i, ins := range module.Instructions {
		if ins.Opcode != opSpecConstant || len(ins.Operands) < 2 {
			continue
		}
		resultID := ins.Operands[1]
		specID, ok := specIDs[resultID]
		if !ok || int(specID) >= len(values) {
			continue
		}
		patchLiteral(&module.Instructions[i], values[specID])
	}

	patchLocalSize(module, threads)

	bytecode := module.Assemble()
	return art.Specialized(bytecode, threads)
}

// patchLocalSize rewrites the bytecode's OpExecutionMode/LocalSize
// instruction (mode operand executionModeLocalSize, followed by the
// x/y/z literal size operands) so the re-emitted module's declared
// workgroup size matches threads exactly. The IR carries exactly one
// entry point (artifact invariant), so there is at most one such
// instruction to patch.
func patchLocalSize(module *Module, threads [3]uint32) {
	for i, ins := range module.Instructions {
		if ins.Opcode != opExecutionMode || len(ins.Operands) < 5 {
			continue
		}
		if ins.Operands[1] != executionModeLocalSize {
			continue
		}
		module.Instructions[i].Operands[2] = threads[0]
		module.Instructions[i].Operands[3] = threads[1]
		module.Instructions[i].Operands[4] = threads[2]
		return
	}
}

// patchLiteral overwrites the literal operand words (operands[2:]) of a
// SpecConstant instruction with value's little-endian bytes. A 32-bit
// scalar occupies one literal word; a 64-bit scalar occupies two
// consecutive literal words, least-significant first, each exactly 4
// bytes of value.AsBytes() — not the [..8]/[9..] split the original
// specializer used, which double-counted byte 4 and dropped byte 8.
func patchLiteral(ins *Instruction, value scalar.Elem) {
	literals := ins.Operands[2:]
	b := value.AsBytes()
	switch len(literals) {
	case 1:
		literals[0] = littleEndianWord(b[:4])
	case 2:
		literals[0] = littleEndianWord(b[0:4])
		literals[1] = littleEndianWord(b[4:8])
	}
}

func littleEndianWord(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
