// Package spirv models just enough of the SPIR-V-like word-stream IR
// to patch specialization constants and workgroup sizes
// into compiled kernel bytecode. It is not a general assembler: it
// understands exactly the three instruction families the specializer
// needs (OpDecorate/SpecId, OpSpecConstant, OpExecutionMode/LocalSize)
// and passes every other instruction through unmodified.
package spirv

const (
	magicNumber = 0x07230203

	opSourceContinued  = 2
	opSource           = 3
	opName             = 5
	opMemberName       = 6
	opDecorate         = 71
	opExecutionMode    = 16
	opSpecConstantTrue = 48
	opSpecConstFalse   = 49
	opSpecConstant     = 50
	opSpecConstantComposite = 51
	opSpecConstantOp   = 52

	decorationSpecID = 1

	executionModeLocalSize = 17
)

// Instruction is one decoded SPIR-V-style word-stream instruction: the
// low 16 bits of the first word are its opcode, the high 16 bits its
// total word count (including this header word).
type Instruction struct {
	Opcode   uint16
	Operands []uint32 // words after the header word
}

func (i Instruction) wordCount() uint32 { return uint32(len(i.Operands) + 1) }

// Module is a mutable decoding of a bytecode word stream: a 5-word
// header (magic, version, generator, bound, schema) followed by an
// ordered instruction stream.
type Module struct {
	Header       [5]uint32
	Instructions []Instruction
}

// Parse decodes bytecode into a Module. It does not validate the magic
// number or opcode table beyond what's needed to walk instruction
// boundaries; malformed streams from a trusted compiler are assumed not
// to occur.
func Parse(bytecode []uint32) *Module {
	m := &Module{}
	if len(bytecode) < 5 {
		return m
	}
	copy(m.Header[:], bytecode[:5])

	words := bytecode[5:]
	for i := 0; i < len(words); {
		header := words[i]
		count := header >> 16
		opcode := uint16(header & 0xffff)
		if count == 0 || int(i)+int(count) > len(words) {
			break
		}
		operands := make([]uint32, count-1)
		copy(operands, words[i+1:i+int(count)])
		m.Instructions = append(m.Instructions, Instruction{Opcode: opcode, Operands: operands})
		i += int(count)
	}
	return m
}

// Assemble re-serializes the module back into a flat word stream,
// preserving instruction order.
func (m *Module) Assemble() []uint32 {
	out := make([]uint32, 0, 5+len(m.Instructions)*2)
	out = append(out, m.Header[:]...)
	for _, ins := range m.Instructions {
		header := ins.wordCount()<<16 | uint32(ins.Opcode)
		out = append(out, header)
		out = append(out, ins.Operands...)
	}
	return out
}
