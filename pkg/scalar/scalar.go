// Package scalar provides the closed registry of primitive numeric kinds
// used by kernel artifacts, spec constants, push constants, and buffer
// slices throughout gpurt.
package scalar

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type is a closed enum over the primitive numeric kinds a kernel can
// bind, specialize, or push. Values outside the declared constants are
// never constructed by this package.
type Type uint8

const (
	U8 Type = iota
	I8
	U16
	I16
	F16
	BF16
	U32
	I32
	F32
	U64
	I64
	F64
)

// String renders the scalar type the way kernel diagnostics expect it.
func (t Type) String() string {
	switch t {
	case U8:
		return "u8"
	case I8:
		return "i8"
	case U16:
		return "u16"
	case I16:
		return "i16"
	case F16:
		return "f16"
	case BF16:
		return "bf16"
	case U32:
		return "u32"
	case I32:
		return "i32"
	case F32:
		return "f32"
	case U64:
		return "u64"
	case I64:
		return "i64"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("scalar.Type(%d)", uint8(t))
	}
}

// Size returns the byte width of the scalar type.
func (t Type) Size() int {
	switch t {
	case U8, I8:
		return 1
	case U16, I16, F16, BF16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	default:
		panic(fmt.Sprintf("scalar: unknown type %d", uint8(t)))
	}
}

// Valid reports whether t is one of the declared constants; used when
// decoding a Type off the wire (see pkg/artifact/codec.go).
func (t Type) Valid() bool {
	return t <= F64
}

// Elem is a tagged scalar value: a Type together with its payload,
// stored widened to 64 bits regardless of the declared width.
type Elem struct {
	typ   Type
	bits  uint64
	fbits float64
}

func newInt(t Type, v uint64) Elem  { return Elem{typ: t, bits: v} }
func newFloat(t Type, v float64) Elem {
	return Elem{typ: t, fbits: v}
}

func U8Elem(v uint8) Elem   { return newInt(U8, uint64(v)) }
func I8Elem(v int8) Elem    { return newInt(I8, uint64(uint8(v))) }
func U16Elem(v uint16) Elem { return newInt(U16, uint64(v)) }
func I16Elem(v int16) Elem  { return newInt(I16, uint64(uint16(v))) }
func U32Elem(v uint32) Elem { return newInt(U32, uint64(v)) }
func I32Elem(v int32) Elem  { return newInt(I32, uint64(uint32(v))) }
func U64Elem(v uint64) Elem { return newInt(U64, v) }
func I64Elem(v int64) Elem  { return newInt(I64, uint64(v)) }
func F32Elem(v float32) Elem {
	return Elem{typ: F32, fbits: float64(v)}
}
func F64Elem(v float64) Elem { return newFloat(F64, v) }

// ScalarType returns the tag carried by the value.
func (e Elem) ScalarType() Type { return e.typ }

// AsU32 returns the value as a uint32; ok is false if the tag is not U32.
// Used by the specializer when checking thread_dim overrides.
func (e Elem) AsU32() (uint32, bool) {
	if e.typ != U32 {
		return 0, false
	}
	return uint32(e.bits), true
}

// AsBytes returns the little-endian byte representation of the value at
// its declared width. This is the exact byte sequence the specializer
// and push-constant assembler splice into the wire.
func (e Elem) AsBytes() []byte {
	buf := make([]byte, e.typ.Size())
	switch e.typ {
	case U8:
		buf[0] = byte(e.bits)
	case I8:
		buf[0] = byte(e.bits)
	case U16, I16:
		binary.LittleEndian.PutUint16(buf, uint16(e.bits))
	case F16, BF16:
		binary.LittleEndian.PutUint16(buf, uint16(e.bits))
	case U32, I32:
		binary.LittleEndian.PutUint32(buf, uint32(e.bits))
	case F32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(e.fbits)))
	case U64, I64:
		binary.LittleEndian.PutUint64(buf, e.bits)
	case F64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(e.fbits))
	default:
		panic(fmt.Sprintf("scalar: unknown type %d", uint8(e.typ)))
	}
	return buf
}

// AsFloat64 returns the value widened to float64, for diagnostics/tests.
func (e Elem) AsFloat64() (float64, bool) {
	switch e.typ {
	case F32, F64:
		return e.fbits, true
	default:
		return 0, false
	}
}
