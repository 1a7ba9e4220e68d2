package scalar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeMatchesDeclaredWidth(t *testing.T) {
	cases := []struct {
		typ  Type
		size int
	}{
		{U8, 1}, {I8, 1},
		{U16, 2}, {I16, 2}, {F16, 2}, {BF16, 2},
		{U32, 4}, {I32, 4}, {F32, 4},
		{U64, 8}, {I64, 8}, {F64, 8},
	}
	for _, c := range cases {
		assert.Equalf(t, c.size, c.typ.Size(), "type %s", c.typ)
	}
}

func TestAsBytesLittleEndian(t *testing.T) {
	e := U32Elem(0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, e.AsBytes())

	e64 := U64Elem(0x0102030405060708)
	require.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, e64.AsBytes())
}

func TestAsU32OnlyForU32Tag(t *testing.T) {
	v, ok := U32Elem(128).AsU32()
	require.True(t, ok)
	assert.Equal(t, uint32(128), v)

	_, ok = I32Elem(128).AsU32()
	assert.False(t, ok)
}

func TestScalarTypeRoundTrip(t *testing.T) {
	e := F32Elem(2.0)
	assert.Equal(t, F32, e.ScalarType())
	f, ok := e.AsFloat64()
	require.True(t, ok)
	assert.InDelta(t, 2.0, f, 1e-9)
}
