package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsIsImplication(t *testing.T) {
	full := All()
	empty := Empty()

	assert.True(t, full.Contains(empty))
	assert.True(t, full.Contains(full))
	assert.False(t, empty.Contains(full))

	onlyInt8 := Empty().WithInt8(true)
	assert.True(t, full.Contains(onlyInt8))
	assert.False(t, empty.Contains(onlyInt8))
}

func TestUnionCommutativeAndIdempotent(t *testing.T) {
	a := Empty().WithInt8(true).WithFloat64(true)
	b := Empty().WithInt16(true)

	assert.Equal(t, a.Union(b), b.Union(a))
	assert.Equal(t, a, a.Union(a))
}

func TestIntersectClampsToAdvertised(t *testing.T) {
	advertised := Empty().WithInt8(true).WithInt16(true)
	optimal := All()

	got := advertised.Intersect(optimal)
	assert.True(t, got.Int8())
	assert.True(t, got.Int16())
	assert.False(t, got.Int64())
	assert.False(t, got.Float16())
	assert.False(t, got.Float64())
}
