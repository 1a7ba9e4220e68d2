// Package features describes the fixed capability set a device advertises
// and a kernel requires.
package features

// Set is a small fixed bitset of GPU shader capabilities. It is a value
// type: all mutators return a new Set rather than mutating in place,
// mirroring the original krnl::device::Features builder API.
type Set struct {
	int8    bool
	int16   bool
	int64   bool
	float16 bool
	float64 bool
}

// Empty returns a Set with every capability disabled.
func Empty() Set { return Set{} }

// All returns a Set with every capability enabled; this is the
// "optimal" feature set DeviceBuilder requests by default.
func All() Set {
	return Empty().WithInt8(true).WithInt16(true).WithInt64(true).
		WithFloat16(true).WithFloat64(true)
}

func (s Set) Int8() bool    { return s.int8 }
func (s Set) Int16() bool   { return s.int16 }
func (s Set) Int64() bool   { return s.int64 }
func (s Set) Float16() bool { return s.float16 }
func (s Set) Float64() bool { return s.float64 }

func (s Set) WithInt8(v bool) Set    { s.int8 = v; return s }
func (s Set) WithInt16(v bool) Set   { s.int16 = v; return s }
func (s Set) WithInt64(v bool) Set   { s.int64 = v; return s }
func (s Set) WithFloat16(v bool) Set { s.float16 = v; return s }
func (s Set) WithFloat64(v bool) Set { s.float64 = v; return s }

// Contains reports whether self has every flag that required has set:
// required⇒self, per flag.
func (s Set) Contains(required Set) bool {
	return (s.int8 || !required.int8) &&
		(s.int16 || !required.int16) &&
		(s.int64 || !required.int64) &&
		(s.float16 || !required.float16) &&
		(s.float64 || !required.float64)
}

// Union returns the flag-wise OR of s and other. Union is commutative
// and idempotent.
func (s Set) Union(other Set) Set {
	return Set{
		int8:    s.int8 || other.int8,
		int16:   s.int16 || other.int16,
		int64:   s.int64 || other.int64,
		float16: s.float16 || other.float16,
		float64: s.float64 || other.float64,
	}
}

// Intersect returns the flag-wise AND of s and other. DeviceBuilder uses
// this to clamp the requested optimal set to what the physical device
// actually advertises.
func (s Set) Intersect(other Set) Set {
	return Set{
		int8:    s.int8 && other.int8,
		int16:   s.int16 && other.int16,
		int64:   s.int64 && other.int64,
		float16: s.float16 && other.float16,
		float64: s.float64 && other.float64,
	}
}
