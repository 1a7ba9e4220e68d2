// Package artifact parses the compiled kernel artifact blob (KernelDesc):
// bytecode plus the binding/spec/push schema a kernel was compiled with.
package artifact

import (
	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/scalar"
)

// SpecDesc describes one specialization constant: its name, scalar
// type, and (optionally) which workgroup dimension it also overrides.
type SpecDesc struct {
	Name       string
	ScalarType scalar.Type
	// ThreadDim, when present, marks this spec constant as also driving
	// threads[ThreadDim]; -1 means "not a thread-dim spec".
	ThreadDim int
}

// HasThreadDim reports whether this spec constant overrides a workgroup
// dimension.
func (d SpecDesc) HasThreadDim() bool { return d.ThreadDim >= 0 }

// SliceDesc describes one buffer binding: its name, scalar type,
// mutability, and whether its length implies the dispatch extent.
type SliceDesc struct {
	Name       string
	ScalarType scalar.Type
	Mutable    bool
	Item       bool
}

// PushDesc describes one push constant.
type PushDesc struct {
	Name       string
	ScalarType scalar.Type
}

// Desc is the deserialized, immutable kernel artifact (KernelDesc).
// Its ArtifactID is derived from the backing blob's address, not its
// content — see DESIGN.md for the disk-loaded-artifact open question.
type Desc struct {
	id         uintptr
	Name       string
	Bytecode   []uint32
	Features   features.Set
	Threads    [3]uint32
	Safe       bool
	SpecDescs  []SpecDesc
	SliceDescs []SliceDesc
	PushDescs  []PushDesc
}

// ArtifactID is a stable token identifying the source artifact blob,
// shared by every Desc parsed from the same backing bytes (including
// specialized derivatives — specialization never changes the id).
func (d *Desc) ArtifactID() uintptr { return d.id }

// PushConstsRange is round_up_4(Σ push sizes) + 8*len(SliceDescs): the
// total byte size of the push-constant range a pipeline layout must
// reserve.
func (d *Desc) PushConstsRange() uint32 {
	size := 0
	for _, p := range d.PushDescs {
		size += p.ScalarType.Size()
	}
	size = roundUp4(size)
	size += 8 * len(d.SliceDescs)
	return uint32(size)
}

func roundUp4(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}

// withSpecialized returns a shallow copy of d with new bytecode, cleared
// spec_descs, and updated threads, the shape the specializer produces.
// The artifact id is carried over unchanged: specialization derives a
// new pipeline, not a new artifact identity.
func (d *Desc) withSpecialized(bytecode []uint32, threads [3]uint32) *Desc {
	return &Desc{
		id:         d.id,
		Name:       d.Name,
		Bytecode:   bytecode,
		Features:   d.Features,
		Threads:    threads,
		Safe:       d.Safe,
		SpecDescs:  nil,
		SliceDescs: d.SliceDescs,
		PushDescs:  d.PushDescs,
	}
}

// Specialized builds a new Desc from specialized bytecode and thread
// overrides. Exported so pkg/spirv can construct the derivative without
// reaching into unexported fields via reflection.
func (d *Desc) Specialized(bytecode []uint32, threads [3]uint32) *Desc {
	return d.withSpecialized(bytecode, threads)
}
