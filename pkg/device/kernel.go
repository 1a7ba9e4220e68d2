package device

import (
	"strings"

	"github.com/christerso/gpurt/internal/engine"
	"github.com/christerso/gpurt/pkg/artifact"
	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/gpuerr"
	"github.com/christerso/gpurt/pkg/scalar"
	"github.com/christerso/gpurt/pkg/spirv"
)

// kernelSliceArg is the type-erased binding a Slice[T]/SliceMut[T]
// contributes to a dispatch call.
type kernelSliceArg struct {
	name       string
	scalarType scalar.Type
	mutable    bool
	buf        *engine.DeviceBuffer
	dev        Device
	len        int
}

func (a kernelSliceArg) isHost() bool { return a.buf == nil }

// KernelBuilder collects specialization constants before compiling a
// kernel artifact into a device pipeline.
type KernelBuilder struct {
	id         uintptr
	desc       *artifact.Desc
	specConsts []scalar.Elem
}

// FromBytes parses a compiled kernel artifact blob, the entry point
// every generated kernel binding calls into.
func FromBytes(blob []byte) (*KernelBuilder, error) {
	desc, err := artifact.FromBytes(blob)
	if err != nil {
		return nil, err
	}
	return &KernelBuilder{id: desc.ArtifactID(), desc: desc}, nil
}

// Features returns the set of device features this kernel's bytecode
// requires, so callers can pick a Builder.Optimal that covers it.
func (b *KernelBuilder) Features() features.Set { return b.desc.Features }

// Specialize supplies this kernel's specialization constants in
// declaration order. A length or scalar-type mismatch against the
// artifact's spec_descs is a programmer error (wrong kernel binding
// wired to the wrong values) and panics rather than returning an error,
// matching the Rust source's assert_eq! on both checks. A thread_dim
// spec constant of zero is a runtime condition instead (caller-supplied
// data can be zero) and is reported as an error from Build.
func (b *KernelBuilder) Specialize(values []scalar.Elem) *KernelBuilder {
	if len(values) != len(b.desc.SpecDescs) {
		panic("device: Specialize: wrong number of specialization constants")
	}
	for i, d := range b.desc.SpecDescs {
		if values[i].ScalarType() != d.ScalarType {
			panic("device: Specialize: scalar type mismatch for spec constant " + d.Name)
		}
	}
	b.specConsts = append([]scalar.Elem(nil), values...)
	return b
}

// Build compiles (or fetches from cache) the pipeline for dev, applying
// any thread_dim overrides and spec-constant patching queued by
// Specialize.
func (b *KernelBuilder) Build(dev Device) (*Kernel, error) {
	if dev.IsHost() {
		return nil, &gpuerr.Specialization{Kernel: b.desc.Name, Reason: "expected device, found host"}
	}
	if len(b.desc.SpecDescs) > 0 && len(b.specConsts) == 0 {
		return nil, &gpuerr.Specialization{Kernel: b.desc.Name, Reason: "must be specialized"}
	}

	var specBytes strings.Builder
	for _, v := range b.specConsts {
		specBytes.Write(v.AsBytes())
	}
	key := engine.KernelKey{ArtifactID: b.id, SpecBytes: specBytes.String()}

	eng := dev.engine()
	needsSpecialize := len(b.desc.SpecDescs) > 0

	var threadErr error
	pipeline, art, err := eng.Pipeline(key, func() (*artifact.Desc, error) {
		if !needsSpecialize {
			return b.desc, nil
		}
		threads, err := spirv.ApplyThreadDims(b.desc.Threads, b.desc.SpecDescs, b.specConsts)
		if err != nil {
			threadErr = err
			return nil, err
		}
		return spirv.Specialize(b.desc, b.specConsts, threads), nil
	})
	if err != nil {
		if threadErr != nil {
			return nil, threadErr
		}
		return nil, err
	}

	return &Kernel{dev: dev, pipeline: pipeline, desc: art}, nil
}

// Kernel is a compiled, cached pipeline ready for dispatch.
type Kernel struct {
	dev      Device
	pipeline engine.PipelineHandle
	desc     *artifact.Desc
	groups   *[3]uint32
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

// GlobalThreads sets the total thread count per dimension; Dispatch
// derives workgroup counts from it and the kernel's threads.
func (k *Kernel) GlobalThreads(gt [3]uint32) *Kernel {
	var groups [3]uint32
	for i := 0; i < 3; i++ {
		groups[i] = ceilDiv(gt[i], k.desc.Threads[i])
	}
	k.groups = &groups
	return k
}

// Groups sets the workgroup count directly, bypassing global-thread
// derivation.
func (k *Kernel) Groups(groups [3]uint32) *Kernel {
	g := groups
	k.groups = &g
	return k
}

// Dispatch submits this kernel with the given slice bindings and push
// constants:
// per-slice schema validation, extent resolution (explicit groups, or
// derived from the shortest item-marked slice), push-constant assembly
// (user push constants, 4-byte padded, followed by an (offset, len)
// element-count pair per bound slice), submission, and finally
// recording the read/write each binding implies for future hazard
// tracking.
func (k *Kernel) Dispatch(slices []SliceArg, pushConsts []scalar.Elem) error {
	desc := k.desc
	if len(slices) != len(desc.SliceDescs) {
		return &gpuerr.BindingMismatch{Kernel: desc.Name, Reason: "wrong number of slice bindings"}
	}

	bindings := make([]engine.BufferHandle, len(slices))
	args := make([]kernelSliceArg, len(slices))
	var items int
	hasItems := false

	for i, sliceArg := range slices {
		sd := desc.SliceDescs[i]
		a := sliceArg.bindingArg(sd.Name)
		args[i] = a

		if a.scalarType != sd.ScalarType {
			return &gpuerr.BindingMismatch{Kernel: desc.Name, Slice: sd.Name, Reason: "scalar type mismatch"}
		}
		if sd.Mutable && !a.mutable {
			return &gpuerr.BindingMismatch{Kernel: desc.Name, Slice: sd.Name, Reason: "expected mutable binding"}
		}
		if a.isHost() {
			return &gpuerr.BindingMismatch{Kernel: desc.Name, Slice: sd.Name, Reason: "expected device, found host"}
		}
		if !a.dev.Equal(k.dev) {
			return &gpuerr.BindingMismatch{
				Kernel:       desc.Name,
				Slice:        sd.Name,
				Reason:       "bound to a different device than the kernel",
				KernelDevice: k.dev.String(),
				SliceDevice:  a.dev.String(),
			}
		}
		bindings[i] = a.buf.Handle()

		if sd.Item {
			if !hasItems || a.len < items {
				items = a.len
			}
			hasItems = true
		}
	}

	groups, err := k.resolveGroups(hasItems, items)
	if err != nil {
		return err
	}

	pushBytes := assemblePushBytes(desc, pushConsts, args)

	sub, err := k.dev.engine().Dispatch(k.pipeline, bindings, pushBytes, groups)
	if err != nil {
		return err
	}

	for i, a := range args {
		sd := desc.SliceDescs[i]
		if sd.Mutable {
			a.buf.RecordWrite(sub, engine.QueueCompute)
		} else {
			a.buf.RecordRead(sub, engine.QueueCompute)
		}
	}
	return nil
}

func (k *Kernel) resolveGroups(hasItems bool, items int) ([3]uint32, error) {
	if k.groups != nil {
		return *k.groups, nil
	}
	if !hasItems {
		return [3]uint32{}, &gpuerr.ExtentUnspecified{Kernel: k.desc.Name, Reason: "global_threads or groups not provided"}
	}
	threads := k.desc.Threads
	if threads[1] > 1 || threads[2] > 1 {
		return [3]uint32{}, &gpuerr.ExtentUnspecified{
			Kernel: k.desc.Name,
			Reason: "cannot infer global_threads when threads.y or threads.z > 1",
		}
	}
	return [3]uint32{ceilDiv(uint32(items), threads[0]), 1, 1}, nil
}

// assemblePushBytes builds the exact push-constant range a pipeline
// layout reserves: user push constants concatenated in order, padded up
// to a 4-byte boundary, followed by an (offset_elements, len_elements)
// pair of u32s per bound slice in binding order.
func assemblePushBytes(desc *artifact.Desc, pushConsts []scalar.Elem, args []kernelSliceArg) []byte {
	var buf []byte
	for _, v := range pushConsts {
		buf = append(buf, v.AsBytes()...)
	}
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	for _, a := range args {
		offsetElems := uint32(a.buf.Offset() / a.scalarType.Size())
		lenElems := uint32(a.len)
		buf = append(buf, littleEndianU32(offsetElems)...)
		buf = append(buf, littleEndianU32(lenElems)...)
	}
	return buf
}

func littleEndianU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
