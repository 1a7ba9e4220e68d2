package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christerso/gpurt/pkg/artifact"
	"github.com/christerso/gpurt/pkg/gpuerr"
	"github.com/christerso/gpurt/pkg/scalar"
)

func addDesc() *artifact.Desc {
	return &artifact.Desc{
		Name:    "add",
		Threads: [3]uint32{64, 1, 1},
		SliceDescs: []artifact.SliceDesc{
			{Name: "a", ScalarType: scalar.F32, Item: true},
			{Name: "out", ScalarType: scalar.F32, Mutable: true, Item: true},
		},
	}
}

func TestBuildRejectsHostDevice(t *testing.T) {
	kb := &KernelBuilder{desc: addDesc()}
	_, err := kb.Build(Host())
	var spec *gpuerr.Specialization
	require.ErrorAs(t, err, &spec)
}

func TestBuildRequiresSpecializationWhenSpecDescsPresent(t *testing.T) {
	desc := addDesc()
	desc.SpecDescs = []artifact.SpecDesc{{Name: "n", ScalarType: scalar.U32, ThreadDim: -1}}
	kb := &KernelBuilder{desc: desc}

	dev := newTestDevice(t)
	defer dev.Close()

	_, err := kb.Build(dev)
	var spec *gpuerr.Specialization
	require.ErrorAs(t, err, &spec)
}

func TestSpecializePanicsOnArityMismatch(t *testing.T) {
	desc := addDesc()
	desc.SpecDescs = []artifact.SpecDesc{{Name: "n", ScalarType: scalar.U32, ThreadDim: -1}}
	kb := &KernelBuilder{desc: desc}

	assert.Panics(t, func() {
		kb.Specialize(nil)
	})
}

func TestDispatchWithItemSlicesDerivesGroups(t *testing.T) {
	dev := newTestDevice(t)
	defer dev.Close()

	kb := &KernelBuilder{desc: addDesc()}
	kernel, err := kb.Build(dev)
	require.NoError(t, err)

	a, err := Upload(dev, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	defer a.Release()
	out, err := UploadMut(dev, []float32{0, 0, 0, 0})
	require.NoError(t, err)
	defer out.Release()

	err = kernel.Dispatch([]SliceArg{a, out}, nil)
	require.NoError(t, err)
}

func TestDispatchWithExplicitGroupsIgnoresItemSlices(t *testing.T) {
	dev := newTestDevice(t)
	defer dev.Close()

	desc := addDesc()
	desc.SliceDescs[0].Item = false
	desc.SliceDescs[1].Item = false
	kb := &KernelBuilder{desc: desc}
	kernel, err := kb.Build(dev)
	require.NoError(t, err)

	a, err := Upload(dev, []float32{1, 2})
	require.NoError(t, err)
	defer a.Release()
	out, err := UploadMut(dev, []float32{0, 0})
	require.NoError(t, err)
	defer out.Release()

	kernel.Groups([3]uint32{4, 1, 1})
	err = kernel.Dispatch([]SliceArg{a, out}, nil)
	require.NoError(t, err)
}

func TestDispatchFailsWhenExtentCannotBeDetermined(t *testing.T) {
	dev := newTestDevice(t)
	defer dev.Close()

	desc := addDesc()
	desc.SliceDescs[0].Item = false
	desc.SliceDescs[1].Item = false
	kb := &KernelBuilder{desc: desc}
	kernel, err := kb.Build(dev)
	require.NoError(t, err)

	a, err := Upload(dev, []float32{1, 2})
	require.NoError(t, err)
	defer a.Release()
	out, err := UploadMut(dev, []float32{0, 0})
	require.NoError(t, err)
	defer out.Release()

	err = kernel.Dispatch([]SliceArg{a, out}, nil)
	var extent *gpuerr.ExtentUnspecified
	require.ErrorAs(t, err, &extent)
}

func TestDispatchRejectsScalarTypeMismatch(t *testing.T) {
	dev := newTestDevice(t)
	defer dev.Close()

	kb := &KernelBuilder{desc: addDesc()}
	kernel, err := kb.Build(dev)
	require.NoError(t, err)

	a, err := Upload(dev, []int32{1, 2, 3, 4})
	require.NoError(t, err)
	defer a.Release()
	out, err := UploadMut(dev, []float32{0, 0, 0, 0})
	require.NoError(t, err)
	defer out.Release()

	err = kernel.Dispatch([]SliceArg{a, out}, nil)
	var mismatch *gpuerr.BindingMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestDispatchRejectsNonMutableBindingForMutableSlot(t *testing.T) {
	dev := newTestDevice(t)
	defer dev.Close()

	kb := &KernelBuilder{desc: addDesc()}
	kernel, err := kb.Build(dev)
	require.NoError(t, err)

	a, err := Upload(dev, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	defer a.Release()
	notMut, err := Upload(dev, []float32{0, 0, 0, 0})
	require.NoError(t, err)
	defer notMut.Release()

	err = kernel.Dispatch([]SliceArg{a, notMut}, nil)
	var mismatch *gpuerr.BindingMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestDispatchRejectsSliceBoundToADifferentDevice(t *testing.T) {
	devA := newTestDevice(t)
	defer devA.Close()
	devB := newTestDevice(t)
	defer devB.Close()

	kb := &KernelBuilder{desc: addDesc()}
	kernel, err := kb.Build(devA)
	require.NoError(t, err)

	a, err := Upload(devA, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	defer a.Release()
	out, err := UploadMut(devB, []float32{0, 0, 0, 0})
	require.NoError(t, err)
	defer out.Release()

	err = kernel.Dispatch([]SliceArg{a, out}, nil)
	var mismatch *gpuerr.BindingMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.NotEmpty(t, mismatch.KernelDevice)
	assert.NotEmpty(t, mismatch.SliceDevice)
	assert.NotEqual(t, mismatch.KernelDevice, mismatch.SliceDevice)
	assert.Contains(t, mismatch.Error(), mismatch.KernelDevice)
	assert.Contains(t, mismatch.Error(), mismatch.SliceDevice)
}

func TestDispatchRejectsHostSliceForDeviceKernel(t *testing.T) {
	dev := newTestDevice(t)
	defer dev.Close()

	kb := &KernelBuilder{desc: addDesc()}
	kernel, err := kb.Build(dev)
	require.NoError(t, err)

	a := FromHost([]float32{1, 2, 3, 4})
	out, err := UploadMut(dev, []float32{0, 0, 0, 0})
	require.NoError(t, err)
	defer out.Release()

	err = kernel.Dispatch([]SliceArg{a, out}, nil)
	var mismatch *gpuerr.BindingMismatch
	require.ErrorAs(t, err, &mismatch)
}
