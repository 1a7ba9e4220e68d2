package engine

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/christerso/gpurt/pkg/artifact"
	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/gpuerr"
)

// noopBackend is an in-process fake Backend: buffers are plain byte
// slices, pipelines are artifact descriptors, and every submission
// completes synchronously. It exists purely so internal/engine's
// concurrency-sensitive logic (cache dedup, buffer sync tracking, the
// Ready/Lost state machine) can be driven deterministically by tests
// without a physical device, the same role the wgpu-family examples'
// hal-noop backend plays for their test suites.
type noopBackend struct {
	mu       sync.Mutex
	devices  map[*noopDevice]struct{}
	nextSub  uint64
	failOpen bool
}

type noopDevice struct {
	handle  uint64
	lost    atomic.Bool
	buffers map[*noopBuffer]struct{}
}

type noopBuffer struct {
	data []byte
}

func newNoopBackend() *noopBackend {
	return &noopBackend{devices: make(map[*noopDevice]struct{})}
}

func (b *noopBackend) EnumeratePhysicalDevices() ([]PhysicalDeviceInfo, error) {
	return []PhysicalDeviceInfo{
		{Name: "noop-device-0", ComputeQueueCount: 1, TransferQueueCount: 1, HasTransferQueue: true, Features: features.All()},
	}, nil
}

func (b *noopBackend) OpenDevice(index int) (DeviceHandle, uint64, error) {
	infos, _ := b.EnumeratePhysicalDevices()
	if index < 0 || index >= len(infos) {
		return nil, 0, &gpuerr.DeviceIndexOutOfRange{Index: index, Devices: len(infos)}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	dev := &noopDevice{buffers: make(map[*noopBuffer]struct{})}
	// Derived from dev's own address, the same "pointer cast" scheme
	// spec.md §4.6 describes, so two noopDevices never collide even
	// across separate noopBackend instances (each test's newTestDevice
	// spins up its own backend).
	dev.handle = uint64(uintptr(unsafe.Pointer(dev)))
	b.devices[dev] = struct{}{}
	return dev, dev.handle, nil
}

func (b *noopBackend) CloseDevice(dev DeviceHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devices, dev.(*noopDevice))
}

func (b *noopBackend) WaitIdle(dev DeviceHandle) error {
	d := dev.(*noopDevice)
	if d.lost.Load() {
		return &gpuerr.DeviceLost{Handle: d.handle}
	}
	return nil
}

func (b *noopBackend) AllocateBuffer(dev DeviceHandle, size int) (BufferHandle, error) {
	d := dev.(*noopDevice)
	if d.lost.Load() {
		return nil, &gpuerr.DeviceLost{Handle: d.handle}
	}
	buf := &noopBuffer{data: make([]byte, size)}
	b.mu.Lock()
	d.buffers[buf] = struct{}{}
	b.mu.Unlock()
	return buf, nil
}

func (b *noopBackend) FreeBuffer(dev DeviceHandle, buf BufferHandle) {
	d := dev.(*noopDevice)
	b.mu.Lock()
	delete(d.buffers, buf.(*noopBuffer))
	b.mu.Unlock()
}

func (b *noopBackend) nextSubmission() SubmissionID {
	return SubmissionID(atomic.AddUint64(&b.nextSub, 1))
}

func (b *noopBackend) Upload(dev DeviceHandle, buf BufferHandle, data []byte, _ QueueKind) (SubmissionID, error) {
	d := dev.(*noopDevice)
	if d.lost.Load() {
		return 0, &gpuerr.DeviceLost{Handle: d.handle}
	}
	copy(buf.(*noopBuffer).data, data)
	return b.nextSubmission(), nil
}

func (b *noopBackend) Download(dev DeviceHandle, buf BufferHandle, out []byte, _ QueueKind, _ SubmissionID) error {
	d := dev.(*noopDevice)
	if d.lost.Load() {
		return &gpuerr.DeviceLost{Handle: d.handle}
	}
	copy(out, buf.(*noopBuffer).data)
	return nil
}

func (b *noopBackend) Wait(dev DeviceHandle, _ QueueKind, _ SubmissionID) error {
	d := dev.(*noopDevice)
	if d.lost.Load() {
		return &gpuerr.DeviceLost{Handle: d.handle}
	}
	return nil
}

func (b *noopBackend) BuildPipeline(dev DeviceHandle, art *artifact.Desc) (PipelineHandle, error) {
	d := dev.(*noopDevice)
	if d.lost.Load() {
		return nil, &gpuerr.DeviceLost{Handle: d.handle}
	}
	return art, nil
}

func (b *noopBackend) DestroyPipeline(dev DeviceHandle, p PipelineHandle) {}

func (b *noopBackend) Dispatch(dev DeviceHandle, p PipelineHandle, bindings []BufferHandle, pushConsts []byte, groups [3]uint32) (SubmissionID, error) {
	d := dev.(*noopDevice)
	if d.lost.Load() {
		return 0, &gpuerr.DeviceLost{Handle: d.handle}
	}
	return b.nextSubmission(), nil
}

// loseDevice flips dev into the lost state; used by engine_test.go to
// exercise the Ready→Lost transition.
func loseDevice(dev DeviceHandle) {
	dev.(*noopDevice).lost.Store(true)
}
