package engine

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/christerso/gpurt/pkg/artifact"
	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/gpuerr"
	"github.com/christerso/gpurt/pkg/vkcore"
)

// pendingSubmissionQueue is how many in-flight dispatches a device's
// progress worker will buffer before Dispatch itself has to wait for a
// slot to free up. Matches spec.md §5's "non-blocking except for
// allocator and cache contention, which is bounded" — this is the
// dispatch-side instance of that bound.
const pendingSubmissionQueue = 256

// vkBackend is the real Backend, adapted from the teacher's
// PhysicalDevice/LogicalDevice/MemoryAllocator split (pkg/vk/device.go,
// pkg/vk/memory.go) onto vkcore's cgo calls. Where the teacher left a
// TODO for the actual driver call, this backend makes the call; the
// higher-level bookkeeping (which memory type to pick, pool layout)
// follows the same shape the teacher's MemoryAllocator used.
type vkBackend struct {
	instance vkcore.Instance
	mu       sync.Mutex
	devices  map[*vkDevice]struct{}
	nextSub  atomic.Uint64
}

type vkDevice struct {
	handle      vkcore.Device
	handleID    uint64
	summary     vkcore.PhysicalDeviceSummary
	computeQ    vkcore.Queue
	transferQ   vkcore.Queue
	computePool vkcore.CommandPool

	mu        sync.Mutex
	buffers   map[*vkBuffer]struct{}
	pipelines map[*artifact.Desc]*vkPipeline

	// submissions feeds the progress worker (see progressWorker):
	// Dispatch submits to the GPU and enqueues here without waiting,
	// so the fence wait that reclaims cb/fence happens off the
	// caller's goroutine. Closed, then drained, by CloseDevice.
	submissions chan pendingSubmission
	workerDone  chan struct{}
}

// pendingSubmission is one in-flight dispatch awaiting its fence.
type pendingSubmission struct {
	cb    vkcore.CommandBuffer
	fence vkcore.Fence
}

type vkBuffer struct {
	buf  vkcore.Buffer
	mem  vkcore.DeviceMemory
	size int
}

type vkPipeline struct {
	module vkcore.ShaderModule
	setLayout vkcore.DescriptorSetLayout
	layout vkcore.PipelineLayout
	pipeline vkcore.Pipeline
	art    *artifact.Desc
}

// newVkBackend creates a compute-only Vulkan instance. It is wired in
// as the production Backend but exercised only through Engine's public
// API, never by unit tests (those use noopBackend).
func newVkBackend(appName string) (*vkBackend, error) {
	instance, err := vkcore.CreateInstance(appName)
	if err != nil {
		return nil, err
	}
	return &vkBackend{instance: instance, devices: make(map[*vkDevice]struct{})}, nil
}

func (b *vkBackend) EnumeratePhysicalDevices() ([]PhysicalDeviceInfo, error) {
	summaries, err := vkcore.EnumeratePhysicalDevices(b.instance)
	if err != nil {
		return nil, err
	}
	infos := make([]PhysicalDeviceInfo, len(summaries))
	for i, s := range summaries {
		transferCount := 0
		if s.HasTransferQueue {
			transferCount = 1
		}
		infos[i] = PhysicalDeviceInfo{
			Name:               s.Name,
			ComputeQueueCount:  1,
			TransferQueueCount: transferCount,
			HasTransferQueue:   s.HasTransferQueue,
			Features: features.Empty().
				WithInt16(s.ShaderInt16).
				WithInt64(s.ShaderInt64).
				WithFloat64(s.ShaderFloat64),
		}
	}
	return infos, nil
}

func (b *vkBackend) OpenDevice(index int) (DeviceHandle, uint64, error) {
	summaries, err := vkcore.EnumeratePhysicalDevices(b.instance)
	if err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(summaries) {
		return nil, 0, &gpuerr.DeviceIndexOutOfRange{Index: index, Devices: len(summaries)}
	}
	summary := summaries[index]

	handle, computeQ, transferQ, err := vkcore.CreateLogicalDevice(summary)
	if err != nil {
		return nil, 0, err
	}
	pool, err := vkcore.CreateCommandPool(handle, summary.ComputeQueueFamily)
	if err != nil {
		vkcore.DestroyDevice(handle)
		return nil, 0, err
	}

	dev := &vkDevice{
		handle:      handle,
		summary:     summary,
		computeQ:    computeQ,
		transferQ:   transferQ,
		computePool: pool,
		buffers:     make(map[*vkBuffer]struct{}),
		pipelines:   make(map[*artifact.Desc]*vkPipeline),
		submissions: make(chan pendingSubmission, pendingSubmissionQueue),
		workerDone:  make(chan struct{}),
	}
	dev.handleID = uint64(uintptr(unsafePointerOf(dev)))

	go dev.progressWorker()

	b.mu.Lock()
	b.devices[dev] = struct{}{}
	b.mu.Unlock()
	return dev, dev.handleID, nil
}

// progressWorker is the engine's background submission/progress worker
// (spec.md §4.6/§9): it waits for each dispatch's fence in submit order
// — the same order the queue executes them in, so a blocking wait here
// never reorders completion — and releases the command buffer and
// fence once the GPU is done with them. Dispatch itself never blocks on
// this.
func (d *vkDevice) progressWorker() {
	defer close(d.workerDone)
	for sub := range d.submissions {
		if err := vkcore.WaitForFence(d.handle, sub.fence); err != nil {
			logrus.WithError(err).WithField("handle", d.handleID).Warn("gpurt: dispatch fence wait failed")
		}
		vkcore.DestroyFence(d.handle, sub.fence)
		vkcore.FreeCommandBuffer(d.handle, d.computePool, sub.cb)
	}
}

func (b *vkBackend) CloseDevice(dev DeviceHandle) {
	d := dev.(*vkDevice)
	close(d.submissions)
	<-d.workerDone
	vkcore.DestroyCommandPool(d.handle, d.computePool)
	vkcore.DestroyDevice(d.handle)
	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()
}

func (b *vkBackend) WaitIdle(dev DeviceHandle) error {
	d := dev.(*vkDevice)
	return vkcore.WaitIdle(d.handle)
}

func (b *vkBackend) AllocateBuffer(dev DeviceHandle, size int) (BufferHandle, error) {
	d := dev.(*vkDevice)
	buf, err := vkcore.CreateBuffer(d.handle, uint64(size))
	if err != nil {
		return nil, err
	}
	reqSize, _, typeBits := vkcore.MemoryRequirementsFor(d.handle, buf)
	memTypeIndex := firstSetBit(typeBits)
	mem, err := vkcore.AllocateMemory(d.handle, reqSize, memTypeIndex)
	if err != nil {
		vkcore.DestroyBuffer(d.handle, buf)
		return nil, &gpuerr.AllocationFailed{Size: size, Reason: err.Error()}
	}
	if err := vkcore.BindBufferMemory(d.handle, buf, mem, 0); err != nil {
		vkcore.FreeMemory(d.handle, mem)
		vkcore.DestroyBuffer(d.handle, buf)
		return nil, err
	}

	vb := &vkBuffer{buf: buf, mem: mem, size: size}
	d.mu.Lock()
	d.buffers[vb] = struct{}{}
	d.mu.Unlock()
	return vb, nil
}

func (b *vkBackend) FreeBuffer(dev DeviceHandle, buf BufferHandle) {
	d := dev.(*vkDevice)
	vb := buf.(*vkBuffer)
	vkcore.DestroyBuffer(d.handle, vb.buf)
	vkcore.FreeMemory(d.handle, vb.mem)
	d.mu.Lock()
	delete(d.buffers, vb)
	d.mu.Unlock()
}

func (b *vkBackend) Upload(dev DeviceHandle, buf BufferHandle, data []byte, _ QueueKind) (SubmissionID, error) {
	d := dev.(*vkDevice)
	vb := buf.(*vkBuffer)
	ptr, err := vkcore.MapMemory(d.handle, vb.mem, 0, uint64(len(data)))
	if err != nil {
		return 0, err
	}
	copyToPointer(ptr, data)
	vkcore.UnmapMemory(d.handle, vb.mem)
	return SubmissionID(b.nextSub.Add(1)), nil
}

func (b *vkBackend) Download(dev DeviceHandle, buf BufferHandle, out []byte, _ QueueKind, _ SubmissionID) error {
	d := dev.(*vkDevice)
	vb := buf.(*vkBuffer)
	ptr, err := vkcore.MapMemory(d.handle, vb.mem, 0, uint64(len(out)))
	if err != nil {
		return err
	}
	copyFromPointer(out, ptr)
	vkcore.UnmapMemory(d.handle, vb.mem)
	return nil
}

func (b *vkBackend) Wait(dev DeviceHandle, _ QueueKind, _ SubmissionID) error {
	d := dev.(*vkDevice)
	return vkcore.WaitIdle(d.handle)
}

func (b *vkBackend) BuildPipeline(dev DeviceHandle, art *artifact.Desc) (PipelineHandle, error) {
	d := dev.(*vkDevice)

	module, err := vkcore.CreateShaderModule(d.handle, art.Bytecode)
	if err != nil {
		return nil, err
	}
	kinds := make([]vkcore.BindingKind, len(art.SliceDescs))
	for i, s := range art.SliceDescs {
		if s.Mutable {
			kinds[i] = vkcore.BindingReadWrite
		} else {
			kinds[i] = vkcore.BindingReadOnly
		}
	}
	setLayout, err := vkcore.CreateStorageBufferSetLayout(d.handle, kinds)
	if err != nil {
		vkcore.DestroyShaderModule(d.handle, module)
		return nil, err
	}
	layout, err := vkcore.CreatePipelineLayout(d.handle, setLayout, art.PushConstsRange())
	if err != nil {
		vkcore.DestroyDescriptorSetLayout(d.handle, setLayout)
		vkcore.DestroyShaderModule(d.handle, module)
		return nil, err
	}
	pipeline, err := vkcore.CreateComputePipeline(d.handle, module, layout)
	if err != nil {
		vkcore.DestroyPipelineLayout(d.handle, layout)
		vkcore.DestroyDescriptorSetLayout(d.handle, setLayout)
		vkcore.DestroyShaderModule(d.handle, module)
		return nil, err
	}

	vp := &vkPipeline{module: module, setLayout: setLayout, layout: layout, pipeline: pipeline, art: art}
	d.mu.Lock()
	d.pipelines[art] = vp
	d.mu.Unlock()
	return vp, nil
}

func (b *vkBackend) DestroyPipeline(dev DeviceHandle, p PipelineHandle) {
	d := dev.(*vkDevice)
	vp := p.(*vkPipeline)
	vkcore.DestroyPipeline(d.handle, vp.pipeline)
	vkcore.DestroyPipelineLayout(d.handle, vp.layout)
	vkcore.DestroyDescriptorSetLayout(d.handle, vp.setLayout)
	vkcore.DestroyShaderModule(d.handle, vp.module)
	d.mu.Lock()
	delete(d.pipelines, vp.art)
	d.mu.Unlock()
}

func (b *vkBackend) Dispatch(dev DeviceHandle, p PipelineHandle, bindings []BufferHandle, pushConsts []byte, groups [3]uint32) (SubmissionID, error) {
	d := dev.(*vkDevice)
	vp := p.(*vkPipeline)

	cb, err := vkcore.AllocateCommandBuffer(d.handle, d.computePool)
	if err != nil {
		return 0, err
	}
	fence, err := vkcore.CreateFence(d.handle)
	if err != nil {
		return 0, err
	}

	rec := vkcore.DispatchRecording{
		Pipeline:       vp.pipeline,
		PipelineLayout: vp.layout,
		PushConsts:     pushConsts,
		Groups:         groups,
	}
	if err := vkcore.RecordAndSubmit(cb, d.computeQ, fence, rec); err != nil {
		vkcore.DestroyFence(d.handle, fence)
		return 0, err
	}

	// The dispatch is submitted; hand the fence to the progress worker
	// and return without waiting for the GPU (spec.md §5: "dispatch ...
	// non-blocking"; §2: "signals completion asynchronously").
	d.submissions <- pendingSubmission{cb: cb, fence: fence}
	return SubmissionID(b.nextSub.Add(1)), nil
}

func firstSetBit(bits uint32) uint32 {
	for i := uint32(0); i < 32; i++ {
		if bits&(1<<i) != 0 {
			return i
		}
	}
	return 0
}
