// Package engine is the device engine: queues,
// allocator, pipeline cache, and the DeviceBuffer/Pipeline objects they
// host. It talks to the physical device through a small Backend
// interface rather than the cgo layer directly, so the concurrency and
// synchronization logic that matters for correctness — the cache's
// per-key build dedup, a buffer's last-writer/last-reader tracking, the
// Ready→Lost state machine — can be exercised against an in-memory fake
// (see noopBackend) without a GPU, following the hal-noop pattern the
// wgpu-family examples use for backend-agnostic testing.
package engine

import (
	"github.com/christerso/gpurt/pkg/artifact"
	"github.com/christerso/gpurt/pkg/features"
)

// DeviceHandle, BufferHandle, and PipelineHandle are backend-opaque
// tokens; engine code never inspects them, only passes them back to
// the Backend that issued them.
type DeviceHandle any
type BufferHandle any
type PipelineHandle any

// SubmissionID orders submissions on a single queue. Backends assign
// them monotonically per queue; wait(id) must block until every
// submission up to and including id has completed.
type SubmissionID uint64

// QueueKind distinguishes the two queue roles the engine schedules
// work onto: compute and transfer.
type QueueKind int

const (
	QueueCompute QueueKind = iota
	QueueTransfer
)

// PhysicalDeviceInfo is what DeviceBuilder needs to enumerate and pick
// a device.
type PhysicalDeviceInfo struct {
	Name               string
	ComputeQueueCount  int
	TransferQueueCount int
	HasTransferQueue   bool
	Features           features.Set
}

// Backend is the device engine's view of the low-level graphics/compute
// API: enough to open a device, move bytes, and build/dispatch
// pipelines. Every method that submits device work returns the
// SubmissionID the caller must later wait on.
type Backend interface {
	EnumeratePhysicalDevices() ([]PhysicalDeviceInfo, error)
	OpenDevice(index int) (DeviceHandle, uint64, error)
	CloseDevice(dev DeviceHandle)
	WaitIdle(dev DeviceHandle) error

	AllocateBuffer(dev DeviceHandle, size int) (BufferHandle, error)
	FreeBuffer(dev DeviceHandle, buf BufferHandle)
	Upload(dev DeviceHandle, buf BufferHandle, data []byte, queue QueueKind) (SubmissionID, error)
	Download(dev DeviceHandle, buf BufferHandle, out []byte, queue QueueKind, after SubmissionID) error
	Wait(dev DeviceHandle, queue QueueKind, sub SubmissionID) error

	BuildPipeline(dev DeviceHandle, art *artifact.Desc) (PipelineHandle, error)
	DestroyPipeline(dev DeviceHandle, p PipelineHandle)
	Dispatch(dev DeviceHandle, p PipelineHandle, bindings []BufferHandle, pushConsts []byte, groups [3]uint32) (SubmissionID, error)
}
