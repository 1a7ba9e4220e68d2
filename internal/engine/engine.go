package engine

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/gpuerr"
)

type state int32

const (
	stateReady state = iota
	stateLost
)

// Engine is the per-device singleton-lifetime object: it owns the
// device connection, the queues, the buffer allocator (delegated to
// Backend), and the pipeline cache. Device clones share one Engine by
// reference counting at the pkg/device layer; Engine itself has no
// refcount, only a Ready→Lost state.
type Engine struct {
	backend Backend
	dev     DeviceHandle
	handle  uint64
	index   int
	info    PhysicalDeviceInfo
	features features.Set

	state atomic.Int32
	cache *KernelCache
}

// New opens physical device index through backend, negotiates features
// as advertised ∩ optimal, and returns a Ready Engine.
func New(backend Backend, index int, optimal features.Set) (*Engine, error) {
	infos, err := backend.EnumeratePhysicalDevices()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(infos) {
		return nil, &gpuerr.DeviceIndexOutOfRange{Index: index, Devices: len(infos)}
	}

	dev, handle, err := backend.OpenDevice(index)
	if err != nil {
		return nil, err
	}

	info := infos[index]
	negotiated := info.Features.Intersect(optimal)
	e := &Engine{
		backend:  backend,
		dev:      dev,
		handle:   handle,
		index:    index,
		info:     info,
		features: negotiated,
		cache:    newKernelCache(),
	}
	logrus.WithFields(logrus.Fields{
		"index":  index,
		"name":   info.Name,
		"handle": handle,
	}).Info("gpurt: engine opened")
	return e, nil
}

// NewVulkan opens a real Vulkan-backed engine for physical device
// index, the constructor pkg/device's DeviceBuilder calls in
// production.
func NewVulkan(appName string, index int, optimal features.Set) (*Engine, error) {
	backend, err := newVkBackend(appName)
	if err != nil {
		return nil, err
	}
	return New(backend, index, optimal)
}

// Handle is the engine's stable diagnostic id.
func (e *Engine) Handle() uint64 { return e.handle }

// Index is the physical device index this engine was built from.
func (e *Engine) Index() int { return e.index }

// Name is the physical device's human-readable name.
func (e *Engine) Name() string { return e.info.Name }

// ComputeQueueCount is the number of compute queues this engine opened.
func (e *Engine) ComputeQueueCount() int { return e.info.ComputeQueueCount }

// TransferQueueCount is the number of distinct transfer queues this
// engine opened; 0 means transfers share the compute queue.
func (e *Engine) TransferQueueCount() int { return e.info.TransferQueueCount }

// Features is the negotiated feature set (advertised ∩ optimal).
func (e *Engine) Features() features.Set { return e.features }

// IsLost reports whether the engine has entered the terminal Lost
// state.
func (e *Engine) IsLost() bool { return state(e.state.Load()) == stateLost }

// checkLive returns DeviceLost if the engine is no longer Ready; every
// operation below calls this first.
func (e *Engine) checkLive() error {
	if e.IsLost() {
		return &gpuerr.DeviceLost{Index: e.index, Handle: e.handle}
	}
	return nil
}

// markLost transitions the engine to Lost. Idempotent: once Lost,
// repeated calls are no-ops.
func (e *Engine) markLost() {
	if state(e.state.Swap(int32(stateLost))) != stateLost {
		logrus.WithFields(logrus.Fields{
			"index":  e.index,
			"handle": e.handle,
		}).Warn("gpurt: engine lost")
	}
}

// wrap inspects a backend operation's error and transitions the engine
// to Lost if it reports a device-lost failure, so the condition becomes
// sticky across every subsequent call.
func (e *Engine) wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := gpuerr.AsDeviceLost(err); ok {
		e.markLost()
	}
	return err
}

// Wait blocks until every submission made so far on this engine has
// completed, or returns DeviceLost.
func (e *Engine) Wait() error {
	if err := e.checkLive(); err != nil {
		return err
	}
	return e.wrap(e.backend.WaitIdle(e.dev))
}

// Close tears the engine down: wait for idle, then release the
// physical device connection.
func (e *Engine) Close() error {
	_ = e.backend.WaitIdle(e.dev)
	e.backend.CloseDevice(e.dev)
	e.state.Store(int32(stateLost))
	logrus.WithFields(logrus.Fields{
		"index":  e.index,
		"handle": e.handle,
	}).Info("gpurt: engine closed")
	return nil
}
