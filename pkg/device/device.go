// Package device is the typed, checked façade over internal/engine:
// Device, Slice/SliceMut, KernelBuilder, and Kernel.
package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/christerso/gpurt/internal/engine"
	"github.com/christerso/gpurt/pkg/features"
)

// Info describes an enumerated physical device.
type Info struct {
	Index              int
	Name               string
	ComputeQueueCount  int
	TransferQueueCount int
	Features           features.Set
}

// String renders the device the way engine diagnostics and logs
// identify it: index, name, and the stable handle used in DeviceLost.
func (d Device) String() string {
	if d.shared == nil {
		return "Device(host)"
	}
	e := d.shared.eng
	return fmt.Sprintf("Device(index=%d, name=%q, handle=0x%x)", e.Index(), e.Name(), e.Handle())
}

// sharedEngine is the ref-counted handle every Device clone points at;
// the last Close triggers engine shutdown. refs counts the clones made
// beyond the original handle, so its zero value stands for one open
// handle.
type sharedEngine struct {
	eng  *engine.Engine
	refs atomic.Int32
}

func (s *sharedEngine) clone() *sharedEngine {
	s.refs.Add(1)
	return s
}

func (s *sharedEngine) release() {
	if s.refs.Add(-1) == -1 {
		_ = s.eng.Close()
	}
}

// Device is a handle to a logical compute device, or the host
// sentinel. Identity is by pointer equality of the underlying Engine;
// Devices returned by two separate Build calls are therefore distinct
// identities even if they target the same physical index.
type Device struct {
	shared *sharedEngine // nil for the host sentinel
}

var hostDevice = Device{}

// Host returns the host-memory sentinel device. Slices built against
// it never touch the GPU; Kernel.Build rejects it.
func Host() Device { return hostDevice }

// IsHost reports whether d is the host sentinel.
func (d Device) IsHost() bool { return d.shared == nil }

// IsDevice is the complement of IsHost.
func (d Device) IsDevice() bool { return d.shared != nil }

// engine returns the underlying engine, or nil for the host sentinel.
// Unexported: only this package's Slice/Kernel code uses it.
func (d Device) engine() *engine.Engine {
	if d.shared == nil {
		return nil
	}
	return d.shared.eng
}

// Equal reports whether d and other refer to the same underlying
// engine (or are both the host sentinel).
func (d Device) Equal(other Device) bool {
	return d.engine() == other.engine()
}

// Info returns the device's enumerated info. Calling it on the host
// sentinel returns the zero value.
func (d Device) Info() Info {
	e := d.engine()
	if e == nil {
		return Info{}
	}
	return Info{
		Index:              e.Index(),
		Name:               e.Name(),
		ComputeQueueCount:  e.ComputeQueueCount(),
		TransferQueueCount: e.TransferQueueCount(),
		Features:           e.Features(),
	}
}

// Clone returns a new Device handle sharing this one's engine,
// incrementing its reference count.
func (d Device) Clone() Device {
	if d.shared == nil {
		return d
	}
	return Device{shared: d.shared.clone()}
}

// Close releases this handle's reference. Once every clone has closed,
// the engine shuts down (wait-for-idle then teardown).
func (d Device) Close() {
	if d.shared != nil {
		d.shared.release()
	}
}

// Wait blocks until every submission made so far on this device has
// completed, or returns DeviceLost. It is a no-op returning nil on the
// host sentinel.
func (d Device) Wait() error {
	if d.shared == nil {
		return nil
	}
	return d.shared.eng.Wait()
}

// Builder collects device-selection parameters before opening a
// physical device.
type Builder struct {
	index   int
	optimal features.Set
	appName string
}

// NewBuilder returns a Builder defaulting to device index 0 and every
// feature flag requested (the "optimal" set DeviceBuilder starts from).
func NewBuilder() *Builder {
	return &Builder{index: 0, optimal: features.All(), appName: "gpurt"}
}

// Index sets which enumerated physical device to open.
func (b *Builder) Index(i int) *Builder { b.index = i; return b }

// Optimal sets the feature set Build negotiates against what the
// physical device advertises (features = advertised ∩ optimal).
func (b *Builder) Optimal(f features.Set) *Builder { b.optimal = f; return b }

// AppName sets the diagnostic application name passed to the
// underlying instance.
func (b *Builder) AppName(name string) *Builder { b.appName = name; return b }

var buildMu sync.Mutex

// Build enumerates physical devices and opens the one at Index,
// failing gpuerr.DeviceIndexOutOfRange if it doesn't exist. Engine construction itself isn't safe to run concurrently with
// other instance creation in this process, so Build serializes globally.
func (b *Builder) Build() (Device, error) {
	buildMu.Lock()
	defer buildMu.Unlock()

	eng, err := engine.NewVulkan(b.appName, b.index, b.optimal)
	if err != nil {
		return Device{}, err
	}
	return Device{shared: &sharedEngine{eng: eng}}, nil
}
