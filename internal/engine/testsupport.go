package engine

// NewNoopBackend returns an in-memory Backend double with no GPU
// dependency, exported solely so pkg/device's test suite can build
// Engines without a physical device. Production code never calls this;
// Device.Builder.Build always goes through NewVulkan.
func NewNoopBackend() Backend { return newNoopBackend() }

// LoseDeviceForTests flips e's backing device into the lost state, for
// pkg/device tests exercising Ready→Lost propagation through the typed
// surface.
func LoseDeviceForTests(e *Engine) { loseDevice(e.dev) }
