package engine

import (
	"sync"

	"github.com/christerso/gpurt/pkg/gpuerr"
)

// allocation is the actual device-resident backing a DeviceBuffer and
// (when sliced) every subview of it. Sharing one allocation per backing
// buffer, with views tracking only an offset+len into it, is what lets
// a slice share synchronization state with its parent conservatively.
type allocation struct {
	engine *Engine
	handle BufferHandle
	len    int

	mu          sync.Mutex
	refs        int
	released    bool
	lastWriter  SubmissionID
	writerQueue QueueKind
	hasWriter   bool
	readers     [2]SubmissionID // indexed by QueueKind
	hasReader   [2]bool
}

// DeviceBuffer is a view (offset, len) over a shared allocation, the
// subslice relationship that lets a slice and its parent track the same
// pending reads/writes.
type DeviceBuffer struct {
	alloc  *allocation
	offset int
	len    int
}

// allocationRetryAttempts bounds the retry loop Uninit runs around a
// transient AllocationFailed; a fragmented allocator can free concurrently
// freed blocks between attempts, per pkg/vk's own Retry pattern.
const allocationRetryAttempts = 3

// Uninit allocates byte_len uninitialized device bytes. Contents are
// indeterminate until the caller uploads into them.
func Uninit(e *Engine, byteLen int) (*DeviceBuffer, error) {
	if err := e.checkLive(); err != nil {
		return nil, err
	}
	handle, err := retryAllocation(allocationRetryAttempts, func() (BufferHandle, error) {
		return e.backend.AllocateBuffer(e.dev, byteLen)
	})
	if err != nil {
		return nil, e.wrap(err)
	}
	alloc := &allocation{engine: e, handle: handle, len: byteLen, refs: 1}
	return &DeviceBuffer{alloc: alloc, offset: 0, len: byteLen}, nil
}

// Upload allocates byte_len(data) bytes and schedules a host→device
// copy, returning once the copy is submitted.
func Upload(e *Engine, data []byte) (*DeviceBuffer, error) {
	buf, err := Uninit(e, len(data))
	if err != nil {
		return nil, err
	}
	sub, err := e.backend.Upload(e.dev, buf.alloc.handle, data, QueueTransfer)
	if err != nil {
		return nil, e.wrap(err)
	}
	buf.alloc.recordWrite(sub, QueueTransfer)
	return buf, nil
}

// Engine returns the engine that owns this buffer.
func (b *DeviceBuffer) Engine() *Engine { return b.alloc.engine }

// Len is the view's length in bytes.
func (b *DeviceBuffer) Len() int { return b.len }

// Handle is the backend-opaque buffer token, passed to Engine.Dispatch
// as a descriptor binding.
func (b *DeviceBuffer) Handle() BufferHandle { return b.alloc.handle }

// Offset is this view's byte offset into its backing allocation, the
// value a kernel dispatch must account for when deriving a slice's
// element offset for its push-constant (offset, len) pair.
func (b *DeviceBuffer) Offset() int { return b.offset }

func (a *allocation) recordWrite(sub SubmissionID, q QueueKind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastWriter = sub
	a.writerQueue = q
	a.hasWriter = true
	a.hasReader[0], a.hasReader[1] = false, false
}

func (a *allocation) recordRead(sub SubmissionID, q QueueKind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.readers[q] = sub
	a.hasReader[q] = true
}

// RecordRead marks sub as a pending read of this buffer on queue q, so
// a later write waits for it (WAR hazard). Used by the dispatch path
// once a kernel binds this buffer as a read-only slice.
func (b *DeviceBuffer) RecordRead(sub SubmissionID, q QueueKind) { b.alloc.recordRead(sub, q) }

// RecordWrite marks sub as this buffer's new last writer, superseding
// any prior writer or readers (RAW/WAW/WAR all collapse to "wait for
// this one" going forward).
func (b *DeviceBuffer) RecordWrite(sub SubmissionID, q QueueKind) { b.alloc.recordWrite(sub, q) }

// waitForPending blocks until every submission the allocation has
// recorded (the last writer and any readers) has completed, the
// RAW/WAR/WAW serialization a buffer operation must wait on.
func (a *allocation) waitForPending() error {
	a.mu.Lock()
	hasWriter, writer, writerQueue := a.hasWriter, a.lastWriter, a.writerQueue
	var readers [2]SubmissionID
	var hasReader [2]bool
	readers, hasReader = a.readers, a.hasReader
	a.mu.Unlock()

	if hasWriter {
		if err := a.engine.backend.Wait(a.engine.dev, writerQueue, writer); err != nil {
			return a.engine.wrap(err)
		}
	}
	for q := 0; q < 2; q++ {
		if hasReader[q] {
			if err := a.engine.backend.Wait(a.engine.dev, QueueKind(q), readers[q]); err != nil {
				return a.engine.wrap(err)
			}
		}
	}
	return nil
}

// Download schedules a device→host copy, waits for completion, and
// fills out. len(out) must equal b.Len().
func (b *DeviceBuffer) Download(out []byte) error {
	if len(out) != b.len {
		return &gpuerr.InvalidLength{Expected: b.len, Got: len(out)}
	}
	e := b.alloc.engine
	if err := e.checkLive(); err != nil {
		return err
	}
	if err := b.alloc.waitForPending(); err != nil {
		return err
	}
	if b.offset == 0 && b.len == b.alloc.len {
		return e.wrap(e.backend.Download(e.dev, b.alloc.handle, out, QueueTransfer, b.alloc.lastWriter))
	}
	// A subview: the backend copies whole allocations, so download the
	// backing buffer and copy out this view's [offset, offset+len) range.
	whole := make([]byte, b.alloc.len)
	if err := e.wrap(e.backend.Download(e.dev, b.alloc.handle, whole, QueueTransfer, b.alloc.lastWriter)); err != nil {
		return err
	}
	copy(out, whole[b.offset:b.offset+b.len])
	return nil
}

// Transfer copies this buffer to dst, via a host staging round-trip
// when dst differs from this buffer's engine. If dst is
// the same engine, Transfer returns a new handle to the same
// allocation rather than copying.
func (b *DeviceBuffer) Transfer(dst *Engine) (*DeviceBuffer, error) {
	if dst == b.alloc.engine {
		b.alloc.mu.Lock()
		b.alloc.refs++
		b.alloc.mu.Unlock()
		return &DeviceBuffer{alloc: b.alloc, offset: b.offset, len: b.len}, nil
	}

	staging, err := newStagingBuffer(b.len)
	if err != nil {
		return nil, err
	}
	defer staging.release()

	if err := b.Download(staging.bytes()); err != nil {
		return nil, err
	}
	return Upload(dst, staging.bytes())
}

// Slice returns a subview of [offset, offset+length) sharing this
// view's allocation, or false if the bounds escape [0, Len()).
func (b *DeviceBuffer) Slice(offset, length int) (*DeviceBuffer, bool) {
	if offset < 0 || length < 0 || offset+length > b.len {
		return nil, false
	}
	b.alloc.mu.Lock()
	b.alloc.refs++
	b.alloc.mu.Unlock()
	return &DeviceBuffer{alloc: b.alloc, offset: b.offset + offset, len: length}, true
}

// Release drops this view's reference. Once every clone has released
// and the backend confirms no submission still references the
// allocation, the underlying buffer is freed.
func (b *DeviceBuffer) Release() {
	a := b.alloc
	a.mu.Lock()
	a.refs--
	shouldFree := a.refs <= 0 && !a.released
	if shouldFree {
		a.released = true
	}
	a.mu.Unlock()

	if !shouldFree {
		return
	}
	_ = a.waitForPending()
	a.engine.backend.FreeBuffer(a.engine.dev, a.handle)
}
