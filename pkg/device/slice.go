package device

import (
	"unsafe"

	"github.com/christerso/gpurt/internal/engine"
	"github.com/christerso/gpurt/pkg/scalar"
)

// Numeric lists the Go types a Slice[T]/SliceMut[T] may be built over.
// f16/bf16 have no native Go representation and are only ever carried
// as scalar.Elem (spec constants, push constants); typed host/device
// buffers stick to the types Go can address directly.
type Numeric interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~float32 | ~uint64 | ~int64 | ~float64
}

func scalarTypeOf[T Numeric]() scalar.Type {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return scalar.U8
	case int8:
		return scalar.I8
	case uint16:
		return scalar.U16
	case int16:
		return scalar.I16
	case uint32:
		return scalar.U32
	case int32:
		return scalar.I32
	case float32:
		return scalar.F32
	case uint64:
		return scalar.U64
	case int64:
		return scalar.I64
	case float64:
		return scalar.F64
	default:
		panic("device: unsupported scalar type")
	}
}

// Slice is a read-only typed view over either a host []T or a device
// buffer. It carries T's ScalarType alongside
// the view so dispatch can check it against a kernel's slice_descs
// without reflection.
type Slice[T Numeric] struct {
	dev    Device
	buf    *engine.DeviceBuffer
	host   []T
	length int
}

// SliceMut is Slice's writable counterpart, the sole difference being
// which mutability bit dispatch validates (slice_descs[i].mutable).
type SliceMut[T Numeric] struct {
	Slice[T]
}

// FromHost wraps a host slice without any device residency.
// Kernel.Dispatch rejects such a slice with a BindingMismatch
// ("expected device, found host").
func FromHost[T Numeric](data []T) Slice[T] {
	return Slice[T]{dev: Host(), host: data, length: len(data)}
}

// FromHostMut is FromHost's writable counterpart.
func FromHostMut[T Numeric](data []T) SliceMut[T] {
	return SliceMut[T]{Slice: FromHost(data)}
}

// Upload copies data to dev's device memory and wraps it as a Slice[T].
func Upload[T Numeric](dev Device, data []T) (Slice[T], error) {
	buf, err := engine.Upload(dev.engine(), bytesOf(data))
	if err != nil {
		return Slice[T]{}, err
	}
	return Slice[T]{dev: dev, buf: buf, length: len(data)}, nil
}

// UploadMut is Upload's writable counterpart.
func UploadMut[T Numeric](dev Device, data []T) (SliceMut[T], error) {
	s, err := Upload(dev, data)
	if err != nil {
		return SliceMut[T]{}, err
	}
	return SliceMut[T]{Slice: s}, nil
}

// Uninit allocates length uninitialized elements on dev's device.
func Uninit[T Numeric](dev Device, length int) (SliceMut[T], error) {
	buf, err := engine.Uninit(dev.engine(), length*scalarTypeOf[T]().Size())
	if err != nil {
		return SliceMut[T]{}, err
	}
	return SliceMut[T]{Slice: Slice[T]{dev: dev, buf: buf, length: length}}, nil
}

// Len is the view's length in elements.
func (s Slice[T]) Len() int { return s.length }

// Device is the device this slice lives on (or the host sentinel).
func (s Slice[T]) Device() Device { return s.dev }

// IsDevice reports whether this slice is backed by a device allocation
// rather than host memory.
func (s Slice[T]) IsDevice() bool { return s.buf != nil }

// Download copies a device slice's contents to out, which must have
// exactly Len() elements. It is a plain copy for a host slice.
func (s Slice[T]) Download(out []T) error {
	if s.buf == nil {
		copy(out, s.host)
		return nil
	}
	raw := make([]byte, s.buf.Len())
	if err := s.buf.Download(raw); err != nil {
		return err
	}
	elementsFromBytes(raw, out)
	return nil
}

// Release drops this view's device reference, if any.
func (s Slice[T]) Release() {
	if s.buf != nil {
		s.buf.Release()
	}
}

// bindingArg builds the type-erased binding this slice contributes to a
// dispatch. Slice is read-only; SliceMut
// overrides this method to set mutable=true.
func (s Slice[T]) bindingArg(name string) kernelSliceArg {
	return kernelSliceArg{
		name:       name,
		scalarType: scalarTypeOf[T](),
		mutable:    false,
		buf:        s.buf,
		dev:        s.dev,
		len:        s.length,
	}
}

// bindingArg overrides Slice's, flipping mutable on (SliceMut's slice
// is writable per its binding schema).
func (s SliceMut[T]) bindingArg(name string) kernelSliceArg {
	a := s.Slice.bindingArg(name)
	a.mutable = true
	return a
}

// SliceArg is any typed slice that can be bound to a kernel dispatch;
// both Slice[T] and SliceMut[T] implement it for every allowed T.
type SliceArg interface {
	bindingArg(name string) kernelSliceArg
}

// bytesOf reinterprets data's backing array as a byte slice, the same
// little-endian-on-the-host assumption the original's bytemuck-based
// as_bytes relies on. It is a view, not a copy: callers that hand the
// result to engine.Upload are fine because Upload copies it into a
// host-visible mapping before returning.
func bytesOf[T Numeric](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*size)
}

// elementsFromBytes is bytesOf's inverse: it decodes raw into out's
// backing array in place.
func elementsFromBytes[T Numeric](raw []byte, out []T) {
	if len(out) == 0 {
		return
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(out)*size)
	copy(dst, raw)
}
