package artifact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"github.com/christerso/gpurt/pkg/features"
	"github.com/christerso/gpurt/pkg/gpuerr"
	"github.com/christerso/gpurt/pkg/scalar"
)

// FromBytes deserializes a kernel artifact from its binary encoding.
// blob must outlive the returned Desc: its address is used, not
// copied, to derive ArtifactID.
func FromBytes(blob []byte) (*Desc, error) {
	r := &reader{b: bytes.NewReader(blob)}

	d := &Desc{id: artifactIDFor(blob)}
	d.Name = r.string()
	d.Bytecode = r.u32Words()
	d.Features = r.features()
	d.Threads = r.threads()
	d.Safe = r.bool()
	d.SpecDescs = r.specDescs()
	d.SliceDescs = r.sliceDescs()
	d.PushDescs = r.pushDescs()

	if r.err != nil {
		return nil, &gpuerr.ArtifactDecode{Reason: r.errContext, Cause: r.err}
	}
	if r.b.Len() != 0 {
		return nil, &gpuerr.ArtifactDecode{Reason: fmt.Sprintf("%d unknown trailing bytes", r.b.Len())}
	}
	return d, nil
}

// artifactIDFor derives the stable token used as KernelKey.ArtifactID.
// The original treats this as the address of a static payload; we do
// the same for in-process byte slices (the common case: a
// `//go:embed`-style static blob). Callers who load artifacts from disk
// on every run get a different address per load and therefore a
// perpetual cache miss — see the open questions in DESIGN.md; such
// callers should keep the decoded []byte alive and reuse it rather than
// re-reading the file per Build call.
func artifactIDFor(blob []byte) uintptr {
	if len(blob) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&blob[0]))
}

// reader wraps bytes.Reader with the length-prefixed/option primitives
// the wire format uses, short-circuiting once any read
// fails so callers can chain reads without checking every error.
type reader struct {
	b          *bytes.Reader
	err        error
	errContext string
}

func (r *reader) fail(context string, err error) {
	if r.err == nil {
		r.err = err
		r.errContext = context
	}
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	var buf [4]byte
	if _, err := io.ReadFull(r.b, buf[:]); err != nil {
		r.fail("u32", err)
		return 0
	}
	return binary.LittleEndian.Uint32(buf[:])
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	var buf [8]byte
	if _, err := io.ReadFull(r.b, buf[:]); err != nil {
		r.fail("u64", err)
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (r *reader) bool() bool {
	if r.err != nil {
		return false
	}
	var buf [1]byte
	if _, err := io.ReadFull(r.b, buf[:]); err != nil {
		r.fail("bool", err)
		return false
	}
	return buf[0] != 0
}

func (r *reader) scalarType() scalar.Type {
	if r.err != nil {
		return 0
	}
	var buf [1]byte
	if _, err := io.ReadFull(r.b, buf[:]); err != nil {
		r.fail("scalar_type", err)
		return 0
	}
	t := scalar.Type(buf[0])
	if !t.Valid() {
		r.fail("scalar_type", fmt.Errorf("invalid scalar type tag %d", buf[0]))
		return 0
	}
	return t
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	n := r.u32()
	if r.err != nil {
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.b, buf); err != nil {
		r.fail("string", err)
		return ""
	}
	return string(buf)
}

func (r *reader) u32Words() []uint32 {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	words := make([]uint32, n)
	for i := range words {
		words[i] = r.u32()
	}
	return words
}

func (r *reader) features() features.Set {
	f := features.Empty().
		WithInt8(r.bool()).
		WithInt16(r.bool()).
		WithInt64(r.bool()).
		WithFloat16(r.bool()).
		WithFloat64(r.bool())
	return f
}

func (r *reader) threads() [3]uint32 {
	n := r.u32()
	if r.err != nil {
		return [3]uint32{}
	}
	if n < 1 || n > 3 {
		r.fail("threads", fmt.Errorf("threads length %d out of range [1,3]", n))
		return [3]uint32{}
	}
	var t [3]uint32
	t[0], t[1], t[2] = 1, 1, 1
	for i := uint32(0); i < n; i++ {
		t[i] = r.u32()
	}
	return t
}

func (r *reader) optionU64() (uint64, bool) {
	present := r.bool()
	if r.err != nil || !present {
		return 0, false
	}
	return r.u64(), true
}

func (r *reader) specDescs() []SpecDesc {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	out := make([]SpecDesc, n)
	for i := range out {
		name := r.string()
		st := r.scalarType()
		dim, ok := r.optionU64()
		threadDim := -1
		if ok {
			threadDim = int(dim)
		}
		out[i] = SpecDesc{Name: name, ScalarType: st, ThreadDim: threadDim}
	}
	return out
}

func (r *reader) sliceDescs() []SliceDesc {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	out := make([]SliceDesc, n)
	for i := range out {
		name := r.string()
		st := r.scalarType()
		mutable := r.bool()
		item := r.bool()
		out[i] = SliceDesc{Name: name, ScalarType: st, Mutable: mutable, Item: item}
	}
	return out
}

func (r *reader) pushDescs() []PushDesc {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	out := make([]PushDesc, n)
	for i := range out {
		name := r.string()
		st := r.scalarType()
		out[i] = PushDesc{Name: name, ScalarType: st}
	}
	return out
}

// Encode serializes d back to the wire format. It is used by tests and
// by tools that build artifact blobs offline; the runtime engine itself
// only ever calls FromBytes.
func Encode(d *Desc) []byte {
	var buf bytes.Buffer
	writeString(&buf, d.Name)
	writeU32(&buf, uint32(len(d.Bytecode)))
	for _, w := range d.Bytecode {
		writeU32(&buf, w)
	}
	writeBool(&buf, d.Features.Int8())
	writeBool(&buf, d.Features.Int16())
	writeBool(&buf, d.Features.Int64())
	writeBool(&buf, d.Features.Float16())
	writeBool(&buf, d.Features.Float64())

	threadsLen := 3
	writeU32(&buf, uint32(threadsLen))
	for _, t := range d.Threads {
		writeU32(&buf, t)
	}
	writeBool(&buf, d.Safe)

	writeU32(&buf, uint32(len(d.SpecDescs)))
	for _, s := range d.SpecDescs {
		writeString(&buf, s.Name)
		buf.WriteByte(byte(s.ScalarType))
		if s.HasThreadDim() {
			writeBool(&buf, true)
			writeU64(&buf, uint64(s.ThreadDim))
		} else {
			writeBool(&buf, false)
		}
	}

	writeU32(&buf, uint32(len(d.SliceDescs)))
	for _, s := range d.SliceDescs {
		writeString(&buf, s.Name)
		buf.WriteByte(byte(s.ScalarType))
		writeBool(&buf, s.Mutable)
		writeBool(&buf, s.Item)
	}

	writeU32(&buf, uint32(len(d.PushDescs)))
	for _, p := range d.PushDescs {
		writeString(&buf, p.Name)
		buf.WriteByte(byte(p.ScalarType))
	}

	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}
