package flatview

import (
	"encoding/binary"
	"unsafe"
)

// imageBuilder assembles test buffers. finish copies the bytes onto
// word-aligned backing storage so root alignment is deterministic.
type imageBuilder struct {
	data []byte
}

// pad zero-fills up to the next multiple of align.
func (b *imageBuilder) pad(align int) *imageBuilder {
	for len(b.data)%align != 0 {
		b.data = append(b.data, 0)
	}
	return b
}

func (b *imageBuilder) offset() uint64 {
	return uint64(len(b.data))
}

func (b *imageBuilder) word(v uint64) *imageBuilder {
	b.data = binary.NativeEndian.AppendUint64(b.data, v)
	return b
}

func (b *imageBuilder) u32(v uint32) *imageBuilder {
	b.data = binary.NativeEndian.AppendUint32(b.data, v)
	return b
}

func (b *imageBuilder) u64(v uint64) *imageBuilder {
	b.data = binary.NativeEndian.AppendUint64(b.data, v)
	return b
}

func (b *imageBuilder) bytes(p []byte) *imageBuilder {
	b.data = append(b.data, p...)
	return b
}

func (b *imageBuilder) finish() []byte {
	n := len(b.data)
	if n == 0 {
		return []byte{}
	}
	backing := make([]uint64, (n+7)/8)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&backing[0])), n)
	copy(buf, b.data)
	return buf
}

// appendMem snapshots v's in-memory bytes into the builder; handy for
// shapes with no indirection.
func appendMem[T any](b *imageBuilder, v T) {
	b.data = append(b.data, unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v))...)
}
