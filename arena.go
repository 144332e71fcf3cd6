package flatview

import (
	"unsafe"

	"github.com/rawbytedev/flatview/internal/common"
	"github.com/rs/zerolog"
)

// Reservation describes one certified region. Observers installed via
// Options receive every reservation made during a decode, in order.
type Reservation struct {
	Offset uintptr // start offset within the buffer
	Bytes  uintptr // total byte length of the region
	Count  uintptr // number of elements
	Align  uintptr // required alignment
}

// zerobase stands in for the base of an empty buffer so that a
// zero-size root still gets a non-nil, aligned address.
var zerobase uint64

// arena hands out forward-only, bounds- and alignment-checked regions
// of the input buffer. The high-water mark `next` only advances, so no
// two reservations within one decode can overlap and any cycle in the
// input is rejected as a backward offset.
type arena struct {
	base    unsafe.Pointer
	size    uintptr
	next    uintptr
	observe func(Reservation)
	log     *zerolog.Logger
}

func newArena(buf []byte, opts Options) arena {
	base := unsafe.Pointer(unsafe.SliceData(buf))
	if len(buf) == 0 || base == nil {
		base = unsafe.Pointer(&zerobase)
	}
	return arena{
		base:    base,
		size:    uintptr(len(buf)),
		observe: opts.Observer,
		log:     opts.Logger,
	}
}

// reserve certifies the region of count elements of elemSize bytes at
// offset, advances the high-water mark past it, and returns its
// address. The caller is responsible for validating the element
// contents; reserve only certifies bounds, alignment and disjointness.
func (a *arena) reserve(offset, count, elemSize, align uintptr) (unsafe.Pointer, error) {
	if common.AddOverflows(uintptr(a.base), offset) {
		return nil, ErrOutOfBounds
	}
	if offset < a.next {
		return nil, ErrBackwardOffset
	}
	if align > 1 && (uintptr(a.base)+offset)%align != 0 {
		return nil, ErrMisaligned
	}
	if common.MulOverflows(count, elemSize) {
		return nil, ErrOutOfBounds
	}
	bytes := count * elemSize
	if common.AddOverflows(offset, bytes) || offset+bytes > a.size {
		return nil, ErrOutOfBounds
	}
	a.next = offset + bytes
	if a.observe != nil {
		a.observe(Reservation{Offset: offset, Bytes: bytes, Count: count, Align: align})
	}
	if a.log != nil {
		a.log.Trace().
			Uint64("offset", uint64(offset)).
			Uint64("bytes", uint64(bytes)).
			Uint64("count", uint64(count)).
			Msg("reserve")
	}
	return unsafe.Add(a.base, offset), nil
}
