package common

import "unsafe"

// WordSize is the size of one machine word; view headers store offsets
// and lengths as native words.
const WordSize = unsafe.Sizeof(uintptr(0))

// AddOverflows reports whether a+b wraps the address space.
func AddOverflows(a, b uintptr) bool {
	return a+b < a
}

// MulOverflows reports whether a*b wraps the address space.
func MulOverflows(a, b uintptr) bool {
	return b != 0 && a > ^uintptr(0)/b
}

// LoadWord reads the i-th word at p.
func LoadWord(p unsafe.Pointer, i uintptr) uintptr {
	return *(*uintptr)(unsafe.Add(p, i*WordSize))
}

// StoreWord writes the i-th word at p. Buffer memory is allocated as
// bytes (noscan), so raw word stores never need a write barrier.
func StoreWord(p unsafe.Pointer, i uintptr, v uintptr) {
	*(*uintptr)(unsafe.Add(p, i*WordSize)) = v
}

// LoadUint reads a fixed-width unsigned pattern at p in native byte
// order. width must be 1, 2, 4 or 8 and p must be width-aligned.
func LoadUint(p unsafe.Pointer, width uintptr) uint64 {
	switch width {
	case 1:
		return uint64(*(*uint8)(p))
	case 2:
		return uint64(*(*uint16)(p))
	case 4:
		return uint64(*(*uint32)(p))
	default:
		return *(*uint64)(p)
	}
}

// ByteSpan aliases n bytes at p as a slice without copying.
func ByteSpan(p unsafe.Pointer, n uintptr) []byte {
	return unsafe.Slice((*byte)(p), n)
}
