package flatview

import (
	"bytes"
	"unicode/utf8"
	"unsafe"

	"github.com/rawbytedev/flatview/internal/common"
)

// certify checks that the already-reserved location at holds a legal
// value of the plan's type, reserving and validating any referenced
// region through the arena. The first failing sub-check aborts the
// whole tree.
func (p *plan) certify(a *arena, at unsafe.Pointer) error {
	switch p.kind {
	case pkNoop:
		return nil
	case pkBool:
		if *(*byte)(at) > 1 {
			return ErrInvalidScalar
		}
		return nil
	case pkFloat32:
		return checkFloat32(*(*uint32)(at))
	case pkFloat64:
		return checkFloat64(*(*uint64)(at))
	case pkComplex64:
		if err := checkFloat32(*(*uint32)(at)); err != nil {
			return err
		}
		return checkFloat32(*(*uint32)(unsafe.Add(at, 4)))
	case pkComplex128:
		if err := checkFloat64(*(*uint64)(at)); err != nil {
			return err
		}
		return checkFloat64(*(*uint64)(unsafe.Add(at, 8)))
	case pkChar:
		if !utf8.ValidRune(rune(*(*int32)(at))) {
			return ErrInvalidScalar
		}
		return nil
	case pkEnum:
		pat := common.LoadUint(at, p.enum.width)
		for _, v := range p.enum.allowed {
			if v == pat {
				return nil
			}
		}
		return ErrInvalidDiscriminant
	case pkNever:
		return ErrInvalidScalar
	case pkString:
		return p.certifyString(a, at)
	case pkSlice:
		return p.certifySlice(a, at)
	case pkPtr:
		return p.certifyPtr(a, at)
	case pkArray:
		for i := uintptr(0); i < p.count; i++ {
			if err := p.elem.certify(a, unsafe.Add(at, i*p.elem.size)); err != nil {
				return err
			}
		}
		return nil
	default: // pkStruct
		for _, f := range p.fields {
			if err := f.sub.certify(a, unsafe.Add(at, f.off)); err != nil {
				return err
			}
		}
		return nil
	}
}

// certifyPtr validates a one-word pointer view: the stored word is an
// offset into the buffer, replaced by the absolute address on success.
func (p *plan) certifyPtr(a *arena, at unsafe.Pointer) error {
	off := common.LoadWord(at, 0)
	if off == 0 {
		return ErrNilIndirection
	}
	data, err := a.reserve(off, 1, p.elem.size, p.elem.align)
	if err != nil {
		return err
	}
	if err := p.elem.certify(a, data); err != nil {
		return err
	}
	common.StoreWord(at, 0, uintptr(data))
	return nil
}

// certifySlice validates a three-word slice view {offset, len, cap}.
// The stored cap is untrusted and rewritten to len on success.
func (p *plan) certifySlice(a *arena, at unsafe.Pointer) error {
	off := common.LoadWord(at, 0)
	n := common.LoadWord(at, 1)
	if off == 0 {
		return ErrNilIndirection
	}
	data, err := a.reserve(off, n, p.elem.size, p.elem.align)
	if err != nil {
		return err
	}
	if p.elem.kind != pkNoop {
		for i := uintptr(0); i < n; i++ {
			if err := p.elem.certify(a, unsafe.Add(data, i*p.elem.size)); err != nil {
				return err
			}
		}
	}
	if p.check != nil {
		if err := p.check(common.ByteSpan(data, n)); err != nil {
			return err
		}
	}
	common.StoreWord(at, 0, uintptr(data))
	common.StoreWord(at, 2, n)
	return nil
}

// certifyString validates a two-word string view {offset, len}; the
// referenced bytes must be valid UTF-8.
func (p *plan) certifyString(a *arena, at unsafe.Pointer) error {
	off := common.LoadWord(at, 0)
	n := common.LoadWord(at, 1)
	if off == 0 {
		return ErrNilIndirection
	}
	data, err := a.reserve(off, n, 1, 1)
	if err != nil {
		return err
	}
	if !utf8.Valid(common.ByteSpan(data, n)) {
		return ErrInvalidScalar
	}
	common.StoreWord(at, 0, uintptr(data))
	return nil
}

const (
	f32ExpMask  = 0x7F800000
	f32QuietBit = 0x00400000
	f32MantMask = 0x007FFFFF

	f64ExpMask  = 0x7FF0000000000000
	f64QuietBit = 0x0008000000000000
	f64MantMask = 0x000FFFFFFFFFFFFF
)

// Signaling NaNs (exponent all-ones, mantissa nonzero, quiet bit
// clear) are rejected; quiet NaNs, infinities and finite values pass.
func checkFloat32(bits uint32) error {
	if bits&f32ExpMask == f32ExpMask && bits&f32MantMask != 0 && bits&f32QuietBit == 0 {
		return ErrInvalidScalar
	}
	return nil
}

func checkFloat64(bits uint64) error {
	if bits&f64ExpMask == f64ExpMask && bits&f64MantMask != 0 && bits&f64QuietBit == 0 {
		return ErrInvalidScalar
	}
	return nil
}

func checkNulTerminated(b []byte) error {
	if len(b) == 0 || b[len(b)-1] != 0 {
		return ErrInvalidScalar
	}
	if bytes.IndexByte(b[:len(b)-1], 0) >= 0 {
		return ErrInvalidScalar
	}
	return nil
}
