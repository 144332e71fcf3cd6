package flatview

import (
	"reflect"
	"sync"
)

// Char is a Unicode scalar value. Unlike rune, whose 32-bit pattern is
// unrestricted, a Char field only certifies if the pattern is a valid
// scalar value (no surrogates, at most U+10FFFF).
type Char rune

// Never is uninhabited: no byte pattern is a legal Never, so any shape
// containing one always fails to decode.
type Never struct{}

// CString is a view of a NUL-terminated byte string. The bytes must
// end in exactly one NUL with no interior NUL.
type CString []byte

// OSString is a view of a string in the platform's native encoding.
// Any byte content is accepted once the region bounds-validates.
type OSString []byte

// Path is a filesystem path view; validated like OSString.
type Path []byte

// Range is a half-open interval [Start, End).
type Range[T any] struct {
	Start T
	End   T
}

// RangeFrom is an interval bounded below: [Start, ...).
type RangeFrom[T any] struct {
	Start T
}

// RangeTo is an interval bounded above: [..., End).
type RangeTo[T any] struct {
	End T
}

// RangeFull is the unbounded interval marker.
type RangeFull struct{}

// Ordering is the three-valued comparison result.
type Ordering uint8

const (
	Less Ordering = iota
	Equal
	Greater
)

// FpCategory is the IEEE-754 classification of a floating point value.
type FpCategory uint8

const (
	FpNaN FpCategory = iota
	FpInfinite
	FpZero
	FpSubnormal
	FpNormal
)

// enumSet holds the legal discriminant bit patterns for one closed
// enum type, widened to uint64.
type enumSet struct {
	width   uintptr
	allowed []uint64
}

var enums = struct {
	sync.RWMutex
	m map[reflect.Type]*enumSet
}{m: make(map[reflect.Type]*enumSet)}

// RegisterEnum declares the legal discriminants of the closed enum
// type T. A decoded T must match one of the values bit for bit, else
// the decode fails with ErrInvalidDiscriminant. Register enums before
// the first decode of any shape containing them: plans compiled
// earlier are not recompiled.
func RegisterEnum[T ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64](values ...T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	width := t.Size()
	mask := ^uint64(0)
	if width < 8 {
		mask = 1<<(8*width) - 1
	}
	set := &enumSet{width: width, allowed: make([]uint64, 0, len(values))}
	for _, v := range values {
		set.allowed = append(set.allowed, uint64(v)&mask)
	}
	enums.Lock()
	enums.m[t] = set
	enums.Unlock()
}

func enumFor(t reflect.Type) *enumSet {
	enums.RLock()
	defer enums.RUnlock()
	return enums.m[t]
}

func init() {
	RegisterEnum(Less, Equal, Greater)
	RegisterEnum(FpNaN, FpInfinite, FpZero, FpSubnormal, FpNormal)
}
