package flatview

import "errors"

var (
	// ErrOutOfBounds is returned when a reservation would exceed the
	// buffer end, or when offset/length arithmetic overflows.
	ErrOutOfBounds = errors.New("region out of bounds")

	// ErrMisaligned is returned when a reserved address is not a
	// multiple of the element type's alignment.
	ErrMisaligned = errors.New("misaligned region")

	// ErrBackwardOffset is returned when a reservation starts behind
	// the arena's high-water mark, i.e. it would reuse or overlap bytes
	// that an earlier reservation already certified.
	ErrBackwardOffset = errors.New("backward or overlapping region")

	// ErrInvalidDiscriminant is returned when a fixed-width enum tag
	// matches none of the registered discriminant values.
	ErrInvalidDiscriminant = errors.New("invalid enum discriminant")

	// ErrInvalidScalar is returned when a bit pattern falls outside a
	// leaf type's legal domain (bad bool byte, signaling NaN, surrogate
	// code point, invalid UTF-8, malformed C string).
	ErrInvalidScalar = errors.New("invalid scalar value")

	// ErrNilIndirection is returned when a pointer, slice or string
	// view carries the zero offset sentinel.
	ErrNilIndirection = errors.New("nil indirection")

	// ErrUnsupported is returned at plan time for types that have no
	// in-buffer representation (maps, channels, funcs, interfaces).
	ErrUnsupported = errors.New("unsupported type")
)
