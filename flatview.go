// Package flatview certifies that an untrusted byte buffer contains a
// structurally and semantically legal in-memory value of a known Go
// type and exposes it as a read-only view into the same buffer, with
// no copying. It is the inverse of a serialization verifier: instead
// of one fixed schema, the shape is any supported Go type.
//
// The in-buffer layout is the Go layout of the target architecture:
// reflect sizes, alignments and struct field offsets, native byte
// order and word size. Indirect values store buffer offsets in place
// of addresses: a pointer is one offset word, a string view is
// {offset, len}, a slice view is {offset, len, cap} with the stored
// cap ignored and rewritten to len. Offset zero is the nil sentinel.
// Buffers are only meaningful on the architecture that produced them.
//
// Decode mutates the buffer: validated offsets are rebound in place to
// absolute addresses. The caller must have exclusive access to the
// buffer during the call, must keep it alive and unwritten for as long
// as the view is used, and must discard it after a failed decode
// (partial rebinds are not rolled back). The buffer must be ordinary
// byte-slice memory; the garbage collector never scans it, so views
// never outlive the buffer they alias.
package flatview

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/rs/zerolog"
)

// Options carries per-decode instrumentation hooks.
type Options struct {
	// Observer, when set, receives every region reservation in the
	// order it was certified. Within one decode the reported regions
	// are pairwise disjoint and their offsets non-decreasing.
	Observer func(Reservation)

	// Logger, when set, traces reservations and decode failures.
	Logger *zerolog.Logger
}

// Decode certifies buf as a legal T and returns a view aliasing buf.
// buf is untrusted; no input can make Decode panic or read outside
// the buffer.
func Decode[T any](buf []byte) (*T, error) {
	return DecodeWith[T](buf, Options{})
}

// DecodeWith is Decode with instrumentation options.
func DecodeWith[T any](buf []byte, opts Options) (*T, error) {
	p, err := decode(buf, reflect.TypeOf((*T)(nil)).Elem(), opts)
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// DecodeValue is the dynamic-shape variant of Decode for types built
// at runtime (reflect.StructOf and friends). On success the returned
// value is a *typ aliasing buf.
func DecodeValue(buf []byte, typ reflect.Type) (any, error) {
	return DecodeValueWith(buf, typ, Options{})
}

// DecodeValueWith is DecodeValue with instrumentation options.
func DecodeValueWith(buf []byte, typ reflect.Type, opts Options) (any, error) {
	p, err := decode(buf, typ, opts)
	if err != nil {
		return nil, err
	}
	return reflect.NewAt(typ, p).Interface(), nil
}

func decode(buf []byte, typ reflect.Type, opts Options) (unsafe.Pointer, error) {
	pl, err := planFor(typ)
	if err != nil {
		return nil, err
	}
	a := newArena(buf, opts)
	root, err := a.reserve(0, 1, pl.size, pl.align)
	if err == nil {
		err = pl.certify(&a, root)
	}
	if err != nil {
		if opts.Logger != nil {
			opts.Logger.Debug().Err(err).Str("type", typ.String()).Msg("decode failed")
		}
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return root, nil
}
