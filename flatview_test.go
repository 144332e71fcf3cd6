package flatview

import (
	"reflect"
	"testing"
	"testing/quick"
	"unicode/utf8"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFixedStruct(t *testing.T) {
	type header struct {
		ID    uint64
		Flag  bool
		Ratio float64
	}
	want := header{ID: 77, Flag: true, Ratio: 2.5}
	b := &imageBuilder{}
	appendMem(b, want)
	buf := b.finish()

	res, err := Decode[header](buf)
	require.NoError(t, err)
	require.Equal(t, want, *res)
	// the view aliases the buffer, no copy
	require.Same(t, (*header)(unsafe.Pointer(&buf[0])), res)
}

func TestDecodeString(t *testing.T) {
	type record struct {
		Name string
	}
	b := &imageBuilder{}
	b.word(16).word(5) // {offset, len}
	b.bytes([]byte("hello"))
	buf := b.finish()

	res, err := Decode[record](buf)
	require.NoError(t, err)
	require.Equal(t, "hello", res.Name)
	require.Same(t, &buf[16], unsafe.StringData(res.Name))
}

func TestDecodeStringInvalidUTF8(t *testing.T) {
	type record struct {
		Name string
	}
	b := &imageBuilder{}
	b.word(16).word(2)
	b.bytes([]byte{0xff, 0xfe})
	_, err := Decode[record](b.finish())
	require.ErrorIs(t, err, ErrInvalidScalar)
}

func TestDecodeSlice(t *testing.T) {
	type record struct {
		Vals []uint32
	}
	b := &imageBuilder{}
	b.word(24).word(3).word(0xDEADBEEF) // cap word is garbage on purpose
	b.u32(10).u32(20).u32(30)
	buf := b.finish()

	res, err := Decode[record](buf)
	require.NoError(t, err)
	require.Equal(t, []uint32{10, 20, 30}, res.Vals)
	require.Equal(t, 3, cap(res.Vals), "stored cap must be rewritten to len")
	require.Same(t, (*uint32)(unsafe.Pointer(&buf[24])), unsafe.SliceData(res.Vals))
}

func TestDecodePointer(t *testing.T) {
	type record struct {
		N *uint64
	}
	b := &imageBuilder{}
	b.word(8)
	b.u64(42)
	buf := b.finish()

	res, err := Decode[record](buf)
	require.NoError(t, err)
	require.Equal(t, uint64(42), *res.N)
	require.Same(t, (*uint64)(unsafe.Pointer(&buf[8])), res.N)
}

func TestDecodeNilIndirection(t *testing.T) {
	type record struct {
		N *uint64
	}
	b := &imageBuilder{}
	b.word(0)
	b.u64(42)
	_, err := Decode[record](b.finish())
	require.ErrorIs(t, err, ErrNilIndirection)
}

func TestDecodeNestedIndirection(t *testing.T) {
	type record struct {
		Names []string
	}
	b := &imageBuilder{}
	b.word(24).word(2).word(0) // slice of string headers
	b.word(56).word(2)         // "hi"
	b.word(58).word(3)         // "abc"
	b.bytes([]byte("hiabc"))
	buf := b.finish()

	res, err := Decode[record](buf)
	require.NoError(t, err)
	require.Equal(t, []string{"hi", "abc"}, res.Names)
}

func TestDecodeArrayOfStrings(t *testing.T) {
	type record struct {
		Pair [2]string
	}
	b := &imageBuilder{}
	b.word(32).word(1)
	b.word(33).word(1)
	b.bytes([]byte("xy"))
	buf := b.finish()

	res, err := Decode[record](buf)
	require.NoError(t, err)
	require.Equal(t, [2]string{"x", "y"}, res.Pair)
}

func TestDecodeRange(t *testing.T) {
	b := &imageBuilder{}
	b.u64(0x3FF0000000000000) // 1.0
	b.u64(0x4000000000000000) // 2.0
	res, err := Decode[Range[float64]](b.finish())
	require.NoError(t, err)
	require.Equal(t, Range[float64]{Start: 1, End: 2}, *res)

	b = &imageBuilder{}
	b.u64(0x3FF0000000000000)
	b.u64(0x7FF0000000000001) // signaling NaN in End
	_, err = Decode[Range[float64]](b.finish())
	require.ErrorIs(t, err, ErrInvalidScalar)
}

func TestDecodeZeroSizeRoot(t *testing.T) {
	_, err := Decode[struct{}]([]byte{})
	require.NoError(t, err)
	_, err = Decode[RangeFull](nil)
	require.NoError(t, err)
}

func TestDecodeTruncatedBuffer(t *testing.T) {
	b := &imageBuilder{}
	b.u32(7)
	_, err := Decode[uint64](b.finish())
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestDecodeCycleRejected(t *testing.T) {
	type node struct {
		Next *node
		Val  uint64
	}
	// node at 16 points back at itself: behind the high-water mark.
	b := &imageBuilder{}
	b.word(16).u64(1)
	b.word(16).u64(2)
	_, err := Decode[node](b.finish())
	require.ErrorIs(t, err, ErrBackwardOffset)
}

type chainA struct {
	Next *chainB
}

type chainB struct {
	Loop chainA
}

func TestDecodeMutualRecursionValidated(t *testing.T) {
	// chainA and chainB reference each other through a value field, so
	// neither may collapse to an always-valid plan: the link at depth
	// two must still be checked.
	b := &imageBuilder{}
	b.word(8).word(0) // nil sentinel behind one hop
	_, err := Decode[chainA](b.finish())
	require.ErrorIs(t, err, ErrNilIndirection)

	b = &imageBuilder{}
	b.word(8).word(0xDEA8) // aligned but far past the buffer
	_, err = Decode[chainA](b.finish())
	require.ErrorIs(t, err, ErrOutOfBounds)

	b = &imageBuilder{}
	b.word(8).word(8) // second link points back at itself
	_, err = Decode[chainA](b.finish())
	require.ErrorIs(t, err, ErrBackwardOffset)
}

func TestDecodeOverlapRejected(t *testing.T) {
	type record struct {
		A *uint64
		B *uint64
	}
	b := &imageBuilder{}
	b.word(16).word(16) // both reference the same region
	b.u64(5)
	_, err := Decode[record](b.finish())
	require.ErrorIs(t, err, ErrBackwardOffset)
}

func TestSecondDecodeFails(t *testing.T) {
	type record struct {
		N *uint64
	}
	b := &imageBuilder{}
	b.word(8)
	b.u64(9)
	buf := b.finish()

	_, err := Decode[record](buf)
	require.NoError(t, err)
	// the rebind left an absolute address in the offset word; the
	// buffer must be discarded, not decoded again
	_, err = Decode[record](buf)
	require.Error(t, err)
}

func TestDecodeValueDynamicShape(t *testing.T) {
	type record struct {
		ID   uint64
		Name string
	}
	b := &imageBuilder{}
	b.u64(3).word(24).word(2)
	b.bytes([]byte("ok"))
	buf := b.finish()

	v, err := DecodeValue(buf, reflect.TypeOf((*record)(nil)).Elem())
	require.NoError(t, err)
	res, ok := v.(*record)
	require.True(t, ok)
	require.Equal(t, uint64(3), res.ID)
	require.Equal(t, "ok", res.Name)
}

func TestDecodeFixedRoundTrip(t *testing.T) {
	type intsOnly struct {
		A uint64
		B int32
		C uint16
		D int8
		E uint8
	}
	condition := func(v intsOnly) bool {
		b := &imageBuilder{}
		appendMem(b, v)
		res, err := Decode[intsOnly](b.finish())
		require.NoError(t, err)
		return assert.ObjectsAreEqual(v, *res)
	}
	err := quick.Check(condition, &quick.Config{})
	require.NoError(t, err)
}

type fuzzRecord struct {
	Flag  bool
	Tag   Ordering
	Ratio float64
	Name  string
	Vals  []uint32
}

func FuzzDecode(f *testing.F) {
	// root is 56 bytes: Flag, Tag, pad, Ratio, Name header, Vals header
	valid := &imageBuilder{}
	valid.bytes([]byte{1, 2}).pad(8).u64(0x3FF0000000000000)
	valid.word(56).word(4)
	valid.word(60).word(2).word(0)
	valid.bytes([]byte("name"))
	valid.u32(1).u32(2)
	f.Add(valid.data)
	f.Add([]byte{})
	f.Add([]byte{0x02})
	f.Add(make([]byte, 48))

	f.Fuzz(func(t *testing.T, data []byte) {
		b := &imageBuilder{data: append([]byte(nil), data...)}
		res, err := Decode[fuzzRecord](b.finish())
		if err != nil {
			return
		}
		// whatever certifies must honor the leaf domains
		require.True(t, utf8.ValidString(res.Name))
		require.True(t, res.Tag <= Greater)
	})
}
