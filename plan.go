package flatview

import (
	"fmt"
	"reflect"
	"sync"
)

type planKind uint8

const (
	// pkPending is the zero value: a placeholder for a type whose
	// compilation is still in progress. It must stay distinct from
	// pkNoop so the noop-collapse never treats a cycle member as
	// always-valid; every placeholder resolves before planFor returns.
	pkPending planKind = iota
	pkNoop             // every bit pattern is legal
	pkBool
	pkFloat32
	pkFloat64
	pkComplex64
	pkComplex128
	pkChar
	pkEnum
	pkNever
	pkString
	pkSlice
	pkPtr
	pkArray
	pkStruct
)

// plan is the compiled validation program for one reflect.Type. Plans
// are immutable after compilation and shared across decodes.
type plan struct {
	kind  planKind
	size  uintptr
	align uintptr

	elem   *plan       // slice, pointer and array element
	count  uintptr     // array length
	fields []fieldPlan // struct fields that need checking
	enum   *enumSet
	check  func([]byte) error // extra rule for byte view types
}

type fieldPlan struct {
	off uintptr
	sub *plan
}

var (
	charType    = reflect.TypeOf((*Char)(nil)).Elem()
	neverType   = reflect.TypeOf((*Never)(nil)).Elem()
	cstringType = reflect.TypeOf((*CString)(nil)).Elem()
)

var plans = struct {
	sync.RWMutex
	m map[reflect.Type]*plan
}{m: make(map[reflect.Type]*plan)}

// planFor returns the cached plan for t, compiling it on first use.
func planFor(t reflect.Type) (*plan, error) {
	plans.RLock()
	p, ok := plans.m[t]
	plans.RUnlock()
	if ok {
		return p, nil
	}

	plans.Lock()
	defer plans.Unlock()
	// Double-check: another goroutine may have compiled t meanwhile.
	if p, ok := plans.m[t]; ok {
		return p, nil
	}
	c := compiler{built: make(map[reflect.Type]*plan)}
	p, err := c.compile(t)
	if err != nil {
		return nil, err
	}
	for bt, bp := range c.built {
		plans.m[bt] = bp
	}
	return p, nil
}

// compiler holds the plans built during one planFor call. Entries
// start as placeholders so recursive types terminate; they are only
// published to the shared cache once the whole tree compiled.
type compiler struct {
	built map[reflect.Type]*plan
}

func (c *compiler) compile(t reflect.Type) (*plan, error) {
	if p, ok := plans.m[t]; ok {
		return p, nil
	}
	if p, ok := c.built[t]; ok {
		return p, nil
	}
	p := &plan{size: t.Size(), align: uintptr(t.Align())}
	c.built[t] = p

	if set := enumFor(t); set != nil {
		p.kind = pkEnum
		p.enum = set
		return p, nil
	}
	switch t {
	case charType:
		p.kind = pkChar
		return p, nil
	case neverType:
		p.kind = pkNever
		return p, nil
	case cstringType:
		p.kind = pkSlice
		p.elem = &plan{kind: pkNoop, size: 1, align: 1}
		p.check = checkNulTerminated
		return p, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		p.kind = pkBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr:
		p.kind = pkNoop
	case reflect.Float32:
		p.kind = pkFloat32
	case reflect.Float64:
		p.kind = pkFloat64
	case reflect.Complex64:
		p.kind = pkComplex64
	case reflect.Complex128:
		p.kind = pkComplex128
	case reflect.String:
		p.kind = pkString
	case reflect.Slice:
		elem, err := c.compile(t.Elem())
		if err != nil {
			return nil, err
		}
		p.kind = pkSlice
		p.elem = elem
	case reflect.Pointer:
		elem, err := c.compile(t.Elem())
		if err != nil {
			return nil, err
		}
		p.kind = pkPtr
		p.elem = elem
	case reflect.Array:
		elem, err := c.compile(t.Elem())
		if err != nil {
			return nil, err
		}
		if elem.kind == pkNoop {
			p.kind = pkNoop
			return p, nil
		}
		p.kind = pkArray
		p.elem = elem
		p.count = uintptr(t.Len())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			sub, err := c.compile(f.Type)
			if err != nil {
				return nil, err
			}
			if sub.kind == pkNoop {
				continue
			}
			p.fields = append(p.fields, fieldPlan{off: f.Offset, sub: sub})
		}
		if len(p.fields) == 0 {
			p.kind = pkNoop
			return p, nil
		}
		p.kind = pkStruct
	default:
		return nil, fmt.Errorf("%s: %w", t, ErrUnsupported)
	}
	return p, nil
}
