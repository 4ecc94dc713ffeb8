package canonical

import (
	"bytes"
	"encoding"
	"reflect"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultMaxDepth bounds how deep the encoder follows nested values.
const DefaultMaxDepth = 64

// Encoder turns a value into a deterministic byte sequence, or reports that
// the value has none.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Option configures the default encoder.
type Option func(*msgpackEncoder)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(e *msgpackEncoder) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// msgpackEncoder walks values with reflection and writes them as msgpack.
// Map entries are sorted by their encoded key bytes and struct fields are
// written in declaration order, so equal values always produce equal bytes.
type msgpackEncoder struct {
	maxDepth int
}

// NewEncoder creates the default msgpack backed Encoder.
func NewEncoder(opts ...Option) Encoder {
	e := &msgpackEncoder{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEncoder = NewEncoder()

// Encode encodes v with the default encoder.
func Encode(v any) ([]byte, error) {
	return defaultEncoder.Encode(v)
}

// Encode implements Encoder.
func (e *msgpackEncoder) Encode(v any) (out []byte, err error) {
	// user marshalers run inside the walk and may panic
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = marshalerFailed(reflect.TypeOf(v), r)
		}
	}()

	w := newWriter(e.maxDepth, make(map[visit]struct{}))
	if err := w.write(reflect.ValueOf(v), 0); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

type writer struct {
	buf      *bytes.Buffer
	enc      *msgpack.Encoder
	maxDepth int
	// references on the current path, used for cycle detection
	path map[visit]struct{}
}

func newWriter(maxDepth int, path map[visit]struct{}) *writer {
	buf := &bytes.Buffer{}
	return &writer{
		buf:      buf,
		enc:      msgpack.NewEncoder(buf),
		maxDepth: maxDepth,
		path:     path,
	}
}

var (
	timeType             = reflect.TypeOf(time.Time{})
	customEncoderType    = reflect.TypeOf((*msgpack.CustomEncoder)(nil)).Elem()
	msgpackMarshalerType = reflect.TypeOf((*msgpack.Marshaler)(nil)).Elem()
	binaryMarshalerType  = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
)

func (w *writer) write(rv reflect.Value, depth int) error {
	if depth > w.maxDepth {
		return tooDeep(w.maxDepth)
	}

	if !rv.IsValid() {
		return w.enc.EncodeNil()
	}

	kind := rv.Kind()
	if (kind == reflect.Ptr || kind == reflect.Interface || kind == reflect.Map || kind == reflect.Slice) && rv.IsNil() {
		return w.enc.EncodeNil()
	}

	if handled, err := w.delegate(rv); handled {
		return err
	}

	switch kind {
	case reflect.Ptr:
		return w.enter(rv, func() error {
			return w.write(rv.Elem(), depth+1)
		})

	case reflect.Interface:
		return w.write(rv.Elem(), depth)

	case reflect.Bool:
		return w.enc.EncodeBool(rv.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return w.enc.EncodeInt(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return w.enc.EncodeUint(rv.Uint())

	case reflect.Float32:
		return w.enc.EncodeFloat32(float32(rv.Float()))

	case reflect.Float64:
		return w.enc.EncodeFloat64(rv.Float())

	case reflect.String:
		return w.enc.EncodeString(rv.String())

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return w.enc.EncodeBytes(rv.Bytes())
		}
		return w.enter(rv, func() error {
			return w.writeList(rv, depth)
		})

	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return w.enc.EncodeBytes(b)
		}
		return w.writeList(rv, depth)

	case reflect.Map:
		return w.enter(rv, func() error {
			return w.writeMap(rv, depth)
		})

	case reflect.Struct:
		return w.writeStruct(rv, depth)
	}

	// Func, Chan, UnsafePointer, Complex64, Complex128
	return unsupported(rv.Type())
}

// delegate hands values with their own encoding to that encoding. Values
// reached through unexported fields cannot call their methods, so a type
// with its own encoding is unsupported there.
func (w *writer) delegate(rv reflect.Value) (bool, error) {
	t := rv.Type()
	if !rv.CanInterface() {
		if hasOwnEncoding(t) {
			return true, unsupported(t)
		}
		return false, nil
	}

	if t == timeType {
		return true, w.enc.EncodeTime(rv.Interface().(time.Time).UTC())
	}

	switch {
	case t.Implements(customEncoderType):
		// encode into a scratch buffer so a failing encoder leaves no partial output
		scratch := newWriter(w.maxDepth, w.path)
		if err := rv.Interface().(msgpack.CustomEncoder).EncodeMsgpack(scratch.enc); err != nil {
			return true, marshalerFailed(t, err)
		}
		return true, w.enc.Encode(msgpack.RawMessage(scratch.buf.Bytes()))

	case t.Implements(msgpackMarshalerType):
		b, err := rv.Interface().(msgpack.Marshaler).MarshalMsgpack()
		if err != nil {
			return true, marshalerFailed(t, err)
		}
		return true, w.enc.Encode(msgpack.RawMessage(b))

	case t.Implements(binaryMarshalerType):
		b, err := rv.Interface().(encoding.BinaryMarshaler).MarshalBinary()
		if err != nil {
			return true, marshalerFailed(t, err)
		}
		return true, w.enc.EncodeBytes(b)
	}

	return false, nil
}

func hasOwnEncoding(t reflect.Type) bool {
	return t == timeType ||
		t.Implements(customEncoderType) ||
		t.Implements(msgpackMarshalerType) ||
		t.Implements(binaryMarshalerType)
}

// enter records rv on the current path for the duration of fn.
func (w *writer) enter(rv reflect.Value, fn func() error) error {
	key := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if _, ok := w.path[key]; ok {
		return cycle(rv.Type())
	}
	w.path[key] = struct{}{}
	defer delete(w.path, key)
	return fn()
}

func (w *writer) writeList(rv reflect.Value, depth int) error {
	n := rv.Len()
	if err := w.enc.EncodeArrayLen(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.write(rv.Index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

type entry struct {
	key   []byte
	value []byte
}

func (w *writer) writeMap(rv reflect.Value, depth int) error {
	entries := make([]entry, 0, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		k := newWriter(w.maxDepth, w.path)
		if err := k.write(iter.Key(), depth+1); err != nil {
			return err
		}
		v := newWriter(w.maxDepth, w.path)
		if err := v.write(iter.Value(), depth+1); err != nil {
			return err
		}
		entries = append(entries, entry{key: k.buf.Bytes(), value: v.buf.Bytes()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := bytes.Compare(entries[i].key, entries[j].key); c != 0 {
			return c < 0
		}
		// distinct keys can share an encoding, e.g. int(1) and int64(1) in map[any]
		return bytes.Compare(entries[i].value, entries[j].value) < 0
	})

	if err := w.enc.EncodeMapLen(len(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.enc.Encode(msgpack.RawMessage(e.key)); err != nil {
			return err
		}
		if err := w.enc.Encode(msgpack.RawMessage(e.value)); err != nil {
			return err
		}
	}
	return nil
}

// writeStruct writes [typeName, {field: value, ...}] over every field,
// unexported ones included.
func (w *writer) writeStruct(rv reflect.Value, depth int) error {
	rt := rv.Type()

	if err := w.enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := w.enc.EncodeString(rt.String()); err != nil {
		return err
	}
	if err := w.enc.EncodeMapLen(rt.NumField()); err != nil {
		return err
	}
	for i := 0; i < rt.NumField(); i++ {
		if err := w.enc.EncodeString(rt.Field(i).Name); err != nil {
			return err
		}
		if err := w.write(rv.Field(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}
