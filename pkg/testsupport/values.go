package testsupport

import "errors"

// ErrBroken is returned by BrokenValue.
var ErrBroken = errors.New("testsupport: value refuses to be encoded")

// BrokenValue fails every binary or msgpack encoding attempt.
type BrokenValue struct {
	Label string
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (BrokenValue) MarshalBinary() ([]byte, error) { return nil, ErrBroken }

// MarshalMsgpack implements msgpack.Marshaler.
func (BrokenValue) MarshalMsgpack() ([]byte, error) { return nil, ErrBroken }

// PanickyValue panics when encoded.
type PanickyValue struct{}

// MarshalBinary implements encoding.BinaryMarshaler.
func (PanickyValue) MarshalBinary() ([]byte, error) { panic("testsupport: encode exploded") }
