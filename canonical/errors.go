package canonical

import (
	"errors"
	"fmt"
	"reflect"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrUnsupported is returned for kinds that have no deterministic byte form
	// (funcs, channels, unsafe pointers, complex numbers).
	ErrUnsupported = errors.New("canonical: unsupported kind")

	// ErrCycle is returned when a pointer or map refers back to one of its ancestors.
	ErrCycle = errors.New("canonical: reference cycle")

	// ErrTooDeep is returned when nesting exceeds the configured max depth.
	ErrTooDeep = errors.New("canonical: nesting too deep")

	// ErrMarshaler wraps failures (errors or panics) raised by user marshalers.
	ErrMarshaler = errors.New("canonical: marshaler failed")
)

func unsupported(t reflect.Type) error {
	return goerrors.Wrap(ErrUnsupported, goerrors.CategoryBadInput, fmt.Sprintf("cannot encode value of type %s", t)).
		WithTextCode("CANONICAL_UNSUPPORTED")
}

func cycle(t reflect.Type) error {
	return goerrors.Wrap(ErrCycle, goerrors.CategoryBadInput, fmt.Sprintf("value of type %s refers to itself", t)).
		WithTextCode("CANONICAL_CYCLE")
}

func tooDeep(limit int) error {
	return goerrors.Wrap(ErrTooDeep, goerrors.CategoryBadInput, fmt.Sprintf("nesting exceeds %d levels", limit)).
		WithTextCode("CANONICAL_TOO_DEEP")
}

func marshalerFailed(t reflect.Type, cause any) error {
	return goerrors.Wrap(fmt.Errorf("%w: %v", ErrMarshaler, cause), goerrors.CategoryBadInput,
		fmt.Sprintf("marshaler for %s failed", t)).
		WithTextCode("CANONICAL_MARSHALER")
}
