package fingerprint

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// ErrMalformedUnit reports a unit that is missing instructions or a globals
// mapping. It is an integration error, never a property of global values.
var ErrMalformedUnit = errors.New("fingerprint: malformed unit")

func malformed(reason string) error {
	return goerrors.Wrap(ErrMalformedUnit, goerrors.CategoryBadInput, "cannot fingerprint unit: "+reason).
		WithTextCode("MALFORMED_UNIT")
}

// inspect reads the structural attributes of u, failing loudly when any is
// missing.
func inspect(u Unit) (code []byte, names []string, globals map[string]any, err error) {
	if u == nil {
		return nil, nil, nil, malformed("unit is nil")
	}

	defer func() {
		if r := recover(); r != nil {
			code, names, globals = nil, nil, nil
			err = malformed(fmt.Sprintf("unit accessors panicked: %v", r))
		}
	}()

	code = u.Code()
	if len(code) == 0 {
		return nil, nil, nil, malformed("no instruction bytes")
	}
	globals = u.Globals()
	if globals == nil {
		return nil, nil, nil, malformed("no globals mapping")
	}
	return code, u.Names(), globals, nil
}
