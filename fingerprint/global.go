package fingerprint

import "github.com/goliatone/go-precise-cache/canonical"

// Kind classifies a global value for hashing.
type Kind uint8

const (
	// KindPlain values contribute their canonical encoding, or nothing when
	// they cannot be encoded.
	KindPlain Kind = iota
	// KindWrapped values contribute the instructions of the definition they wrap.
	KindWrapped
	// KindCompiled values contribute the instructions of another compiled unit.
	KindCompiled
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindWrapped:
		return "wrapped"
	case KindCompiled:
		return "compiled"
	default:
		return "unknown"
	}
}

// Global is a classified global value. The zero value is a plain nil.
type Global struct {
	kind  Kind
	value any
	inner Unit
}

// Plain classifies v as a plain value.
func Plain(v any) Global {
	return Global{kind: KindPlain, value: v}
}

// Wrapped classifies u as a wrapped definition.
func Wrapped(u Unit) Global {
	return Global{kind: KindWrapped, inner: u}
}

// Compiled classifies u as another compiled unit.
func Compiled(u Unit) Global {
	return Global{kind: KindCompiled, inner: u}
}

// Classify maps an arbitrary global value onto a Global. Values that are
// already a Global are returned unchanged, so callers can force a
// classification by storing one in the globals mapping.
func Classify(v any) Global {
	switch t := v.(type) {
	case Global:
		return t
	case *Global:
		if t == nil {
			return Plain(nil)
		}
		return *t
	case WrappedDefinition:
		return Wrapped(t.WrappedUnit())
	case CompiledDispatch:
		return Compiled(t.CompiledUnit())
	case Unit:
		return Compiled(t)
	default:
		return Plain(v)
	}
}

// Kind returns the classification.
func (g Global) Kind() Kind { return g.kind }

// Value returns the plain value, nil for wrapped and compiled globals.
func (g Global) Value() any { return g.value }

// Unit returns the inner unit, nil for plain globals.
func (g Global) Unit() Unit { return g.inner }

// Contribution returns the bytes g adds to a fingerprint. The second result
// is false when g must be left out: an inner unit without instructions, or a
// plain value the encoder rejects.
func (g Global) Contribution(enc canonical.Encoder) ([]byte, bool) {
	switch g.kind {
	case KindWrapped, KindCompiled:
		if g.inner == nil {
			return nil, false
		}
		code := g.inner.Code()
		if len(code) == 0 {
			return nil, false
		}
		return code, true
	default:
		b, err := enc.Encode(g.value)
		if err != nil {
			return nil, false
		}
		return b, true
	}
}
