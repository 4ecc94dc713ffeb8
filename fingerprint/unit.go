package fingerprint

// Unit is a callable whose semantic inputs are fingerprinted: its encoded
// instructions, the names those instructions reference, and the global
// bindings visible to it.
type Unit interface {
	// Code returns the raw instruction bytes.
	Code() []byte
	// Names returns the identifiers referenced by the instructions, in
	// encounter order. Duplicates are allowed.
	Names() []string
	// Globals returns the bindings of the enclosing scope.
	Globals() map[string]any
}

// WrappedDefinition is implemented by values that wrap a user defined
// function whose own instructions are what matters, e.g. an annotated helper.
type WrappedDefinition interface {
	WrappedUnit() Unit
}

// CompiledDispatch is implemented by values that stand for another cacheable
// compiled function.
type CompiledDispatch interface {
	CompiledUnit() Unit
}

// Callable is an in-memory Unit.
type Callable struct {
	Bytecode   []byte
	Referenced []string
	Scope      map[string]any
}

var _ Unit = (*Callable)(nil)

// Code implements Unit.
func (c *Callable) Code() []byte { return c.Bytecode }

// Names implements Unit.
func (c *Callable) Names() []string { return c.Referenced }

// Globals implements Unit.
func (c *Callable) Globals() map[string]any { return c.Scope }

// CompiledUnit lets a Callable stored as a global of another Callable be
// reduced to its own instructions.
func (c *Callable) CompiledUnit() Unit { return c }
