package exprunit

import (
	"github.com/goliatone/go-precise-cache/fingerprint"
)

// ArgsName is the environment entry Call binds its arguments to.
const ArgsName = "args"

// Func exposes a Program as a helper other expressions can call as
// name.Call([a, b]). The wrapped program reads its arguments from ArgsName,
// so it must be compiled with that entry present in its environment.
type Func struct {
	program *Program
}

var _ fingerprint.WrappedDefinition = (*Func)(nil)

// Wrap turns p into a callable helper.
func Wrap(p *Program) *Func {
	return &Func{program: p}
}

// WrappedUnit implements fingerprint.WrappedDefinition.
func (f *Func) WrappedUnit() fingerprint.Unit {
	if f == nil || f.program == nil {
		return nil
	}
	return f.program
}

// Name returns the name of the wrapped program.
func (f *Func) Name() string { return f.program.Name() }

// Call runs the wrapped program with args bound to ArgsName in a copy of its
// environment. Expressions pass args as a list literal; expr rejects
// variadic methods.
func (f *Func) Call(args []any) (any, error) {
	env := make(map[string]any, len(f.program.env)+1)
	for k, v := range f.program.env {
		env[k] = v
	}
	env[ArgsName] = args
	return f.program.RunWith(env)
}
