// Package exprunit compiles expr-lang expressions into units that can be
// fingerprinted and cached.
//
// The instruction bytes of a Program are its expr bytecode: opcodes, their
// arguments and the constants pool. Its referenced names are the identifiers
// of the expression and its globals are the environment it runs against.
// Programs stored in the environment of another program are reduced to their
// own bytecode, so changing a helper changes the fingerprint of every caller.
package exprunit

import (
	"bytes"
	"encoding"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-precise-cache/canonical"
	"github.com/goliatone/go-precise-cache/fingerprint"
	"github.com/vmihailenco/msgpack/v5"
)

// Program is a compiled expression bound to an environment. The environment
// map is shared with the caller, not copied: later edits are seen by Run and
// by Globals.
type Program struct {
	name    string
	source  string
	env     map[string]any
	program *vm.Program
	code    []byte
	names   []string
}

var (
	_ fingerprint.Unit             = (*Program)(nil)
	_ fingerprint.CompiledDispatch = (*Program)(nil)
)

// Compile compiles source against env. The env is used for type checking and
// becomes the globals of the unit; opts are passed to expr.Compile after
// expr.Env.
func Compile(name, source string, env map[string]any, opts ...expr.Option) (*Program, error) {
	if env == nil {
		env = map[string]any{}
	}

	compiled, err := expr.Compile(source, append([]expr.Option{expr.Env(env)}, opts...)...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "compile expression "+name).
			WithTextCode("EXPR_COMPILE")
	}

	return &Program{
		name:    name,
		source:  source,
		env:     env,
		program: compiled,
		code:    encodeProgram(compiled),
		names:   identifiers(compiled.Node()),
	}, nil
}

// Code implements fingerprint.Unit.
func (p *Program) Code() []byte { return p.code }

// Names implements fingerprint.Unit.
func (p *Program) Names() []string { return p.names }

// Globals implements fingerprint.Unit.
func (p *Program) Globals() map[string]any { return p.env }

// CompiledUnit implements fingerprint.CompiledDispatch.
func (p *Program) CompiledUnit() fingerprint.Unit { return p }

// Name returns the name given to Compile.
func (p *Program) Name() string { return p.name }

// Source returns the expression text.
func (p *Program) Source() string { return p.source }

// VM returns the underlying expr program.
func (p *Program) VM() *vm.Program { return p.program }

// Run evaluates the program against its environment.
func (p *Program) Run() (any, error) {
	return p.RunWith(p.env)
}

// RunWith evaluates the program against env.
func (p *Program) RunWith(env map[string]any) (any, error) {
	out, err := expr.Run(p.program, env)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "run expression "+p.name).
			WithTextCode("EXPR_RUN")
	}
	return out, nil
}

// encodeProgram lays the bytecode out as a msgpack array of opcodes,
// arguments and constants. Constants that cannot be encoded contribute their
// type name only.
func encodeProgram(prog *vm.Program) []byte {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	ops := make([]byte, len(prog.Bytecode))
	for i, op := range prog.Bytecode {
		ops[i] = byte(op)
	}

	// writes to a bytes.Buffer do not fail
	_ = enc.EncodeArrayLen(3)
	_ = enc.EncodeBytes(ops)

	_ = enc.EncodeArrayLen(len(prog.Arguments))
	for _, arg := range prog.Arguments {
		_ = enc.EncodeInt(int64(arg))
	}

	_ = enc.EncodeArrayLen(len(prog.Constants))
	for _, c := range prog.Constants {
		_ = enc.Encode(msgpack.RawMessage(encodeConstant(c)))
	}

	return buf.Bytes()
}

func encodeConstant(c any) []byte {
	if tm, ok := c.(encoding.TextMarshaler); ok {
		if text, err := tm.MarshalText(); err == nil {
			return encodeString(fmt.Sprintf("%T:%s", c, text))
		}
	}
	if b, err := canonical.Encode(c); err == nil {
		return b
	}
	return encodeString(fmt.Sprintf("%T", c))
}

func encodeString(s string) []byte {
	b, _ := msgpack.Marshal(s)
	return b
}

type identifierVisitor struct {
	names []string
}

func (v *identifierVisitor) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		v.names = append(v.names, id.Value)
	}
}

// identifiers returns the identifiers of the tree in walk order. Names bound
// by let are included too; they only count when a global shares the name.
func identifiers(root ast.Node) []string {
	if root == nil {
		return nil
	}
	v := &identifierVisitor{}
	ast.Walk(&root, v)
	return v.names
}
