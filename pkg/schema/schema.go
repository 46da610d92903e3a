// Package schema declares the argument contract of a tool and canonicalizes
// untyped argument bags against it before they are decoded into typed records.
package schema

import (
	"fmt"
	"strings"
)

// Type tags understood by the help document. They follow JSON Schema naming
// so models recognise them without further explanation.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Argument describes one named argument of a tool. It is immutable once built.
type Argument struct {
	name     string
	help     string
	typ      string
	required bool
	def      any
	example  any
}

func (a Argument) Name() string   { return a.name }
func (a Argument) Help() string   { return a.help }
func (a Argument) Type() string   { return a.typ }
func (a Argument) Required() bool { return a.required }

// Default reports the default value and whether one was declared.
func (a Argument) Default() (any, bool) { return a.def, a.def != nil }

// Example reports the example value and whether one was declared.
func (a Argument) Example() (any, bool) { return a.example, a.example != nil }

// sample is the value used in example documents: example first, then default.
func (a Argument) sample() (any, bool) {
	if a.example != nil {
		return a.example, true
	}
	if a.def != nil {
		return a.def, true
	}
	return nil, false
}

func (a Argument) doc() map[string]any {
	doc := map[string]any{
		"type":     a.typ,
		"required": a.required,
	}
	if a.help != "" {
		doc["help"] = a.help
	}
	if a.def != nil {
		doc["default"] = a.def
	}
	if a.example != nil {
		doc["example"] = a.example
	}
	return doc
}

// ArgumentBuilder assembles an Argument.
//
//	schema.Arg("path").Help("Directory to list.").Required().Example("/tmp")
type ArgumentBuilder struct {
	arg Argument
}

// Arg starts a string-typed, optional argument.
func Arg(name string) *ArgumentBuilder {
	return &ArgumentBuilder{arg: Argument{name: strings.TrimSpace(name), typ: TypeString}}
}

func (b *ArgumentBuilder) Help(help string) *ArgumentBuilder {
	b.arg.help = help
	return b
}

func (b *ArgumentBuilder) Type(typ string) *ArgumentBuilder {
	b.arg.typ = typ
	return b
}

func (b *ArgumentBuilder) Required() *ArgumentBuilder {
	b.arg.required = true
	return b
}

func (b *ArgumentBuilder) Default(v any) *ArgumentBuilder {
	b.arg.def = v
	return b
}

func (b *ArgumentBuilder) Example(v any) *ArgumentBuilder {
	b.arg.example = v
	return b
}

// Build validates the argument. A required argument needs a default or an
// example so help documents can always show a value; an optional one needs a
// default.
func (b *ArgumentBuilder) Build() (Argument, error) {
	a := b.arg
	switch {
	case a.name == "":
		return Argument{}, fmt.Errorf("%w: argument name is empty", ErrInvalidSchema)
	case strings.TrimSpace(a.typ) == "":
		return Argument{}, fmt.Errorf("%w: argument %s has no type", ErrInvalidSchema, a.name)
	case a.required && a.def == nil && a.example == nil:
		return Argument{}, fmt.Errorf("%w: required argument %s needs a default or an example", ErrInvalidSchema, a.name)
	case !a.required && a.def == nil:
		return Argument{}, fmt.Errorf("%w: optional argument %s needs a default", ErrInvalidSchema, a.name)
	}
	return a, nil
}

// Schema is the declarative contract of a tool: its name, a short help text
// and the ordered argument list.
type Schema struct {
	name      string
	brief     string
	arguments []Argument
}

// New builds a schema. The name must be non-empty and argument names unique.
func New(name, brief string, args ...*ArgumentBuilder) (*Schema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tool name is empty", ErrInvalidSchema)
	}
	s := &Schema{name: name, brief: brief, arguments: make([]Argument, 0, len(args))}
	seen := make(map[string]struct{}, len(args))
	for _, b := range args {
		if b == nil {
			continue
		}
		arg, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		if _, dup := seen[arg.name]; dup {
			return nil, fmt.Errorf("%w: tool %s declares argument %s twice", ErrInvalidSchema, name, arg.name)
		}
		seen[arg.name] = struct{}{}
		s.arguments = append(s.arguments, arg)
	}
	return s, nil
}

// MustNew is New for package-level tool declarations; it panics on error.
func MustNew(name, brief string, args ...*ArgumentBuilder) *Schema {
	s, err := New(name, brief, args...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// Arguments returns a copy of the declared arguments in declaration order.
func (s *Schema) Arguments() []Argument {
	out := make([]Argument, len(s.arguments))
	copy(out, s.arguments)
	return out
}

// Example synthesizes one representative argument object. Arguments with
// neither an example nor a default are left out.
func (s *Schema) Example() map[string]any {
	example := make(map[string]any, len(s.arguments))
	for _, arg := range s.arguments {
		if v, ok := arg.sample(); ok {
			example[arg.name] = v
		}
	}
	return example
}

// Help renders the document advertised to the model for this tool.
func (s *Schema) Help() map[string]any {
	args := make(map[string]any, len(s.arguments))
	for _, arg := range s.arguments {
		args[arg.name] = arg.doc()
	}
	doc := map[string]any{
		"example":   s.Example(),
		"arguments": args,
	}
	if s.brief != "" {
		doc["help"] = s.brief
	}
	return doc
}
