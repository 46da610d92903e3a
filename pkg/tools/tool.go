package tools

import (
	"context"
	"encoding/json"

	"github.com/Protocol-Lattice/docent/pkg/schema"
)

// Tool is a host capability the model can call by name.
type Tool interface {
	Schema() *schema.Schema
	Invoke(ctx context.Context, args json.RawMessage) (string, error)
}

// Typed adapts a function over a typed argument record into a Tool. Raw
// arguments are canonicalized against s and strictly decoded into T before fn
// runs, so fn only ever sees complete, well-typed input.
func Typed[T any](s *schema.Schema, fn func(ctx context.Context, args T) (string, error)) Tool {
	return &typedTool[T]{schema: s, fn: fn}
}

type typedTool[T any] struct {
	schema *schema.Schema
	fn     func(context.Context, T) (string, error)
}

func (t *typedTool[T]) Schema() *schema.Schema { return t.schema }

func (t *typedTool[T]) Invoke(ctx context.Context, raw json.RawMessage) (string, error) {
	var args T
	if err := schema.Decode(t.schema, raw, &args); err != nil {
		return "", err
	}
	return t.fn(ctx, args)
}
