package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Protocol-Lattice/docent/pkg/schema"
	utcptools "github.com/universal-tool-calling-protocol/go-utcp/src/tools"
)

// UTCPClient is the subset of the go-utcp client the bridge needs.
type UTCPClient interface {
	CallTool(ctx context.Context, toolName string, args map[string]any) (any, error)
	SearchTools(query string, limit int) ([]utcptools.Tool, error)
}

// LoadUTCP discovers tools through client and wraps each one so it can be
// registered in a ToolSet next to the built-in tools.
func LoadUTCP(ctx context.Context, client UTCPClient, query string, limit int) ([]Tool, error) {
	if client == nil {
		return nil, fmt.Errorf("utcp client is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := client.SearchTools(query, limit)
	if err != nil {
		return nil, fmt.Errorf("search utcp tools: %w", err)
	}
	out := make([]Tool, 0, len(found))
	for _, def := range found {
		s, serverDefaults, err := utcpSchema(def)
		if err != nil {
			return nil, err
		}
		out = append(out, &utcpTool{client: client, remote: def.Name, schema: s, serverDefaults: serverDefaults})
	}
	return out, nil
}

type utcpTool struct {
	client UTCPClient
	remote string
	schema *schema.Schema
	// optional arguments whose default is left to the remote side; they are
	// only forwarded when the caller sets them
	serverDefaults map[string]bool
}

func (u *utcpTool) Schema() *schema.Schema { return u.schema }

func (u *utcpTool) Invoke(ctx context.Context, raw json.RawMessage) (string, error) {
	given, err := schema.ParseObject(raw)
	if err != nil {
		return "", &schema.DecodeError{Tool: u.schema.Name(), Err: err}
	}
	args, err := schema.Canonicalize(u.schema, given)
	if err != nil {
		return "", err
	}
	for name := range u.serverDefaults {
		if _, ok := given[name]; !ok {
			delete(args, name)
		}
	}
	res, err := u.client.CallTool(ctx, u.remote, args)
	if err != nil {
		return "", err
	}
	return renderResult(res)
}

// utcpSchema maps a UTCP input schema onto a tool schema. UTCP does not
// carry examples, so required arguments get one synthesized from their type.
// Optional arguments without a declared default show the zero value of their
// type in help documents and are reported in serverDefaults.
func utcpSchema(def utcptools.Tool) (*schema.Schema, map[string]bool, error) {
	required := make(map[string]bool, len(def.Inputs.Required))
	for _, name := range def.Inputs.Required {
		required[name] = true
	}

	names := make([]string, 0, len(def.Inputs.Properties))
	for name := range def.Inputs.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]*schema.ArgumentBuilder, 0, len(names))
	serverDefaults := make(map[string]bool)
	for _, name := range names {
		prop, _ := def.Inputs.Properties[name].(map[string]any)
		typ, _ := prop["type"].(string)
		if typ == "" {
			typ = schema.TypeString
		}
		help, _ := prop["description"].(string)
		declared := prop["default"]

		b := schema.Arg(name).Type(typ)
		switch {
		case required[name]:
			b.Required().Example(placeholder(name, typ))
			if declared != nil {
				b.Default(declared)
			}
		case declared != nil:
			b.Default(declared)
		default:
			b.Default(zeroValue(typ))
			help = strings.TrimSpace(help + " Optional, server default when omitted.")
			serverDefaults[name] = true
		}
		args = append(args, b.Help(help))
	}
	s, err := schema.New(def.Name, def.Description, args...)
	if err != nil {
		return nil, nil, err
	}
	return s, serverDefaults, nil
}

func placeholder(name, typ string) any {
	if typ == schema.TypeString {
		return "<" + name + ">"
	}
	return zeroValue(typ)
}

func zeroValue(typ string) any {
	switch strings.ToLower(typ) {
	case schema.TypeInteger, schema.TypeNumber:
		return 0
	case schema.TypeBoolean:
		return false
	case schema.TypeArray:
		return []any{}
	case schema.TypeObject:
		return map[string]any{}
	default:
		return ""
	}
}

func renderResult(res any) (string, error) {
	switch v := res.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Sprint(res), nil
	}
	return string(data), nil
}
