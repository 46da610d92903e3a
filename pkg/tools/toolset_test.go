package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Protocol-Lattice/docent/pkg/schema"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Text string `json:"text"`
}

var echoSchema = schema.MustNew("echo", "Echoes text.",
	schema.Arg("text").Required().Example("hello"),
)

func echoTool() Tool {
	return Typed(echoSchema, func(_ context.Context, args echoArgs) (string, error) {
		return args.Text, nil
	})
}

func builtinSet(t *testing.T) *ToolSet {
	t.Helper()
	ts := NewToolSet()
	require.NoError(t, ts.Register(NewRead()))
	require.NoError(t, ts.Register(NewTree()))
	return ts
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ts := NewToolSet()
	require.NoError(t, ts.Register(echoTool()))
	err := ts.Register(echoTool())
	require.ErrorIs(t, err, ErrDuplicateTool)
	require.Equal(t, 1, ts.Len())

	require.Error(t, ts.Register(nil))
}

func TestInvokeUnknownToolLeavesRegistryUnchanged(t *testing.T) {
	ts := builtinSet(t)
	before := ts.Help()

	_, err := ts.Invoke(context.Background(), "frobnicate", json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrUnknownTool)

	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "frobnicate", unknown.Name)

	require.Equal(t, []string{"read", "tree"}, ts.Names())
	require.Equal(t, before, ts.Help())
}

func TestInvokeCanonicalizesArguments(t *testing.T) {
	ts := NewToolSet()
	require.NoError(t, ts.Register(echoTool()))

	out, err := ts.Invoke(context.Background(), "echo", json.RawMessage(`{"text":"hi","extra":1}`))
	require.NoError(t, err)
	require.Equal(t, "hi", out)

	_, err = ts.Invoke(context.Background(), "echo", json.RawMessage(`{}`))
	require.ErrorIs(t, err, schema.ErrMissingArgument)

	_, err = ts.Invoke(context.Background(), "echo", json.RawMessage(`{"text":42}`))
	require.ErrorIs(t, err, schema.ErrArgumentDecode)
}

func TestInvokePropagatesToolErrors(t *testing.T) {
	boom := errors.New("boom")
	ts := NewToolSet()
	require.NoError(t, ts.Register(Typed(echoSchema, func(context.Context, echoArgs) (string, error) {
		return "", boom
	})))
	_, err := ts.Invoke(context.Background(), "echo", json.RawMessage(`{"text":"x"}`))
	require.ErrorIs(t, err, boom)
}

func TestInvokeBusyToolFailsFast(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	slow := schema.MustNew("slow", "", schema.Arg("n").Type(schema.TypeInteger).Default(0))
	ts := NewToolSet()
	require.NoError(t, ts.Register(Typed(slow, func(context.Context, struct {
		N int `json:"n"`
	}) (string, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return "done", nil
	})))
	require.NoError(t, ts.Register(echoTool()))

	type result struct {
		out string
		err error
	}
	first := make(chan result, 1)
	go func() {
		out, err := ts.Invoke(context.Background(), "slow", nil)
		first <- result{out, err}
	}()
	<-entered

	_, err := ts.Invoke(context.Background(), "slow", nil)
	require.ErrorIs(t, err, ErrToolBusy)

	// other tools are not blocked by the running one
	out, err := ts.Invoke(context.Background(), "echo", json.RawMessage(`{"text":"free"}`))
	require.NoError(t, err)
	require.Equal(t, "free", out)

	close(release)
	res := <-first
	require.NoError(t, res.err)
	require.Equal(t, "done", res.out)

	out, err = ts.Invoke(context.Background(), "slow", nil)
	require.NoError(t, err)
	require.Equal(t, "done", out)
}

func TestHelpDocuments(t *testing.T) {
	ts := builtinSet(t)
	help := ts.Help()
	require.Len(t, help, 2)

	tree := help["tree"].(map[string]any)
	require.Equal(t, map[string]any{"path": "/path/to/directory", "depth": 1}, tree["example"])

	read := help["read"].(map[string]any)
	args := read["arguments"].(map[string]any)
	path := args["path"].(map[string]any)
	require.Equal(t, true, path["required"])
	require.NotContains(t, path, "default")
}
