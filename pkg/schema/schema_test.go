package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func treeSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := New("tree", "Lists a directory.",
		Arg("path").Help("Directory to list.").Required().Default(".").Example("/path/to/directory"),
		Arg("depth").Type(TypeInteger).Default(2).Example(1),
	)
	require.NoError(t, err)
	return s
}

func TestBuildRejectsInvalidArguments(t *testing.T) {
	cases := map[string]*ArgumentBuilder{
		"empty name":               Arg(" ").Default(1),
		"required without values":  Arg("path").Required(),
		"optional without default": Arg("depth").Example(1),
		"blank type":               Arg("x").Type("").Default(1),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := b.Build()
			require.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestNewRejectsDuplicatesAndEmptyName(t *testing.T) {
	_, err := New("", "x")
	require.ErrorIs(t, err, ErrInvalidSchema)

	_, err = New("dup", "x", Arg("a").Default(1), Arg("a").Default(2))
	require.ErrorIs(t, err, ErrInvalidSchema)
}

func TestHelpOmitsAbsentValues(t *testing.T) {
	s, err := New("read", "Reads a file.",
		Arg("path").Required().Example("/path/to/file"),
		Arg("limit").Type(TypeInteger).Default(100),
	)
	require.NoError(t, err)

	help := s.Help()
	args := help["arguments"].(map[string]any)

	path := args["path"].(map[string]any)
	require.Equal(t, "string", path["type"])
	require.Equal(t, true, path["required"])
	require.Equal(t, "/path/to/file", path["example"])
	require.NotContains(t, path, "default")

	limit := args["limit"].(map[string]any)
	require.Equal(t, 100, limit["default"])
	require.NotContains(t, limit, "example")

	require.Equal(t, map[string]any{"path": "/path/to/file", "limit": 100}, help["example"])
	require.Equal(t, "Reads a file.", help["help"])
}

func TestExamplePrefersExampleOverDefault(t *testing.T) {
	s := treeSchema(t)
	require.Equal(t, map[string]any{"path": "/path/to/directory", "depth": 1}, s.Example())
}

func TestCanonicalizeFillsDefaultsAndDropsUnknown(t *testing.T) {
	s := treeSchema(t)
	out, err := Canonicalize(s, map[string]any{"depth": "three", "colour": "blue"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"path": ".", "depth": "three"}, out)
}

func TestCanonicalizeMissingRequired(t *testing.T) {
	s, err := New("read", "", Arg("path").Required().Example("/a"), Arg("n").Default(1))
	require.NoError(t, err)

	_, err = Canonicalize(s, map[string]any{"n": 3})
	require.ErrorIs(t, err, ErrMissingArgument)

	var missing *MissingArgumentError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "path", missing.Name)
}

// Random schemas and bags: the output never carries undeclared keys, a
// missing required argument without default is always reported by name, and
// the example document always canonicalizes.
func TestCanonicalizeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var builders []*ArgumentBuilder
		n := rng.Intn(5) + 1
		for j := 0; j < n; j++ {
			b := Arg(fmt.Sprintf("a%d", j))
			switch rng.Intn(3) {
			case 0:
				b.Required().Example(j)
			case 1:
				b.Required().Default(j)
			default:
				b.Default(j)
			}
			builders = append(builders, b)
		}
		s, err := New("t", "", builders...)
		require.NoError(t, err)

		raw := map[string]any{}
		for j := 0; j < n+2; j++ {
			if rng.Intn(2) == 0 {
				raw[fmt.Sprintf("a%d", j)] = j
			}
		}
		raw["extra"] = true

		out, err := Canonicalize(s, raw)
		if err != nil {
			var missing *MissingArgumentError
			require.True(t, errors.As(err, &missing))
			var arg Argument
			for _, a := range s.Arguments() {
				if a.Name() == missing.Name {
					arg = a
				}
			}
			require.True(t, arg.Required())
			_, hasDefault := arg.Default()
			require.False(t, hasDefault)
			require.NotContains(t, raw, missing.Name)
		} else {
			declared := map[string]bool{}
			for _, a := range s.Arguments() {
				declared[a.Name()] = true
			}
			for k := range out {
				require.True(t, declared[k], "undeclared key %s", k)
			}
		}

		_, err = Canonicalize(s, s.Example())
		require.NoError(t, err)
	}
}

type treeArgs struct {
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

func TestDecodeStrict(t *testing.T) {
	s := treeSchema(t)

	var args treeArgs
	require.NoError(t, Decode(s, json.RawMessage(`{"depth": 3, "ignored": 1}`), &args))
	require.Equal(t, treeArgs{Path: ".", Depth: 3}, args)

	args = treeArgs{}
	require.NoError(t, Decode(s, nil, &args))
	require.Equal(t, treeArgs{Path: ".", Depth: 2}, args)

	err := Decode(s, json.RawMessage(`{"depth": "deep"}`), &args)
	require.ErrorIs(t, err, ErrArgumentDecode)

	err = Decode(s, json.RawMessage(`["not", "an", "object"]`), &args)
	require.ErrorIs(t, err, ErrArgumentDecode)
}

func TestDecodeRejectsFieldsMissingFromRecord(t *testing.T) {
	s := treeSchema(t)
	var narrow struct {
		Path string `json:"path"`
	}
	err := Decode(s, json.RawMessage(`{}`), &narrow)
	require.ErrorIs(t, err, ErrArgumentDecode)
}
