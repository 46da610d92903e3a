package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Protocol-Lattice/docent/pkg/schema"
)

const (
	minTreeDepth = 1
	maxTreeDepth = 3
)

// TreeSchema declares the directory listing tool.
var TreeSchema = schema.MustNew("tree",
	"Lists the contents of a directory, optionally with the given recursive depth.",
	schema.Arg("path").
		Help("The path to the directory to list.").
		Required().
		Default(".").
		Example("/path/to/directory"),
	schema.Arg("depth").
		Type(schema.TypeInteger).
		Help("The maximum depth to recurse into the directory (clamped to [1, 3]).").
		Default(2).
		Example(1),
)

// TreeArgs is the decoded argument record of the tree tool.
type TreeArgs struct {
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

// NewTree returns the directory listing tool.
func NewTree(opts ...FSOption) Tool {
	cfg := defaultFSConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return Typed(TreeSchema, func(ctx context.Context, args TreeArgs) (string, error) {
		return cfg.tree(ctx, args)
	})
}

func (c fsConfig) tree(ctx context.Context, args TreeArgs) (string, error) {
	dir, err := c.resolve(args.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}

	depth := min(max(args.Depth, minTreeDepth), maxTreeDepth)

	w := &treeWriter{limit: c.maxLines}
	w.line(0, dir+string(filepath.Separator))
	if err := w.walk(ctx, dir, 1, depth); err != nil {
		return "", err
	}
	if w.truncated {
		fmt.Fprintf(&w.sb, "... (truncated after %d entries)\n", c.maxLines)
	}
	return w.sb.String(), nil
}

type treeWriter struct {
	sb        strings.Builder
	lines     int
	limit     int
	truncated bool
}

func (w *treeWriter) line(level int, name string) bool {
	if w.lines >= w.limit {
		w.truncated = true
		return false
	}
	w.sb.WriteString(strings.Repeat("  ", level))
	w.sb.WriteString(name)
	w.sb.WriteByte('\n')
	w.lines++
	return true
}

func (w *treeWriter) walk(ctx context.Context, dir string, level, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.IsDir() {
			if !w.line(level, name) {
				return nil
			}
			continue
		}
		if !w.line(level, name+"/") {
			return nil
		}
		if level < depth {
			if err := w.walk(ctx, filepath.Join(dir, name), level+1, depth); err != nil {
				// unreadable subdirectories are listed but not expanded
				if ctx.Err() != nil {
					return err
				}
			}
		}
		if w.truncated {
			return nil
		}
	}
	return nil
}
