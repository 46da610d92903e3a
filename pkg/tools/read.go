package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/Protocol-Lattice/docent/pkg/schema"
)

// ReadSchema declares the file reading tool.
var ReadSchema = schema.MustNew("read",
	"Reads the contents of a text file. Every line is prefixed with its line number.",
	schema.Arg("path").
		Help("The path to the text file.").
		Required().
		Example("/path/to/file"),
)

// ReadArgs is the decoded argument record of the read tool.
type ReadArgs struct {
	Path string `json:"path"`
}

// NewRead returns the file reading tool.
func NewRead(opts ...FSOption) Tool {
	cfg := defaultFSConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return Typed(ReadSchema, func(ctx context.Context, args ReadArgs) (string, error) {
		return cfg.read(ctx, args)
	})
}

func (c fsConfig) read(ctx context.Context, args ReadArgs) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := c.resolve(args.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > c.maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, path, info.Size(), c.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, path)
	}
	return numberLines(string(data)), nil
}

// numberLines renders text as "LINE 00001: ..." lines. The numbering is what
// the documentation prompt's SEARCH blocks refer to.
func numberLines(text string) string {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	var sb strings.Builder
	sb.Grow(len(text) + len(lines)*12)
	for i, line := range lines {
		fmt.Fprintf(&sb, "LINE %05d: %s\n", i+1, line)
	}
	return sb.String()
}
