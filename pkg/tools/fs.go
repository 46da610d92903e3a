package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// FSOption configures the filesystem tools.
type FSOption func(*fsConfig)

type fsConfig struct {
	root     string
	maxBytes int64
	maxLines int
}

func defaultFSConfig() fsConfig {
	return fsConfig{maxBytes: 1 << 20, maxLines: 2000}
}

// WithRoot confines the tool to paths under dir. Relative paths resolve
// against dir instead of the process working directory.
func WithRoot(dir string) FSOption {
	return func(c *fsConfig) {
		if abs, err := filepath.Abs(dir); err == nil {
			c.root = abs
		}
	}
}

// WithMaxBytes caps the size of files the read tool accepts.
func WithMaxBytes(n int64) FSOption {
	return func(c *fsConfig) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithMaxEntries caps the number of lines the tree tool emits.
func WithMaxEntries(n int) FSOption {
	return func(c *fsConfig) {
		if n > 0 {
			c.maxLines = n
		}
	}
}

func (c fsConfig) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) && c.root != "" {
		path = filepath.Join(c.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if c.root == "" {
		return abs, nil
	}
	root, err := realPath(c.root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", c.root, err)
	}
	resolved, err := realPath(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, nil
}

// realPath follows symlinks in path. A missing tail is resolved through its
// deepest existing ancestor and joined back on.
func realPath(path string) (string, error) {
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", err
		}
		missing = append([]string{filepath.Base(path)}, missing...)
		path = parent
	}
}
