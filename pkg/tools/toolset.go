package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Protocol-Lattice/docent/pkg/logging"
)

type entry struct {
	tool Tool
	// busy serialises invocations of one tool without blocking the others.
	busy sync.Mutex
}

// ToolSet is the name-keyed registry the control loop dispatches into.
type ToolSet struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *slog.Logger
}

// Option configures a ToolSet.
type Option func(*ToolSet)

// WithLogger routes invocation logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(ts *ToolSet) {
		if l != nil {
			ts.logger = l
		}
	}
}

// NewToolSet returns an empty registry.
func NewToolSet(opts ...Option) *ToolSet {
	ts := &ToolSet{
		entries: make(map[string]*entry),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// Register adds tool under its schema name. Registering a second tool with
// the same name is an error; the first registration stays in place.
func (ts *ToolSet) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	s := tool.Schema()
	if s == nil || s.Name() == "" {
		return fmt.Errorf("tool name is empty")
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.entries[s.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, s.Name())
	}
	ts.entries[s.Name()] = &entry{tool: tool}
	return nil
}

// MustRegister registers every tool and panics on the first failure. Meant
// for startup wiring of built-in tools.
func (ts *ToolSet) MustRegister(tools ...Tool) {
	for _, tool := range tools {
		if err := ts.Register(tool); err != nil {
			panic(err)
		}
	}
}

// Names lists registered tool names in sorted order.
func (ts *ToolSet) Names() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	names := make([]string, 0, len(ts.entries))
	for name := range ts.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ts *ToolSet) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.entries)
}

// Help maps every tool name to its help document, ready to be embedded in a
// system prompt.
func (ts *ToolSet) Help() map[string]any {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	help := make(map[string]any, len(ts.entries))
	for name, e := range ts.entries {
		help[name] = e.tool.Schema().Help()
	}
	return help
}

// Invoke runs the named tool with raw JSON arguments. Only the target tool is
// held for the duration of the call; a tool that is already running fails
// with ErrToolBusy instead of queueing.
func (ts *ToolSet) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	ts.mu.RLock()
	e, ok := ts.entries[name]
	ts.mu.RUnlock()
	if !ok {
		return "", &UnknownToolError{Name: name}
	}

	if !e.busy.TryLock() {
		return "", fmt.Errorf("%w: %s", ErrToolBusy, name)
	}
	defer e.busy.Unlock()

	start := time.Now()
	out, err := e.tool.Invoke(ctx, args)
	if err != nil {
		ts.logger.Debug("tool failed", "tool", name, "duration", time.Since(start), "err", err)
		return "", err
	}
	ts.logger.Debug("tool finished", "tool", name, "duration", time.Since(start), "bytes", len(out))
	return out, nil
}
