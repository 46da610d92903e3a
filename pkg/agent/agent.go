// Package agent produces one model turn at a time from a rolling
// conversation and a mutable generation configuration.
package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/Protocol-Lattice/docent/pkg/logging"
	"github.com/Protocol-Lattice/docent/pkg/memory"
	"github.com/Protocol-Lattice/docent/pkg/models"
	"github.com/Protocol-Lattice/docent/pkg/stream"
)

const (
	DefaultHistory   = 20
	DefaultMaxTokens = 4096
)

// Agent composes the conversation buffer, the system prompt and a backend.
type Agent struct {
	backend models.Backend

	mu       sync.Mutex
	system   string
	capacity int
	history  *memory.Buffer
	config   models.GenerationConfig
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a new Agent.
type Option func(*Agent)

func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.system = prompt }
}

// WithHistory sets how many user and assistant messages are kept.
func WithHistory(capacity int) Option {
	return func(a *Agent) { a.capacity = capacity }
}

func WithGeneration(cfg models.GenerationConfig) Option {
	return func(a *Agent) { a.config = cfg.Clone() }
}

// WithProgress echoes every streamed increment to w while a turn is in
// flight.
func WithProgress(w io.Writer) Option {
	return func(a *Agent) { a.progress = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an agent over backend.
func New(backend models.Backend, opts ...Option) (*Agent, error) {
	if backend == nil {
		return nil, errors.New("agent requires a backend")
	}
	a := &Agent{
		backend:  backend,
		capacity: DefaultHistory,
		config:   models.GenerationConfig{MaxTokens: DefaultMaxTokens},
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.config.Stream = true
	a.history = memory.NewBuffer(a.capacity)
	return a, nil
}

// Post sends the system prompt and the buffered conversation as one request
// and returns the reassembled response text. It makes exactly one request;
// the caller decides whether to retry.
func (a *Agent) Post(ctx context.Context) (string, error) {
	a.mu.Lock()
	req := models.Request{Config: a.config.Clone(), Messages: a.messagesLocked()}
	progress := a.progress
	a.mu.Unlock()

	var onDelta func(string)
	if progress != nil {
		onDelta = func(s string) { _, _ = io.WriteString(progress, s) }
	}
	dec := stream.NewDecoder(onDelta, stream.WithLogger(a.logger))

	a.logger.Debug("posting turn", "model", req.Config.Model, "messages", len(req.Messages))
	if err := a.backend.Stream(ctx, req, dec); err != nil {
		return "", err
	}
	dec.Flush()
	return dec.Text(), nil
}

func (a *Agent) messagesLocked() []models.Message {
	buffered := a.history.Messages()
	if strings.TrimSpace(a.system) == "" {
		return buffered
	}
	msgs := make([]models.Message, 0, len(buffered)+1)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: a.system})
	return append(msgs, buffered...)
}

// AddMessage appends to the conversation, evicting the oldest message once
// the buffer is full.
func (a *Agent) AddMessage(role, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history.Add(models.Message{Role: role, Content: content})
}

// ClearMessages empties the conversation. The system prompt and the
// generation configuration are kept.
func (a *Agent) ClearMessages() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history.Clear()
}

// History returns the buffered conversation, oldest first.
func (a *Agent) History() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Messages()
}

func (a *Agent) SetSystemPrompt(prompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.system = prompt
}

func (a *Agent) SystemPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.system
}

// ListModels asks the backend for available model ids. Failures are logged
// and reported as an empty list.
func (a *Agent) ListModels(ctx context.Context) []string {
	ids, err := a.backend.ListModels(ctx)
	if err != nil {
		a.logger.Warn("listing models failed", "err", err)
		return []string{}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}
