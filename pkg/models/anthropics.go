package models

import (
	"context"
	"fmt"
	"math"
	"os"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Protocol-Lattice/docent/pkg/stream"
)

const anthropicDefaultMaxTokens = 4096

// Anthropic streams from the Messages API. Thinking deltas become reasoning
// spans.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic builds a client. An empty token falls back to
// ANTHROPIC_API_KEY; an empty baseURL keeps the SDK default.
func NewAnthropic(token, baseURL string) *Anthropic {
	if token == "" {
		token = os.Getenv("ANTHROPIC_API_KEY")
	}
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(token)}
	if baseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(baseURL))
	}
	return &Anthropic{client: anthropic.NewClient(opts...)}
}

func (a *Anthropic) Stream(ctx context.Context, req Request, sink Sink) error {
	system, msgs := req.System()
	cfg := req.Config

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: anthropicDefaultMaxTokens,
		Messages:  make([]anthropic.MessageParam, 0, len(msgs)),
	}
	if cfg.MaxTokens > 0 {
		params.MaxTokens = int64(min(cfg.MaxTokens, math.MaxInt64))
	}
	if cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		params.TopP = anthropic.Float(*cfg.TopP)
	}
	if cfg.TopK != nil {
		params.TopK = anthropic.Int(int64(min(*cfg.TopK, math.MaxInt64)))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	s := a.client.Messages.NewStreaming(ctx, params)
	defer s.Close()
	for s.Next() {
		event, ok := s.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		switch delta := event.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			sink.Apply(stream.Delta{Content: delta.Text})
		case anthropic.ThinkingDelta:
			sink.Apply(stream.Delta{Reasoning: delta.Thinking})
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("anthropic stream: %w", err)
	}
	return nil
}

func (a *Anthropic) ListModels(ctx context.Context) ([]string, error) {
	var ids []string
	iter := a.client.Models.ListAutoPaging(ctx, anthropic.ModelListParams{})
	for iter.Next() {
		ids = append(ids, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("anthropic list models: %w", err)
	}
	return ids, nil
}
