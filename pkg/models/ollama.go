package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	ollama "github.com/ollama/ollama/api"

	"github.com/Protocol-Lattice/docent/pkg/stream"
)

const ollamaDefaultHost = "http://localhost:11434"

// Ollama streams from a local Ollama server. Thinking output becomes
// reasoning spans.
type Ollama struct {
	client *ollama.Client
}

// NewOllama targets host, falling back to OLLAMA_HOST and then the local
// default.
func NewOllama(host string, client *http.Client) (*Ollama, error) {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = ollamaDefaultHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Ollama{client: ollama.NewClient(u, client)}, nil
}

func (o *Ollama) Stream(ctx context.Context, req Request, sink Sink) error {
	cfg := req.Config
	streaming := true
	chat := &ollama.ChatRequest{
		Model:    cfg.Model,
		Messages: make([]ollama.Message, 0, len(req.Messages)),
		Stream:   &streaming,
		Options:  ollamaOptions(cfg),
	}
	for _, m := range req.Messages {
		chat.Messages = append(chat.Messages, ollama.Message{Role: m.Role, Content: m.Content})
	}

	err := o.client.Chat(ctx, chat, func(resp ollama.ChatResponse) error {
		sink.Apply(stream.Delta{Reasoning: resp.Message.Thinking, Content: resp.Message.Content})
		return nil
	})
	if err != nil {
		return fmt.Errorf("ollama chat: %w", err)
	}
	return nil
}

func ollamaOptions(cfg GenerationConfig) map[string]any {
	opts := map[string]any{}
	if cfg.MaxTokens > 0 {
		opts["num_predict"] = cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		opts["temperature"] = *cfg.Temperature
	}
	if cfg.TopP != nil {
		opts["top_p"] = *cfg.TopP
	}
	if cfg.TopK != nil {
		opts["top_k"] = *cfg.TopK
	}
	if cfg.FrequencyPenalty != nil {
		opts["frequency_penalty"] = *cfg.FrequencyPenalty
	}
	return opts
}

func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	resp, err := o.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama list: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
