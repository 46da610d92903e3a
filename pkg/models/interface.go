// Package models talks to chat completion backends and feeds their streamed
// output into a Sink.
package models

import (
	"context"
	"encoding/json"

	"github.com/Protocol-Lattice/docent/pkg/stream"
	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/sjson"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one role-tagged conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationConfig holds the sampling parameters sent with every request.
// Nil optional fields are left out of the payload so the server default
// applies.
type GenerationConfig struct {
	Model            string   `json:"model"`
	Stream           bool     `json:"stream"`
	MaxTokens        uint64   `json:"max_tokens"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             *uint64  `json:"top_k,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

// Clone returns a copy that shares no pointers with c.
func (c GenerationConfig) Clone() GenerationConfig {
	out := c
	out.Temperature = clonePtr(c.Temperature)
	out.TopP = clonePtr(c.TopP)
	out.TopK = clonePtr(c.TopK)
	out.FrequencyPenalty = clonePtr(c.FrequencyPenalty)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Request is one chat turn: the configuration snapshot plus the full
// message list, system message first.
type Request struct {
	Config   GenerationConfig
	Messages []Message
}

// Payload renders the OpenAI-compatible request body. Streaming is always
// requested.
func (r Request) Payload() ([]byte, error) {
	cfg := r.Config
	cfg.Stream = true
	body, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	msgs := r.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return sjson.SetBytes(body, "messages", msgs)
}

// System returns the content of the leading system message, if any, and the
// remaining messages.
func (r Request) System() (string, []Message) {
	if len(r.Messages) > 0 && r.Messages[0].Role == RoleSystem {
		return r.Messages[0].Content, r.Messages[1:]
	}
	return "", r.Messages
}

// Sink receives a streamed response. Backends that speak the raw event
// stream write its bytes; SDK-based backends apply decoded deltas.
// *stream.Decoder implements Sink.
type Sink interface {
	Write(p []byte) (int, error)
	Apply(delta stream.Delta)
}

// Backend is a chat completion provider.
type Backend interface {
	// Stream performs exactly one request and blocks until the response is
	// fully delivered to sink or fails.
	Stream(ctx context.Context, req Request, sink Sink) error
	ListModels(ctx context.Context) ([]string, error)
}

var _ Sink = (*stream.Decoder)(nil)
