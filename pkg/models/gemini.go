package models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Protocol-Lattice/docent/pkg/stream"
)

// Gemini streams from Google's Generative Language API.
type Gemini struct {
	client *genai.Client
}

// NewGemini builds a client. An empty token falls back to GOOGLE_API_KEY and
// then GEMINI_API_KEY.
func NewGemini(ctx context.Context, token string) (*Gemini, error) {
	if token == "" {
		token = os.Getenv("GOOGLE_API_KEY")
	}
	if token == "" {
		token = os.Getenv("GEMINI_API_KEY")
	}
	if token == "" {
		return nil, errors.New("missing token, GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(token))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) Stream(ctx context.Context, req Request, sink Sink) error {
	system, msgs := req.System()
	if len(msgs) == 0 {
		return errors.New("gemini: no messages to send")
	}
	model := g.client.GenerativeModel(strings.TrimPrefix(req.Config.Model, "models/"))
	configureGemini(model, req.Config, system)

	chat := model.StartChat()
	last := msgs[len(msgs)-1]
	for _, m := range msgs[:len(msgs)-1] {
		chat.History = append(chat.History, geminiContent(m))
	}

	iter := chat.SendMessageStream(ctx, genai.Text(last.Content))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					sink.Apply(stream.Delta{Content: string(text)})
				}
			}
		}
	}
}

// configureGemini copies generation settings onto model. Gemini has no
// frequency penalty; integer limits saturate at the API's int32 range.
func configureGemini(model *genai.GenerativeModel, cfg GenerationConfig, system string) {
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(min(cfg.MaxTokens, math.MaxInt32)))
	}
	if cfg.Temperature != nil {
		model.SetTemperature(float32(*cfg.Temperature))
	}
	if cfg.TopP != nil {
		model.SetTopP(float32(*cfg.TopP))
	}
	if cfg.TopK != nil {
		model.SetTopK(int32(min(*cfg.TopK, math.MaxInt32)))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
}

func geminiContent(m Message) *genai.Content {
	role := "user"
	if m.Role == RoleAssistant {
		role = "model"
	}
	return &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}}
}

func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	iter := g.client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("gemini list models: %w", err)
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
}
