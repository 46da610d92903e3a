package models

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Settings selects and configures a backend.
type Settings struct {
	// Provider is one of openai (default), anthropic, gemini, ollama or dummy.
	Provider string
	URL      string
	Token    string
	// HTTPClient is used by the HTTP based backends; nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// NewBackend constructs the backend named by s.Provider.
func NewBackend(ctx context.Context, s Settings) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", "openai":
		return NewOpenAICompatible(s.URL, s.Token, s.HTTPClient), nil
	case "anthropic", "claude":
		return NewAnthropic(s.Token, s.URL), nil
	case "gemini", "google":
		return NewGemini(ctx, s.Token)
	case "ollama":
		return NewOllama(s.URL, s.HTTPClient)
	case "dummy":
		return NewDummy(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", s.Provider)
	}
}

var (
	_ Backend = (*OpenAICompatible)(nil)
	_ Backend = (*Anthropic)(nil)
	_ Backend = (*Gemini)(nil)
	_ Backend = (*Ollama)(nil)
)
