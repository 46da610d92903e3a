package models

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultURL is the chat completions endpoint used when none is configured.
const DefaultURL = "https://api.openai.com/v1/chat/completions"

// APIError is a non-2xx answer from the chat endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("chat endpoint returned %d: %s", e.StatusCode, e.Body)
}

// OpenAICompatible streams chat completions from any server implementing the
// OpenAI chat completions protocol.
type OpenAICompatible struct {
	url    string
	token  string
	http   *http.Client
	models *openai.Client
}

// NewOpenAICompatible targets the chat completions endpoint url. token is
// sent as a bearer token when non-empty; a nil client means
// http.DefaultClient.
func NewOpenAICompatible(url, token string, client *http.Client) *OpenAICompatible {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	cfg := openai.DefaultConfig(token)
	cfg.BaseURL = modelsBaseURL(url)
	cfg.HTTPClient = client
	return &OpenAICompatible{
		url:    url,
		token:  token,
		http:   client,
		models: openai.NewClientWithConfig(cfg),
	}
}

// modelsBaseURL derives the API root from the chat endpoint; the models
// listing lives at <root>/models. Query and fragment are dropped.
func modelsBaseURL(chatURL string) string {
	u, err := neturl.Parse(chatURL)
	if err != nil {
		return trimCompletions(chatURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = trimCompletions(u.Path)
	u.RawPath = ""
	return u.String()
}

func trimCompletions(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "/chat/completions")
	return strings.TrimSuffix(p, "/completions")
}

func (o *OpenAICompatible) Stream(ctx context.Context, req Request, sink Sink) error {
	body, err := req.Payload()
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if o.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if _, err := io.Copy(sink, resp.Body); err != nil {
		return fmt.Errorf("read chat stream: %w", err)
	}
	return nil
}

func (o *OpenAICompatible) ListModels(ctx context.Context) ([]string, error) {
	list, err := o.models.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
