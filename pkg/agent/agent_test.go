package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/docent/pkg/models"
	"github.com/Protocol-Lattice/docent/pkg/stream"
	"github.com/stretchr/testify/require"
)

type failingBackend struct{ err error }

func (f failingBackend) Stream(context.Context, models.Request, models.Sink) error { return f.err }
func (f failingBackend) ListModels(context.Context) ([]string, error)             { return nil, f.err }

type deltaBackend struct{ deltas []stream.Delta }

func (d deltaBackend) Stream(_ context.Context, _ models.Request, sink models.Sink) error {
	for _, delta := range d.deltas {
		sink.Apply(delta)
	}
	return nil
}

func (d deltaBackend) ListModels(context.Context) ([]string, error) { return nil, nil }

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestPostSendsSystemPromptFirst(t *testing.T) {
	backend := models.NewDummy("", "reply")
	a, err := New(backend,
		WithSystemPrompt("be brief"),
		WithGeneration(models.GenerationConfig{Model: "m", MaxTokens: 64}),
	)
	require.NoError(t, err)
	a.AddMessage(models.RoleUser, "hello")

	out, err := a.Post(context.Background())
	require.NoError(t, err)
	require.Equal(t, "reply", out)

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: "be brief"},
		{Role: models.RoleUser, Content: "hello"},
	}, reqs[0].Messages)
	require.Equal(t, "m", reqs[0].Config.Model)
	require.True(t, reqs[0].Config.Stream)

	// Post does not record the reply itself
	require.Len(t, a.History(), 1)
}

func TestPostWithoutSystemPrompt(t *testing.T) {
	backend := models.NewDummy("")
	a, err := New(backend)
	require.NoError(t, err)
	a.AddMessage(models.RoleUser, "x")

	_, err = a.Post(context.Background())
	require.NoError(t, err)
	require.Equal(t, []models.Message{{Role: models.RoleUser, Content: "x"}}, backend.Requests()[0].Messages)
	require.Equal(t, uint64(DefaultMaxTokens), backend.Requests()[0].Config.MaxTokens)
}

func TestPostEchoesProgress(t *testing.T) {
	var live strings.Builder
	a, err := New(deltaBackend{deltas: []stream.Delta{{Reasoning: "r"}, {Content: "c"}}}, WithProgress(&live))
	require.NoError(t, err)

	out, err := a.Post(context.Background())
	require.NoError(t, err)
	require.Equal(t, "<think>\nr</think>\nc", out)
	require.Equal(t, out, live.String())
}

func TestPostPropagatesTransportErrors(t *testing.T) {
	boom := errors.New("connection refused")
	a, err := New(failingBackend{err: boom})
	require.NoError(t, err)

	_, err = a.Post(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestHistoryIsBounded(t *testing.T) {
	a, err := New(models.NewDummy(""), WithHistory(2))
	require.NoError(t, err)
	a.AddMessage(models.RoleUser, "1")
	a.AddMessage(models.RoleAssistant, "2")
	a.AddMessage(models.RoleUser, "3")
	require.Equal(t, []models.Message{
		{Role: models.RoleAssistant, Content: "2"},
		{Role: models.RoleUser, Content: "3"},
	}, a.History())
}

func TestClearMessagesKeepsPromptAndConfig(t *testing.T) {
	a, err := New(models.NewDummy(""), WithSystemPrompt("sys"))
	require.NoError(t, err)
	a.SetModel("m")
	a.AddMessage(models.RoleUser, "hi")

	a.ClearMessages()
	require.Empty(t, a.History())
	require.Equal(t, "sys", a.SystemPrompt())
	require.Equal(t, "m", a.Config().Model)
}

func TestListModelsIsNonFatal(t *testing.T) {
	a, err := New(failingBackend{err: errors.New("404")})
	require.NoError(t, err)
	ids := a.ListModels(context.Background())
	require.NotNil(t, ids)
	require.Empty(t, ids)

	a, err = New(models.NewDummy(""))
	require.NoError(t, err)
	require.Equal(t, []string{"dummy"}, a.ListModels(context.Background()))
}

func TestSet(t *testing.T) {
	a, err := New(models.NewDummy(""))
	require.NoError(t, err)

	require.NoError(t, a.Set("model", "qwen"))
	require.NoError(t, a.Set("temp", "0.7"))
	require.NoError(t, a.Set("TOP_P", "0.9"))
	require.NoError(t, a.Set("top_k", "40"))
	require.NoError(t, a.Set("frequency_penalty", "0.1"))
	require.NoError(t, a.Set("max_tokens", "2048"))

	cfg := a.Config()
	require.Equal(t, "qwen", cfg.Model)
	require.Equal(t, 0.7, *cfg.Temperature)
	require.Equal(t, 0.9, *cfg.TopP)
	require.Equal(t, uint64(40), *cfg.TopK)
	require.Equal(t, 0.1, *cfg.FrequencyPenalty)
	require.Equal(t, uint64(2048), cfg.MaxTokens)

	require.ErrorIs(t, a.Set("seed", "1"), ErrUnknownSetting)

	var invalid *InvalidSettingError
	require.ErrorAs(t, a.Set("top_k", "-3"), &invalid)
	require.Equal(t, "top_k", invalid.Key)
	require.ErrorAs(t, a.Set("temperature", "warm"), &invalid)

	// failed updates leave the previous value in place
	require.Equal(t, 0.7, *a.Config().Temperature)
}

func TestConfigIsASnapshot(t *testing.T) {
	a, err := New(models.NewDummy(""))
	require.NoError(t, err)
	a.SetTemperature(0.3)

	cfg := a.Config()
	*cfg.Temperature = 1.5
	require.Equal(t, 0.3, *a.Config().Temperature)
}
