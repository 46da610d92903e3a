package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg, err := Parse([]byte(`{
		"url": "http://localhost:8080/v1/chat/completions",
		"token": "file-token",
		"model": "qwen",
		"temperature": 0.6,
		"top_k": 20,
		"max_history": 8,
		"system_prompt": "hi"
	}`))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/v1/chat/completions", cfg.URL)
	require.Equal(t, "file-token", cfg.Token)
	require.Equal(t, 0.6, *cfg.Temperature)
	require.Equal(t, uint64(20), *cfg.TopK)
	require.Nil(t, cfg.TopP)
	require.Equal(t, 8, cfg.MaxHistory)
	require.Equal(t, uint64(DefaultMaxTokens), cfg.MaxTokens)
	require.Equal(t, DefaultMaxTurns, cfg.MaxTurns)

	gen := cfg.Generation()
	require.True(t, gen.Stream)
	require.Equal(t, "qwen", gen.Model)
	*gen.Temperature = 2
	require.Equal(t, 0.6, *cfg.Temperature)
}

func TestParseYAMLWithQuotedNumbers(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg, err := Parse([]byte("provider: ollama\nmodel: llama\nmax_tokens: \"1024\"\ntop_p: \"0.9\"\n"))
	require.NoError(t, err)
	require.Equal(t, "ollama", cfg.Backend().Provider)
	require.Equal(t, uint64(1024), cfg.MaxTokens)
	require.Equal(t, 0.9, *cfg.TopP)
}

func TestTokenEnvironmentOverride(t *testing.T) {
	t.Setenv(TokenEnv, "env-token")
	cfg, err := Parse([]byte(`{"model": "m", "token": "file-token"}`))
	require.NoError(t, err)
	require.Equal(t, "env-token", cfg.Token)
}

func TestParseErrors(t *testing.T) {
	t.Setenv(TokenEnv, "")
	for name, input := range map[string]string{
		"syntax":      `{"model": `,
		"no model":    `{"url": "x"}`,
		"bad number":  `{"model": "m", "temperature": "hot"}`,
		"negative k":  `{"model": "m", "top_k": -1}`,
		"tiny window": `{"model": "m", "max_history": 0}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model": "m"}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "m", cfg.Model)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, ErrConfig)
}
