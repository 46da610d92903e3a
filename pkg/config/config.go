// Package config loads the settings file of a run.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/Protocol-Lattice/docent/pkg/models"
)

// ErrConfig matches every error returned while loading configuration.
var ErrConfig = errors.New("invalid configuration")

const (
	DefaultPath       = "config.json"
	DefaultMaxTokens  = 4096
	DefaultMaxHistory = 20
	DefaultMaxTurns   = 200

	// TokenEnv overrides the token found in the file.
	TokenEnv = "TOKEN"
)

// Config is the decoded settings file. Optional sampling parameters are nil
// when the file does not set them.
type Config struct {
	Provider         string
	URL              string
	Token            string
	Model            string
	MaxTokens        uint64
	MaxHistory       int
	SystemPrompt     string
	Temperature      *float64
	TopP             *float64
	TopK             *uint64
	FrequencyPenalty *float64
	MaxTurns         int
	UTCPProviders    string
}

// Generation returns the generation settings described by c.
func (c *Config) Generation() models.GenerationConfig {
	return models.GenerationConfig{
		Model:            c.Model,
		Stream:           true,
		MaxTokens:        c.MaxTokens,
		Temperature:      c.Temperature,
		TopP:             c.TopP,
		TopK:             c.TopK,
		FrequencyPenalty: c.FrequencyPenalty,
	}.Clone()
}

// Backend returns the backend selection described by c.
func (c *Config) Backend() models.Settings {
	return models.Settings{Provider: c.Provider, URL: c.URL, Token: c.Token}
}

// Load reads a JSON or YAML settings file. A .env file in the working
// directory is applied to the environment first, so TOKEN may live there.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: load .env: %v", ErrConfig, err)
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes settings from data and applies the TOKEN override. JSON is
// accepted since it is valid YAML.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg, err := fromMap(raw)
	if err != nil {
		return nil, err
	}
	if tok := os.Getenv(TokenEnv); tok != "" {
		cfg.Token = tok
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{
		MaxTokens:  DefaultMaxTokens,
		MaxHistory: DefaultMaxHistory,
		MaxTurns:   DefaultMaxTurns,
	}
	var err error
	field := func(key string, set func(v any) error) {
		v, ok := raw[key]
		if !ok || v == nil || err != nil {
			return
		}
		if e := set(v); e != nil {
			err = fmt.Errorf("%w: %s: %v", ErrConfig, key, e)
		}
	}
	str := func(dst *string) func(any) error {
		return func(v any) (e error) { *dst, e = cast.ToStringE(v); return }
	}
	float := func(dst **float64) func(any) error {
		return func(v any) error {
			f, e := cast.ToFloat64E(v)
			if e == nil {
				*dst = &f
			}
			return e
		}
	}

	field("provider", str(&cfg.Provider))
	field("url", str(&cfg.URL))
	field("token", str(&cfg.Token))
	field("model", str(&cfg.Model))
	field("system_prompt", str(&cfg.SystemPrompt))
	field("utcp_providers", str(&cfg.UTCPProviders))
	field("temperature", float(&cfg.Temperature))
	field("top_p", float(&cfg.TopP))
	field("frequency_penalty", float(&cfg.FrequencyPenalty))
	field("top_k", func(v any) error {
		k, e := cast.ToUint64E(v)
		if e == nil {
			cfg.TopK = &k
		}
		return e
	})
	field("max_tokens", func(v any) (e error) { cfg.MaxTokens, e = cast.ToUint64E(v); return })
	field("max_history", func(v any) (e error) { cfg.MaxHistory, e = cast.ToIntE(v); return })
	field("max_turns", func(v any) (e error) { cfg.MaxTurns, e = cast.ToIntE(v); return })
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Model) == "" && !strings.EqualFold(c.Provider, "dummy") {
		return fmt.Errorf("%w: model is required", ErrConfig)
	}
	if c.MaxHistory < 1 {
		return fmt.Errorf("%w: max_history must be at least 1", ErrConfig)
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("%w: max_turns must not be negative", ErrConfig)
	}
	return nil
}
