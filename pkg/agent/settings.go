package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/docent/pkg/models"
	"github.com/spf13/cast"
)

// ErrUnknownSetting is returned by Set for keys it does not recognise.
var ErrUnknownSetting = errors.New("unknown setting")

// InvalidSettingError reports a value that could not be converted to the
// setting's type.
type InvalidSettingError struct {
	Key   string
	Value string
	Err   error
}

func (e *InvalidSettingError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Key, e.Err)
}

func (e *InvalidSettingError) Unwrap() error { return e.Err }

// Config returns a snapshot of the generation configuration.
func (a *Agent) Config() models.GenerationConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config.Clone()
}

func (a *Agent) SetModel(model string) {
	a.update(func(c *models.GenerationConfig) { c.Model = model })
}

func (a *Agent) SetMaxTokens(n uint64) {
	a.update(func(c *models.GenerationConfig) { c.MaxTokens = n })
}

func (a *Agent) SetTemperature(v float64) {
	a.update(func(c *models.GenerationConfig) { c.Temperature = &v })
}

func (a *Agent) SetTopP(v float64) {
	a.update(func(c *models.GenerationConfig) { c.TopP = &v })
}

func (a *Agent) SetTopK(v uint64) {
	a.update(func(c *models.GenerationConfig) { c.TopK = &v })
}

func (a *Agent) SetFrequencyPenalty(v float64) {
	a.update(func(c *models.GenerationConfig) { c.FrequencyPenalty = &v })
}

func (a *Agent) update(fn func(*models.GenerationConfig)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.config)
}

// Set changes one generation setting from its textual form, as typed in the
// chat prompt.
func (a *Agent) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	invalid := func(err error) error {
		return &InvalidSettingError{Key: key, Value: value, Err: err}
	}

	switch key {
	case "model":
		if value == "" {
			return invalid(errors.New("model is empty"))
		}
		a.SetModel(value)
	case "temperature", "temp":
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return invalid(err)
		}
		a.SetTemperature(v)
	case "top_p":
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return invalid(err)
		}
		a.SetTopP(v)
	case "top_k":
		v, err := cast.ToUint64E(value)
		if err != nil {
			return invalid(err)
		}
		a.SetTopK(v)
	case "frequency_penalty":
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return invalid(err)
		}
		a.SetFrequencyPenalty(v)
	case "max_tokens":
		v, err := cast.ToUint64E(value)
		if err != nil {
			return invalid(err)
		}
		a.SetMaxTokens(v)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return nil
}
