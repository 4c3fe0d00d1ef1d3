package settings

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation failure so callers can map the
// whole family with errors.Is.
var ErrInvalid = errors.New("invalid settings")

// Defaults mirror the sliders the web UI exposes.
const (
	DefaultModel       = "meta-llama/llama-3-8b-instruct:free"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	DefaultTopP        = 0.9
)

// Settings is the enumerated, typed set of per-session generation options.
type Settings struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
}

// Patch carries a partial settings update; nil fields are left untouched.
type Patch struct {
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
}

// Default returns the documented default settings.
func Default() Settings {
	return Settings{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
	}
}

// Apply merges a patch into the receiver and validates the result.
func (s Settings) Apply(p Patch) (Settings, error) {
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		s.MaxTokens = *p.MaxTokens
	}
	if p.TopP != nil {
		s.TopP = *p.TopP
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every option against its documented range.
func (s Settings) Validate() error {
	if s.Model == "" {
		return fmt.Errorf("%w: model must not be empty", ErrInvalid)
	}
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("%w: temperature %.2f out of range [0, 1]", ErrInvalid, s.Temperature)
	}
	if s.MaxTokens < 1 || s.MaxTokens > 4000 {
		return fmt.Errorf("%w: maxTokens %d out of range [1, 4000]", ErrInvalid, s.MaxTokens)
	}
	if s.TopP <= 0 || s.TopP > 1 {
		return fmt.Errorf("%w: topP %.2f out of range (0, 1]", ErrInvalid, s.TopP)
	}
	return nil
}
