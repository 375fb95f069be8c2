package ai

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned by a Completer when the provider answered without any text.
	ErrEmptyResponse = errors.New("completion service returned empty response")
	// ErrInputTooLarge is returned by a Completer when the provider rejected the prompt as too large.
	ErrInputTooLarge = errors.New("input exceeds completion service limits")
)

// ExtractedJob is a single job record pulled out of a posting by the language model.
type ExtractedJob struct {
	Role        string   `json:"role" yaml:"role" mapstructure:"role"`
	Experience  string   `json:"experience" yaml:"experience" mapstructure:"experience"`
	Skills      []string `json:"skills" yaml:"skills" mapstructure:"skills"`
	Description string   `json:"description" yaml:"description" mapstructure:"description"`
}

// Completer is a black-box text generation service.
type Completer interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into fixed-length vectors. The result has one vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
