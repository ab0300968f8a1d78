package llm

import (
	"context"
	"time"
)

// Embedder turns text into fixed-length vectors. Every vector from one
// Embedder has the same length, and a batch call must return the same
// vectors as one call per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	ModelName() string
}

// Completer answers a prompt with generated text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	ModelName() string
}

type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:    60 * time.Second,
		MaxRetries: 2,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	d := DefaultClientConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}
