package llm

import (
	"fmt"
	"strings"

	"github.com/hubenschmidt/go-docrag/core"
)

const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

// NewEmbedder builds the embedding client for provider ("ollama" or
// "openai"; any OpenAI-compatible host works with "openai" and a BaseURL).
func NewEmbedder(provider string, cfg ClientConfig) (Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", core.ErrInvalidInput)
	}
	switch strings.ToLower(provider) {
	case ProviderOllama, "":
		return NewOllamaEmbedClient(cfg), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", core.ErrUnavailable)
		}
		return NewOpenAIClient(cfg), nil
	}
	return nil, fmt.Errorf("%w: unknown embedding provider %q", core.ErrInvalidInput, provider)
}

// NewCompleter builds the chat client for provider ("groq", "openai" or
// "anthropic"). Hosted providers need an API key.
func NewCompleter(provider string, cfg ClientConfig) (Completer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: llm model is required", core.ErrInvalidInput)
	}
	p := strings.ToLower(provider)
	switch p {
	case ProviderGroq, ProviderOpenAI, ProviderAnthropic, "":
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", core.ErrInvalidInput, provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key for llm provider %q", core.ErrUnavailable, provider)
	}

	switch p {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GroqBaseURL
	}
	return NewOpenAIClient(cfg), nil
}
