package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hubenschmidt/go-docrag/core"
)

const DefaultOllamaURL = "http://localhost:11434"

// OllamaEmbedClient handles Ollama's native embedding API.
type OllamaEmbedClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaEmbedClient accepts the host with or without a /v1 suffix.
func NewOllamaEmbedClient(cfg ClientConfig) *OllamaEmbedClient {
	cfg = cfg.withDefaults()
	host := cfg.BaseURL
	if host == "" {
		host = DefaultOllamaURL
	}
	host = strings.TrimSuffix(host, "/")
	host = strings.TrimSuffix(host, "/v1")
	return &OllamaEmbedClient{
		baseURL: host,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *OllamaEmbedClient) ModelName() string {
	return c.model
}

// Embed generates an embedding for a single input.
func (c *OllamaEmbedClient) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends all inputs in one /api/embed request.
func (c *OllamaEmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if err := checkTexts(texts); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama status %d: %s", core.ErrEmbedding, resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", core.ErrEmbedding, err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", core.ErrEmbedding, len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

// Ping checks that the Ollama host answers.
func (c *OllamaEmbedClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrUnavailable, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", core.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}
