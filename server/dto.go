package server

import (
	"math"

	"github.com/hubenschmidt/go-docrag/llm"
	"github.com/hubenschmidt/go-docrag/monitor"
	"github.com/hubenschmidt/go-docrag/vector"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Services map[string]string `json:"services"`
}

type UploadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	DocumentID    string `json:"document_id"`
	DocumentName  string `json:"document_name,omitempty"`
	ChunksCreated int    `json:"chunks_created"`
	AlreadyExists bool   `json:"already_exists"`
	Warning       string `json:"warning,omitempty"`
}

// ChatRequest fields left out of the body take their defaults.
type ChatRequest struct {
	Question    *string       `json:"question"`
	TopK        *int          `json:"top_k,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Filter      vector.Filter `json:"filter,omitempty"`
}

type TokensUsed struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

type Source struct {
	Text         string  `json:"text"`
	DocumentName string  `json:"document_name"`
	DocumentID   string  `json:"document_id,omitempty"`
	ChunkIndex   int     `json:"chunk_index"`
	Similarity   float64 `json:"similarity"`
}

type ChatResponse struct {
	Success    bool        `json:"success"`
	Answer     string      `json:"answer"`
	Sources    []Source    `json:"sources"`
	TokensUsed *TokensUsed `json:"tokens_used"`
	Model      string      `json:"model,omitempty"`
}

type SearchRequest struct {
	Query  *string       `json:"query"`
	TopK   *int          `json:"top_k,omitempty"`
	Filter vector.Filter `json:"filter,omitempty"`
}

type SearchResponse struct {
	Success bool     `json:"success"`
	Query   string   `json:"query"`
	Results []Source `json:"results"`
	Count   int      `json:"count"`
}

type DocumentListResponse struct {
	Success        bool                     `json:"success"`
	Documents      []vector.DocumentSummary `json:"documents"`
	TotalDocuments int                      `json:"total_documents"`
	TotalChunks    int                      `json:"total_chunks"`
}

type DeleteResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	DocumentID    string `json:"document_id"`
	ChunksDeleted int    `json:"chunks_deleted"`
	Warning       string `json:"warning,omitempty"`
}

type StatsInfo struct {
	TotalDocuments   int    `json:"total_documents"`
	TotalChunks      int    `json:"total_chunks"`
	CollectionName   string `json:"collection_name"`
	PersistDirectory string `json:"persist_directory"`
	Dimension        int    `json:"dimension"`
	EmbeddingModel   string `json:"embedding_model"`
	LLMModel         string `json:"llm_model"`
	ChunkSize        int    `json:"chunk_size"`
	ChunkOverlap     int    `json:"chunk_overlap"`
}

type StatsResponse struct {
	Success bool      `json:"success"`
	Stats   StatsInfo `json:"stats"`
}

type ResetRequest struct {
	Confirm bool `json:"confirm"`
}

type ResetResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ChunksDeleted int    `json:"chunks_deleted"`
	Warning       string `json:"warning,omitempty"`
}

type MetricsResponse struct {
	Success bool            `json:"success"`
	Metrics monitor.Summary `json:"metrics"`
}

func toSources(matches []vector.Match, withID bool) []Source {
	out := make([]Source, len(matches))
	for i, m := range matches {
		name := m.Metadata.DocumentName
		if name == "" {
			name = "unknown"
		}
		out[i] = Source{
			Text:         m.Text,
			DocumentName: name,
			ChunkIndex:   m.Metadata.ChunkIndex,
			Similarity:   round3(m.Similarity),
		}
		if withID {
			out[i].DocumentID = m.Metadata.DocumentID
		}
	}
	return out
}

func toTokensUsed(u llm.Usage) *TokensUsed {
	return &TokensUsed{Prompt: u.PromptTokens, Completion: u.CompletionTokens, Total: u.TotalTokens}
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
