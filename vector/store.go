// Package vector holds chunk records with their embeddings and answers exact
// nearest-neighbour queries by cosine similarity.
package vector

import (
	"context"

	"github.com/hubenschmidt/go-docrag/chunker"
)

const DefaultTopK = 5

// Record is one stored chunk, embedding included.
type Record struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Match is a query hit with its raw cosine similarity.
type Match struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Metadata   Metadata `json:"metadata"`
	Similarity float64  `json:"similarity"`
}

// QueryResult is the ranked output of a query. An empty store or a filter
// that excludes everything yields Count 0 and no error.
type QueryResult struct {
	Results []Match `json:"results"`
	Count   int     `json:"count"`
}

// DocumentSummary describes one document derived from its chunks.
type DocumentSummary struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	DocumentHash string `json:"document_hash"`
	TotalChunks  int    `json:"total_chunks"`
}

type Stats struct {
	TotalChunks     int    `json:"total_chunks"`
	TotalDocuments  int    `json:"total_documents"`
	CollectionName  string `json:"collection_name"`
	PersistLocation string `json:"persist_directory"`
	Dimension       int    `json:"dimension"`
}

// Mutation reports the outcome of add, delete or reset. Count records how
// many chunks changed in memory. A non-nil PersistErr means the change was
// applied but could not be saved, so memory and storage have diverged until
// the next successful save.
type Mutation struct {
	Count      int
	PersistErr error
}

// Store is the chunk store contract used by the retrieval layer.
type Store interface {
	Exists(documentHash string) bool
	Add(ctx context.Context, chunks []chunker.Chunk, embeddings [][]float64, documentID string) (Mutation, error)
	Query(ctx context.Context, embedding []float64, topK int, filter Filter) (QueryResult, error)
	Delete(ctx context.Context, documentID string) (Mutation, error)
	ListDocuments() []DocumentSummary
	Stats() Stats
	Reset(ctx context.Context) (Mutation, error)
	Close() error
}
