// Package docrag splits documents into overlapping chunks, stores them with
// their embeddings and retrieves the closest chunks to ground LLM answers.
//
// Example usage:
//
//	persister, _ := docrag.NewPersister("", "./data/chroma_db", "restaurant_docs")
//	coll, _ := docrag.OpenCollection(ctx, "restaurant_docs", persister)
//	embedder, _ := docrag.NewEmbedder("ollama", docrag.ClientConfig{Model: "all-minilm"})
//	svc, _ := docrag.NewService(docrag.ServiceConfig{Store: coll, Embedder: embedder})
//	res, _ := svc.IngestFile(ctx, "menu.pdf", "")
//	found, _ := svc.Search(ctx, "Do you have vegan options?", 5, nil)
package docrag

import (
	"context"

	"github.com/hubenschmidt/go-docrag/chunker"
	"github.com/hubenschmidt/go-docrag/config"
	"github.com/hubenschmidt/go-docrag/llm"
	"github.com/hubenschmidt/go-docrag/rag"
	"github.com/hubenschmidt/go-docrag/server"
	"github.com/hubenschmidt/go-docrag/store"
	"github.com/hubenschmidt/go-docrag/vector"
)

// Chunker aliases
type (
	Chunker       = chunker.Chunker
	Chunk         = chunker.Chunk
	ChunkMetadata = chunker.Metadata
)

// NewChunker creates a sentence-aware chunker.
func NewChunker(size, overlap int) *Chunker {
	return chunker.New(size, overlap)
}

// Vector store aliases
type (
	Collection      = vector.Collection
	VectorStore     = vector.Store
	Filter          = vector.Filter
	Match           = vector.Match
	QueryResult     = vector.QueryResult
	DocumentSummary = vector.DocumentSummary
	Stats           = vector.Stats
	Persister       = store.Persister
)

// NewPersister picks a snapshot backend from dsn (empty, sqlite: or postgres://).
func NewPersister(dsn, dir, collection string) (Persister, error) {
	return store.NewPersister(dsn, dir, collection)
}

// OpenCollection creates a collection and loads its saved state.
func OpenCollection(ctx context.Context, name string, p Persister) (*Collection, error) {
	return vector.Open(ctx, name, p)
}

// LLM aliases
type (
	Embedder     = llm.Embedder
	Completer    = llm.Completer
	ClientConfig = llm.ClientConfig
)

// NewEmbedder creates an embedding client for provider.
func NewEmbedder(provider string, cfg ClientConfig) (Embedder, error) {
	return llm.NewEmbedder(provider, cfg)
}

// NewCompleter creates a chat completion client for provider.
func NewCompleter(provider string, cfg ClientConfig) (Completer, error) {
	return llm.NewCompleter(provider, cfg)
}

// Retrieval aliases
type (
	Service       = rag.Service
	ServiceConfig = rag.Config
	IngestResult  = rag.IngestResult
	AnswerRequest = rag.AnswerRequest
	Answer        = rag.Answer
)

// NewService creates the ingestion and retrieval service.
func NewService(cfg ServiceConfig) (*Service, error) {
	return rag.New(cfg)
}

// Server aliases
type (
	Server       = server.Server
	ServerConfig = server.Config
	AppConfig    = config.AppConfig
)

// NewServer creates the HTTP API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	return server.New(cfg)
}

// LoadConfig reads an optional YAML file and the environment.
func LoadConfig(path string) (*AppConfig, error) {
	return config.Load(path)
}
