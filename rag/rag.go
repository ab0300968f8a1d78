// Package rag ties chunking, hashing, embedding and the chunk store into
// document ingestion and retrieval.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hubenschmidt/go-docrag/chunker"
	"github.com/hubenschmidt/go-docrag/core"
	"github.com/hubenschmidt/go-docrag/extract"
	"github.com/hubenschmidt/go-docrag/hasher"
	"github.com/hubenschmidt/go-docrag/llm"
	"github.com/hubenschmidt/go-docrag/vector"
)

const NoDocumentsAnswer = "I don't have any documents to reference. Please upload some restaurant documents first."

type Config struct {
	Chunker   *chunker.Chunker
	Store     vector.Store
	Embedder  llm.Embedder
	Extractor extract.Extractor
	BatchSize int
}

// Service is the seam the HTTP and CLI layers use.
type Service struct {
	chunker   *chunker.Chunker
	store     vector.Store
	embedder  llm.Embedder
	extractor extract.Extractor
	batchSize int

	// held from the duplicate check until the chunks are added
	ingestMu sync.Mutex
}

func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("rag: store is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("rag: embedder is required")
	}
	if cfg.Chunker == nil {
		cfg.Chunker = chunker.New(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap)
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.NewRegistry()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = llm.DefaultBatchSize
	}
	return &Service{
		chunker:   cfg.Chunker,
		store:     cfg.Store,
		embedder:  cfg.Embedder,
		extractor: cfg.Extractor,
		batchSize: cfg.BatchSize,
	}, nil
}

type IngestResult struct {
	DocumentID    string `json:"document_id"`
	DocumentName  string `json:"document_name"`
	DocumentHash  string `json:"document_hash"`
	ChunksCreated int    `json:"chunks_created"`
	AlreadyExists bool   `json:"already_exists"`
	// PersistWarning is set when the chunks were stored in memory but the
	// collection could not be saved.
	PersistWarning string `json:"persist_warning,omitempty"`
}

// IngestFile extracts, chunks and stores the file at path. Identical bytes
// already stored under any name are reported as AlreadyExists with no
// chunks created, including when the same bytes are being ingested
// concurrently. An empty name defaults to the file's base name.
func (s *Service) IngestFile(ctx context.Context, path, name string) (*IngestResult, error) {
	if name == "" {
		name = filepath.Base(path)
	}

	hash, err := hasher.HashFile(path)
	if err != nil {
		return nil, core.NewOpError("ingest", name, err)
	}
	docID := hasher.DocumentID(hash)

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if s.store.Exists(hash) {
		log.Printf("[ingest] %s already stored as %s", name, docID)
		return &IngestResult{DocumentID: docID, DocumentName: name, DocumentHash: hash, AlreadyExists: true}, nil
	}

	text, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	return s.ingest(ctx, text, chunker.Metadata{DocumentName: name, DocumentHash: hash, FilePath: path})
}

// IngestText stores raw text under name, hashing the text bytes.
func (s *Service) IngestText(ctx context.Context, name, text string) (*IngestResult, error) {
	if name == "" {
		name = "unknown"
	}
	hash := hasher.HashBytes([]byte(text))

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if s.store.Exists(hash) {
		return &IngestResult{DocumentID: hasher.DocumentID(hash), DocumentName: name, DocumentHash: hash, AlreadyExists: true}, nil
	}
	return s.ingest(ctx, text, chunker.Metadata{DocumentName: name, DocumentHash: hash})
}

func (s *Service) ingest(ctx context.Context, text string, meta chunker.Metadata) (*IngestResult, error) {
	docID := hasher.DocumentID(meta.DocumentHash)

	chunks := s.chunker.Chunk(text, meta)
	if len(chunks) == 0 {
		return nil, core.NewOpError("ingest", meta.DocumentName, core.ErrEmptyDocument)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := llm.BatchEmbed(ctx, s.embedder, texts, s.batchSize)
	if err != nil {
		return nil, core.NewOpError("ingest", meta.DocumentName, err)
	}

	m, err := s.store.Add(ctx, chunks, embeddings, docID)
	if err != nil {
		return nil, err
	}

	res := &IngestResult{
		DocumentID:    docID,
		DocumentName:  meta.DocumentName,
		DocumentHash:  meta.DocumentHash,
		ChunksCreated: m.Count,
	}
	if m.PersistErr != nil {
		res.PersistWarning = m.PersistErr.Error()
	}
	log.Printf("[ingest] %s stored as %s (%d chunks)", meta.DocumentName, docID, m.Count)
	return res, nil
}

// Search embeds query and returns the closest chunks.
func (s *Service) Search(ctx context.Context, query string, topK int, filter vector.Filter) (vector.QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return vector.QueryResult{}, core.ErrEmptyQuery
	}
	if s.store.Stats().TotalChunks == 0 {
		return vector.QueryResult{Results: []vector.Match{}}, nil
	}

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return vector.QueryResult{}, core.NewOpError("search", "", err)
	}
	return s.store.Query(ctx, emb, topK, filter)
}

type AnswerRequest struct {
	Question     string
	TopK         int
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	Filter       vector.Filter
}

type Answer struct {
	Answer       string         `json:"answer"`
	Sources      []vector.Match `json:"sources"`
	Usage        llm.Usage      `json:"usage"`
	Model        string         `json:"model"`
	FinishReason string         `json:"finish_reason,omitempty"`
}

// Answer retrieves context for the question and asks the completer. With
// nothing stored it returns NoDocumentsAnswer without calling the model.
func (s *Service) Answer(ctx context.Context, completer llm.Completer, req AnswerRequest) (*Answer, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: no language model configured", core.ErrUnavailable)
	}

	found, err := s.Search(ctx, req.Question, req.TopK, req.Filter)
	if err != nil {
		return nil, err
	}
	if found.Count == 0 {
		return &Answer{Answer: NoDocumentsAnswer, Sources: []vector.Match{}, Model: completer.ModelName()}, nil
	}

	system := req.SystemPrompt
	if system == "" {
		system = llm.DefaultSystemPrompt
	}

	resp, err := completer.Complete(ctx, llm.CompletionRequest{
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: llm.BuildPrompt(req.Question, JoinContext(found.Results))}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, core.NewOpError("answer", "", err)
	}

	return &Answer{
		Answer:       resp.Content,
		Sources:      found.Results,
		Usage:        resp.Usage,
		Model:        resp.Model,
		FinishReason: resp.FinishReason,
	}, nil
}

// JoinContext concatenates match texts separated by blank lines.
func JoinContext(matches []vector.Match) string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return strings.Join(texts, "\n\n")
}

func (s *Service) Documents() []vector.DocumentSummary {
	return s.store.ListDocuments()
}

// Delete removes a document's chunks. Zero chunks deleted is not an error.
func (s *Service) Delete(ctx context.Context, documentID string) (vector.Mutation, error) {
	return s.store.Delete(ctx, documentID)
}

func (s *Service) Stats() vector.Stats {
	return s.store.Stats()
}

func (s *Service) Reset(ctx context.Context) (vector.Mutation, error) {
	return s.store.Reset(ctx)
}

func (s *Service) EmbeddingModel() string {
	return s.embedder.ModelName()
}

func (s *Service) Chunker() *chunker.Chunker {
	return s.chunker
}
