package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hubenschmidt/go-docrag/chunker"
	"github.com/hubenschmidt/go-docrag/config"
	"github.com/hubenschmidt/go-docrag/extract"
	"github.com/hubenschmidt/go-docrag/llm"
	"github.com/hubenschmidt/go-docrag/rag"
	"github.com/hubenschmidt/go-docrag/store"
	"github.com/hubenschmidt/go-docrag/vector"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg        *config.AppConfig
	collection *vector.Collection
	service    *rag.Service
	completer  llm.Completer
}

func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	persister, err := store.NewPersister(cfg.Store.DSN, cfg.Store.PersistDir, cfg.Store.Collection)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	coll, err := vector.Open(ctx, cfg.Store.Collection, persister)
	if err != nil {
		persister.Close()
		return nil, err
	}
	if res := coll.LoadResult(); res.Status == vector.LoadFailed {
		log.Printf("[init] WARN: starting with an empty collection: %v", res.Err)
	}

	embedder, err := llm.NewEmbedder(cfg.Embedding.Provider, llm.ClientConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		Timeout: time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
	})
	if err != nil {
		coll.Close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	svc, err := rag.New(rag.Config{
		Chunker:   chunker.New(cfg.Chunker.Size, cfg.Chunker.Overlap),
		Store:     coll,
		Embedder:  embedder,
		Extractor: extract.NewRegistry(),
		BatchSize: cfg.Embedding.BatchSize,
	})
	if err != nil {
		coll.Close()
		return nil, err
	}

	a := &app{cfg: cfg, collection: coll, service: svc}

	completer, err := llm.NewCompleter(cfg.LLM.Provider, llm.ClientConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Printf("[init] WARN: chat disabled: %v", err)
	} else {
		a.completer = completer
	}

	log.Printf("[init] collection=%s store=%s embedder=%s/%s", cfg.Store.Collection, coll.Stats().PersistLocation, cfg.Embedding.Provider, embedder.ModelName())
	return a, nil
}

// Close saves any unsaved state and releases the store.
func (a *app) Close(ctx context.Context) error {
	flushErr := a.collection.Flush(ctx)
	closeErr := a.collection.Close()
	return errors.Join(flushErr, closeErr)
}
