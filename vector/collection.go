package vector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/hubenschmidt/go-docrag/chunker"
	"github.com/hubenschmidt/go-docrag/core"
	"github.com/hubenschmidt/go-docrag/hasher"
	"github.com/hubenschmidt/go-docrag/store"
)

var _ Store = (*Collection)(nil)

// LoadStatus is the outcome of reading the persisted snapshot at Open.
type LoadStatus int

const (
	// LoadEmpty means nothing had been persisted yet.
	LoadEmpty LoadStatus = iota
	// LoadRestored means the snapshot was read back.
	LoadRestored
	// LoadFailed means the snapshot was unreadable and the collection
	// started empty.
	LoadFailed
)

func (s LoadStatus) String() string {
	switch s {
	case LoadEmpty:
		return "empty"
	case LoadRestored:
		return "restored"
	case LoadFailed:
		return "failed"
	}
	return fmt.Sprintf("LoadStatus(%d)", int(s))
}

type LoadResult struct {
	Status LoadStatus
	Chunks int
	Err    error
}

// Collection is a named, persisted set of chunk records searched by linear
// scan. Mutations and their saves hold the write lock; reads share the
// read lock.
type Collection struct {
	mu        sync.RWMutex
	name      string
	persister store.Persister
	records   []Record
	dimension int
	loaded    LoadResult
	dirty     bool // last save failed
}

// Open constructs a collection and loads its snapshot once. A missing or
// unreadable snapshot leaves the collection empty; LoadResult reports which.
func Open(ctx context.Context, name string, persister store.Persister) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is required", core.ErrInvalidInput)
	}
	if persister == nil {
		return nil, fmt.Errorf("%w: persister is required", core.ErrInvalidInput)
	}

	c := &Collection{name: name, persister: persister}
	c.loaded = c.load(ctx)
	return c, nil
}

func (c *Collection) load(ctx context.Context) LoadResult {
	snap, err := c.persister.Load(ctx)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		log.Printf("[vector] No saved state for %q at %s, starting empty", c.name, c.persister.Location())
		return LoadResult{Status: LoadEmpty}
	}
	if err == nil {
		c.records, c.dimension, err = recordsFromSnapshot(snap)
	}
	if err != nil {
		c.records, c.dimension = nil, 0
		log.Printf("[vector] WARN: could not load %q from %s, starting empty: %v", c.name, c.persister.Location(), err)
		return LoadResult{Status: LoadFailed, Err: err}
	}

	log.Printf("[vector] Loaded %d chunks for %q from %s", len(c.records), c.name, c.persister.Location())
	return LoadResult{Status: LoadRestored, Chunks: len(c.records)}
}

// LoadResult reports what Open found in storage.
func (c *Collection) LoadResult() LoadResult {
	return c.loaded
}

func (c *Collection) Name() string {
	return c.name
}

// Exists reports whether any stored chunk carries documentHash.
func (c *Collection) Exists(documentHash string) bool {
	if documentHash == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.records {
		if c.records[i].Metadata.DocumentHash == documentHash {
			return true
		}
	}
	return false
}

// Add stores one document's chunk set. All input is validated before the
// collection changes; on success the full state is saved.
func (c *Collection) Add(ctx context.Context, chunks []chunker.Chunk, embeddings [][]float64, documentID string) (Mutation, error) {
	if documentID == "" {
		return Mutation{}, fmt.Errorf("%w: document id is required", core.ErrInvalidInput)
	}
	if len(chunks) != len(embeddings) {
		return Mutation{}, core.WithContext(
			core.NewOpError("add", documentID, fmt.Errorf("%w: %d chunks, %d embeddings", core.ErrCountMismatch, len(chunks), len(embeddings))),
			"chunks", len(chunks))
	}
	if len(chunks) == 0 {
		return Mutation{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.buildRecords(chunks, embeddings, documentID)
	if err != nil {
		return Mutation{}, core.NewOpError("add", documentID, err)
	}

	c.records = append(c.records, records...)
	c.dimension = len(records[0].Embedding)

	return c.persistLocked(ctx, "add", len(records)), nil
}

func (c *Collection) buildRecords(chunks []chunker.Chunk, embeddings [][]float64, documentID string) ([]Record, error) {
	dim := c.dimension
	if dim == 0 {
		dim = len(embeddings[0])
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty embedding", core.ErrDimensionMismatch)
	}

	existing := make(map[string]struct{}, len(c.records))
	for i := range c.records {
		existing[c.records[i].ID] = struct{}{}
	}

	records := make([]Record, len(chunks))
	for i, ch := range chunks {
		if len(embeddings[i]) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, want %d", core.ErrDimensionMismatch, i, len(embeddings[i]), dim)
		}
		if ch.Text == "" {
			return nil, fmt.Errorf("%w: chunk %d has no text", core.ErrInvalidInput, i)
		}
		for j, x := range embeddings[i] {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("%w: embedding %d has non-finite value at %d", core.ErrInvalidInput, i, j)
			}
		}

		id := hasher.ChunkID(documentID, i)
		if _, dup := existing[id]; dup {
			return nil, fmt.Errorf("%w: chunk %s is already stored", core.ErrInvalidInput, id)
		}

		records[i] = Record{
			ID:        id,
			Text:      ch.Text,
			Embedding: append([]float64(nil), embeddings[i]...),
			Metadata:  chunkMetadata(ch, documentID, i, len(chunks)),
		}
	}
	return records, nil
}

func chunkMetadata(ch chunker.Chunk, documentID string, i, n int) Metadata {
	m := Metadata{
		DocumentID:   documentID,
		DocumentName: ch.DocumentName,
		DocumentHash: ch.DocumentHash,
		FilePath:     ch.FilePath,
		ChunkIndex:   ch.ChunkIndex,
		TotalChunks:  ch.TotalChunks,
		CharCount:    ch.CharCount,
	}
	if m.DocumentName == "" {
		m.DocumentName = "unknown"
	}
	if m.TotalChunks == 0 {
		m.ChunkIndex = i
		m.TotalChunks = n
	}
	if m.CharCount == 0 {
		m.CharCount = utf8.RuneCountInString(ch.Text)
	}
	if len(ch.Extra) > 0 {
		m.Extra = make(map[string]string, len(ch.Extra))
		for k, v := range ch.Extra {
			m.Extra[k] = v
		}
	}
	return m
}

// Query ranks stored chunks by cosine similarity to embedding. Only records
// matching every filter entry are eligible. Ties keep insertion order. A
// non-positive topK means DefaultTopK.
func (c *Collection) Query(ctx context.Context, embedding []float64, topK int, filter Filter) (QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return QueryResult{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.records) == 0 {
		return QueryResult{Results: []Match{}}, nil
	}
	if len(embedding) != c.dimension {
		return QueryResult{}, fmt.Errorf("%w: query has %d dimensions, collection has %d", core.ErrDimensionMismatch, len(embedding), c.dimension)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	qNorm := norm(embedding)
	matches := make([]Match, 0, len(c.records))
	for i := range c.records {
		r := &c.records[i]
		if len(filter) > 0 && !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, Match{
			ID:         r.ID,
			Text:       r.Text,
			Metadata:   r.Metadata.clone(),
			Similarity: cosine(embedding, r.Embedding, qNorm),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	return QueryResult{Results: matches, Count: len(matches)}, nil
}

// Delete removes every chunk of documentID, keeping the order of the rest.
// Deleting an unknown document returns a zero Mutation and saves nothing.
func (c *Collection) Delete(ctx context.Context, documentID string) (Mutation, error) {
	if documentID == "" {
		return Mutation{}, fmt.Errorf("%w: document id is required", core.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		if r.Metadata.DocumentID != documentID {
			kept = append(kept, r)
		}
	}
	removed := len(c.records) - len(kept)
	if removed == 0 {
		return Mutation{}, nil
	}

	c.records = kept
	if len(c.records) == 0 {
		c.dimension = 0
	}
	return c.persistLocked(ctx, "delete", removed), nil
}

// ListDocuments groups chunks by document id in first-seen order.
func (c *Collection) ListDocuments() []DocumentSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := []DocumentSummary{}
	seen := make(map[string]struct{})
	for i := range c.records {
		m := c.records[i].Metadata
		if _, ok := seen[m.DocumentID]; ok {
			continue
		}
		seen[m.DocumentID] = struct{}{}
		docs = append(docs, DocumentSummary{
			DocumentID:   m.DocumentID,
			DocumentName: m.DocumentName,
			DocumentHash: m.DocumentHash,
			TotalChunks:  m.TotalChunks,
		})
	}
	return docs
}

func (c *Collection) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := make(map[string]struct{})
	for i := range c.records {
		docs[c.records[i].Metadata.DocumentID] = struct{}{}
	}
	return Stats{
		TotalChunks:     len(c.records),
		TotalDocuments:  len(docs),
		CollectionName:  c.name,
		PersistLocation: c.persister.Location(),
		Dimension:       c.dimension,
	}
}

// Count returns the number of stored chunks.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Dimension returns the embedding length fixed by the first add, or 0 while
// the collection is empty.
func (c *Collection) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Reset drops every chunk and saves the empty state. It cannot be undone.
func (c *Collection) Reset(ctx context.Context) (Mutation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.records)
	c.records = nil
	c.dimension = 0
	return c.persistLocked(ctx, "reset", removed), nil
}

// Flush retries the save when an earlier one failed. It is a no-op when
// storage already matches memory.
func (c *Collection) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := c.persister.Save(ctx, toSnapshot(c.name, c.records)); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Close releases the persister.
func (c *Collection) Close() error {
	return c.persister.Close()
}

func (c *Collection) persistLocked(ctx context.Context, op string, count int) Mutation {
	err := c.persister.Save(ctx, toSnapshot(c.name, c.records))
	if err != nil {
		log.Printf("[vector] WARN: %s applied in memory but save to %s failed: %v", op, c.persister.Location(), err)
		c.dirty = true
		return Mutation{Count: count, PersistErr: err}
	}
	c.dirty = false
	return Mutation{Count: count}
}
