package vector

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hubenschmidt/go-docrag/chunker"
	"github.com/hubenschmidt/go-docrag/core"
	"github.com/hubenschmidt/go-docrag/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPersister keeps the snapshot in memory and counts saves.
type memPersister struct {
	mu      sync.Mutex
	snap    *store.Snapshot
	saves   int
	saveErr error
	loadErr error
}

func (p *memPersister) Load(ctx context.Context) (*store.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	if p.snap == nil {
		return nil, store.ErrSnapshotNotFound
	}
	return p.snap, nil
}

func (p *memPersister) Save(ctx context.Context, s *store.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.snap = s
	return nil
}

func (p *memPersister) Location() string { return "memory" }
func (p *memPersister) Close() error     { return nil }

func (p *memPersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func newTestCollection(t *testing.T) (*Collection, *memPersister) {
	t.Helper()
	p := &memPersister{}
	c, err := Open(context.Background(), "restaurant_docs", p)
	require.NoError(t, err)
	return c, p
}

func makeChunks(name, hash string, texts ...string) []chunker.Chunk {
	chunks := make([]chunker.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = chunker.Chunk{
			Text:        text,
			ChunkIndex:  i,
			TotalChunks: len(texts),
			CharCount:   len(text),
			Metadata:    chunker.Metadata{DocumentName: name, DocumentHash: hash},
		}
	}
	return chunks
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), "", &memPersister{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Open(context.Background(), "docs", nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestOpen_EmptyWhenNothingSaved(t *testing.T) {
	c, _ := newTestCollection(t)
	assert.Equal(t, LoadEmpty, c.LoadResult().Status)
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 0, c.Dimension())
}

func TestOpen_LoadFailureStartsEmpty(t *testing.T) {
	p := &memPersister{loadErr: errors.New("permission denied")}
	c, err := Open(context.Background(), "docs", p)
	require.NoError(t, err)

	res := c.LoadResult()
	assert.Equal(t, LoadFailed, res.Status)
	assert.EqualError(t, res.Err, "permission denied")
	assert.Equal(t, 0, c.Count())
}

func TestOpen_InconsistentDimensionsIsCorrupt(t *testing.T) {
	p := &memPersister{snap: &store.Snapshot{
		IDs:        []string{"a", "b"},
		Documents:  []string{"x", "y"},
		Embeddings: [][]float64{{1, 0}, {1, 0, 0}},
		Metadatas:  []map[string]any{{}, {}},
	}}
	c, err := Open(context.Background(), "docs", p)
	require.NoError(t, err)
	assert.Equal(t, LoadFailed, c.LoadResult().Status)
	assert.ErrorIs(t, c.LoadResult().Err, store.ErrCorruptSnapshot)
	assert.Equal(t, 0, c.Count())
}

func TestCollection_Add_Success(t *testing.T) {
	ctx := context.Background()
	c, p := newTestCollection(t)

	m, err := c.Add(ctx, makeChunks("hours.txt", "hash1", "Opens at 9.", "Closes at 10."),
		[][]float64{{1, 0, 0}, {0, 1, 0}}, "doc_hash1")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count)
	assert.NoError(t, m.PersistErr)
	assert.Equal(t, 1, p.saveCount())
	assert.Equal(t, 3, c.Dimension())

	require.NotNil(t, p.snap)
	assert.Equal(t, []string{"doc_hash1_chunk_0", "doc_hash1_chunk_1"}, p.snap.IDs)
	assert.Equal(t, "hours.txt", p.snap.Metadatas[0]["document_name"])
}

func TestCollection_Add_MetadataFallbacks(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)

	_, err := c.Add(ctx, []chunker.Chunk{{Text: "Crème brûlée."}}, [][]float64{{1, 1}}, "doc_x")
	require.NoError(t, err)

	res, err := c.Query(ctx, []float64{1, 1}, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)

	meta := res.Results[0].Metadata
	assert.Equal(t, "unknown", meta.DocumentName)
	assert.Equal(t, 0, meta.ChunkIndex)
	assert.Equal(t, 1, meta.TotalChunks)
	assert.Equal(t, 13, meta.CharCount)
}

func TestCollection_Add_CountMismatch(t *testing.T) {
	c, p := newTestCollection(t)

	_, err := c.Add(context.Background(), makeChunks("a", "h", "one.", "two."), [][]float64{{1}}, "doc_h")
	assert.ErrorIs(t, err, core.ErrCountMismatch)
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 0, p.saveCount())
}

func TestCollection_Add_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	c, p := newTestCollection(t)

	_, err := c.Add(ctx, makeChunks("a", "h1", "one."), [][]float64{{1, 0}}, "doc_h1")
	require.NoError(t, err)

	_, err = c.Add(ctx, makeChunks("b", "h2", "two."), [][]float64{{1, 0, 0}}, "doc_h2")
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = c.Add(ctx, makeChunks("c", "h3", "x.", "y."), [][]float64{{1, 0}, {1}}, "doc_h3")
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	assert.Equal(t, 1, c.Count())
	assert.False(t, c.Exists("h2"))
	assert.False(t, c.Exists("h3"))
	assert.Equal(t, 1, p.saveCount())
}

func TestCollection_Add_EmptyEmbeddingOrText(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)

	_, err := c.Add(ctx, makeChunks("a", "h", "one."), [][]float64{{}}, "doc_h")
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = c.Add(ctx, []chunker.Chunk{{Text: ""}}, [][]float64{{1}}, "doc_h")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = c.Add(ctx, makeChunks("a", "h", "one."), [][]float64{{1}}, "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCollection_Add_DuplicateIDsRejected(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)

	_, err := c.Add(ctx, makeChunks("a", "h", "one."), [][]float64{{1}}, "doc_h")
	require.NoError(t, err)
	_, err = c.Add(ctx, makeChunks("a", "h", "one."), [][]float64{{1}}, "doc_h")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Equal(t, 1, c.Count())
}

func TestCollection_Add_NonFiniteRejected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := store.NewFilePersister(dir, "docs")
	require.NoError(t, err)
	c, err := Open(ctx, "docs", p)
	require.NoError(t, err)

	for _, bad := range [][]float64{{math.NaN(), 1}, {math.Inf(1), 1}, {1, math.Inf(-1)}} {
		_, err := c.Add(ctx, makeChunks("bad.txt", "bad", "Broken vector."), [][]float64{bad}, "doc_bad")
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	}
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 0, c.Dimension())

	m, err := c.Add(ctx, makeChunks("good.txt", "good", "Fine vector."), [][]float64{{1, 1}}, "doc_good")
	require.NoError(t, err)
	assert.NoError(t, m.PersistErr)
	require.NoError(t, c.Close())

	p2, err := store.NewFilePersister(dir, "docs")
	require.NoError(t, err)
	reopened, err := Open(ctx, "docs", p2)
	require.NoError(t, err)
	assert.Equal(t, LoadRestored, reopened.LoadResult().Status)
	assert.Equal(t, 1, reopened.Count())
}

func TestCollection_Add_EmptyBatchIsNoop(t *testing.T) {
	c, p := newTestCollection(t)
	m, err := c.Add(context.Background(), nil, nil, "doc_h")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Count)
	assert.Equal(t, 0, p.saveCount())
}

func TestCollection_Add_PersistFailureKeepsMemory(t *testing.T) {
	c, p := newTestCollection(t)
	p.saveErr = errors.New("disk full")

	m, err := c.Add(context.Background(), makeChunks("a", "h", "one."), [][]float64{{1}}, "doc_h")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count)
	assert.EqualError(t, m.PersistErr, "disk full")
	assert.True(t, c.Exists("h"))

	assert.EqualError(t, c.Flush(context.Background()), "disk full")

	p.mu.Lock()
	p.saveErr = nil
	p.mu.Unlock()
	require.NoError(t, c.Flush(context.Background()))
	require.NotNil(t, p.snap)
	assert.Equal(t, 1, p.snap.Len())

	saves := p.saveCount()
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, saves, p.saveCount(), "clean collection does not save again")
}

func TestCollection_Exists(t *testing.T) {
	c, _ := newTestCollection(t)
	_, err := c.Add(context.Background(), makeChunks("a", "abc123", "one."), [][]float64{{1}}, "doc_abc123")
	require.NoError(t, err)

	assert.True(t, c.Exists("abc123"))
	assert.False(t, c.Exists("unseen"))
	assert.False(t, c.Exists(""))
}

func TestCollection_Query_EmptyStore(t *testing.T) {
	c, _ := newTestCollection(t)
	for _, topK := range []int{-1, 0, 1, 100} {
		for _, q := range [][]float64{nil, {1}, {0, 0, 0}} {
			res, err := c.Query(context.Background(), q, topK, nil)
			require.NoError(t, err)
			assert.Equal(t, 0, res.Count)
			assert.NotNil(t, res.Results)
			assert.Empty(t, res.Results)
		}
	}
}

func TestCollection_Query_RanksAndReturnsAll(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)

	embeddings := [][]float64{{1, 0}, {0.6, 0.8}, {0, 1}, {-1, 0}}
	_, err := c.Add(ctx, makeChunks("a", "h", "east.", "northeast.", "north.", "west."), embeddings, "doc_h")
	require.NoError(t, err)

	res, err := c.Query(ctx, []float64{1, 0}, len(embeddings)+5, nil)
	require.NoError(t, err)
	require.Equal(t, 4, res.Count)
	require.Len(t, res.Results, 4)

	assert.Equal(t, "doc_h_chunk_0", res.Results[0].ID)
	assert.InDelta(t, 1.0, res.Results[0].Similarity, 1e-9)
	assert.Equal(t, "doc_h_chunk_3", res.Results[3].ID)
	assert.InDelta(t, -1.0, res.Results[3].Similarity, 1e-9)
	for i := 1; i < len(res.Results); i++ {
		assert.GreaterOrEqual(t, res.Results[i-1].Similarity, res.Results[i].Similarity)
	}

	for i, emb := range embeddings {
		self, err := c.Query(ctx, emb, 1, nil)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, self.Results[0].Similarity, 1e-9, "embedding %d", i)
	}
}

func TestCollection_Query_TopKTruncatesAndDefaults(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)

	texts := []string{"a.", "b.", "c.", "d.", "e.", "f.", "g."}
	embs := make([][]float64, len(texts))
	for i := range embs {
		embs[i] = []float64{1, float64(i)}
	}
	_, err := c.Add(ctx, makeChunks("a", "h", texts...), embs, "doc_h")
	require.NoError(t, err)

	res, err := c.Query(ctx, []float64{1, 0}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	res, err = c.Query(ctx, []float64{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, res.Count)
}

func TestCollection_Query_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)

	_, err := c.Add(ctx, makeChunks("a", "h", "first.", "second.", "third."),
		[][]float64{{1, 1}, {1, 1}, {1, 1}}, "doc_h")
	require.NoError(t, err)

	res, err := c.Query(ctx, []float64{1, 1}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_h_chunk_0", "doc_h_chunk_1", "doc_h_chunk_2"},
		[]string{res.Results[0].ID, res.Results[1].ID, res.Results[2].ID})
}

func TestCollection_Query_ZeroNorm(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)

	_, err := c.Add(ctx, makeChunks("a", "h", "zero.", "one."), [][]float64{{0, 0}, {1, 0}}, "doc_h")
	require.NoError(t, err)

	res, err := c.Query(ctx, []float64{0, 0}, 5, nil)
	require.NoError(t, err)
	for _, m := range res.Results {
		assert.False(t, math.IsNaN(m.Similarity))
		assert.Equal(t, 0.0, m.Similarity)
	}

	res, err = c.Query(ctx, []float64{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Results[1].Similarity)
}

func TestCollection_Query_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)
	_, err := c.Add(ctx, makeChunks("a", "h", "one."), [][]float64{{1, 0}}, "doc_h")
	require.NoError(t, err)

	_, err = c.Query(ctx, []float64{1, 0, 0}, 5, nil)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestCollection_Query_Filter(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)

	_, err := c.Add(ctx, makeChunks("menu.pdf", "h1", "Best match.", "Other."), [][]float64{{1, 0}, {0.5, 0.5}}, "doc_h1")
	require.NoError(t, err)
	_, err = c.Add(ctx, makeChunks("hours.pdf", "h2", "Close match."), [][]float64{{0.9, 0.1}}, "doc_h2")
	require.NoError(t, err)

	res, err := c.Query(ctx, []float64{1, 0}, 10, Filter{"document_id": "doc_h2"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "doc_h2_chunk_0", res.Results[0].ID)

	res, err = c.Query(ctx, []float64{1, 0}, 10, Filter{"document_id": "doc_h1", "chunk_index": float64(1)})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "Other.", res.Results[0].Text)

	res, err = c.Query(ctx, []float64{1, 0}, 10, Filter{"document_name": "nope.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)

	res, err = c.Query(ctx, []float64{1, 0}, 10, Filter{"missing_key": "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
}

func TestCollection_Delete(t *testing.T) {
	ctx := context.Background()
	c, p := newTestCollection(t)

	_, err := c.Add(ctx, makeChunks("a", "h1", "a1.", "a2."), [][]float64{{1, 0}, {1, 1}}, "doc_h1")
	require.NoError(t, err)
	_, err = c.Add(ctx, makeChunks("b", "h2", "b1.", "b2.", "b3."), [][]float64{{0, 1}, {1, 0}, {0.5, 1}}, "doc_h2")
	require.NoError(t, err)
	_, err = c.Add(ctx, makeChunks("c", "h3", "c1."), [][]float64{{1, 0.2}}, "doc_h3")
	require.NoError(t, err)
	saves := p.saveCount()

	m, err := c.Delete(ctx, "doc_h2")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Count)
	assert.Equal(t, saves+1, p.saveCount())
	assert.False(t, c.Exists("h2"))

	res, err := c.Query(ctx, []float64{0, 1}, 100, nil)
	require.NoError(t, err)
	for _, r := range res.Results {
		assert.NotEqual(t, "doc_h2", r.Metadata.DocumentID)
	}

	ids := p.snap.IDs
	assert.Equal(t, []string{"doc_h1_chunk_0", "doc_h1_chunk_1", "doc_h3_chunk_0"}, ids)
	require.NoError(t, p.snap.Validate())
}

func TestCollection_Delete_UnknownDocument(t *testing.T) {
	ctx := context.Background()
	c, p := newTestCollection(t)
	_, err := c.Add(ctx, makeChunks("a", "h1", "a1."), [][]float64{{1}}, "doc_h1")
	require.NoError(t, err)
	saves := p.saveCount()

	m, err := c.Delete(ctx, "doc_missing")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Count)
	assert.Equal(t, saves, p.saveCount(), "nothing to save")
	assert.Equal(t, 1, c.Count())
}

func TestCollection_Delete_LastDocumentReleasesDimension(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)
	_, err := c.Add(ctx, makeChunks("a", "h1", "a1."), [][]float64{{1, 0}}, "doc_h1")
	require.NoError(t, err)

	_, err = c.Delete(ctx, "doc_h1")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Dimension())

	_, err = c.Add(ctx, makeChunks("b", "h2", "b1."), [][]float64{{1, 0, 0}}, "doc_h2")
	assert.NoError(t, err)
}

func TestCollection_ListDocuments(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)
	assert.Empty(t, c.ListDocuments())

	_, err := c.Add(ctx, makeChunks("menu.pdf", "h2", "x.", "y."), [][]float64{{1}, {1}}, "doc_h2")
	require.NoError(t, err)
	_, err = c.Add(ctx, makeChunks("hours.pdf", "h1", "z."), [][]float64{{1}}, "doc_h1")
	require.NoError(t, err)

	docs := c.ListDocuments()
	require.Len(t, docs, 2)
	assert.Equal(t, DocumentSummary{DocumentID: "doc_h2", DocumentName: "menu.pdf", DocumentHash: "h2", TotalChunks: 2}, docs[0])
	assert.Equal(t, "doc_h1", docs[1].DocumentID)
}

func TestCollection_Stats(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)
	_, err := c.Add(ctx, makeChunks("a", "h1", "a1.", "a2."), [][]float64{{1, 0}, {0, 1}}, "doc_h1")
	require.NoError(t, err)
	_, err = c.Add(ctx, makeChunks("b", "h2", "b1."), [][]float64{{1, 1}}, "doc_h2")
	require.NoError(t, err)

	assert.Equal(t, Stats{
		TotalChunks:     3,
		TotalDocuments:  2,
		CollectionName:  "restaurant_docs",
		PersistLocation: "memory",
		Dimension:       2,
	}, c.Stats())
}

func TestCollection_Reset(t *testing.T) {
	ctx := context.Background()
	c, p := newTestCollection(t)
	_, err := c.Add(ctx, makeChunks("a", "h1", "a1.", "a2."), [][]float64{{1}, {1}}, "doc_h1")
	require.NoError(t, err)

	m, err := c.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count)
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 0, p.snap.Len())
}

func TestCollection_PersistAcrossRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := store.NewFilePersister(dir, "restaurant_docs")
	require.NoError(t, err)
	c, err := Open(ctx, "restaurant_docs", p)
	require.NoError(t, err)

	chunks := makeChunks("menu.pdf", "h1", "Soup of the day.", "Fresh bread.")
	chunks[1].Extra = map[string]string{"section": "bakery"}
	_, err = c.Add(ctx, chunks, [][]float64{{1, 0}, {0, 1}}, "doc_h1")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	p2, err := store.NewFilePersister(dir, "restaurant_docs")
	require.NoError(t, err)
	reopened, err := Open(ctx, "restaurant_docs", p2)
	require.NoError(t, err)

	assert.Equal(t, LoadResult{Status: LoadRestored, Chunks: 2}, reopened.LoadResult())
	assert.True(t, reopened.Exists("h1"))
	assert.Equal(t, 2, reopened.Dimension())

	res, err := reopened.Query(ctx, []float64{0, 1}, 1, Filter{"section": "bakery"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "doc_h1_chunk_1", res.Results[0].ID)
	assert.Equal(t, 1, res.Results[0].Metadata.ChunkIndex)
	assert.Equal(t, 2, res.Results[0].Metadata.TotalChunks)
	assert.Equal(t, "menu.pdf", res.Results[0].Metadata.DocumentName)
}

func TestCollection_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs.json"), []byte("garbage"), 0o644))

	p, err := store.NewFilePersister(dir, "docs")
	require.NoError(t, err)
	c, err := Open(context.Background(), "docs", p)
	require.NoError(t, err)

	assert.Equal(t, LoadFailed, c.LoadResult().Status)
	assert.Equal(t, 0, c.Count())
}

func TestCollection_ConcurrentReadsDuringWrites(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(t)
	_, err := c.Add(ctx, makeChunks("seed", "seed", "seed."), [][]float64{{1, 0}}, "doc_seed")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := c.Query(ctx, []float64{1, 0}, 3, nil)
				assert.NoError(t, err)
				c.ListDocuments()
				c.Stats()
			}
		}()
	}
	for i := 0; i < 20; i++ {
		id := "doc_" + string(rune('a'+i))
		_, err := c.Add(ctx, makeChunks("x", id, "text."), [][]float64{{0, 1}}, id)
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, 21, c.Count())
}
