package hasher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBytes_KnownDigest(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", HashBytes(nil))
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", HashBytes([]byte("hello")))
}

func TestHash_StreamingMatchesInMemory(t *testing.T) {
	payload := strings.Repeat("menu line ", 3000) // spans several blocks
	streamed, err := Hash(iotest.OneByteReader(strings.NewReader(payload)))
	require.NoError(t, err)
	assert.Equal(t, HashBytes([]byte(payload)), streamed)
	assert.Len(t, streamed, 32)
}

func TestHash_ReaderError(t *testing.T) {
	_, err := Hash(iotest.ErrReader(errors.New("boom")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "renamed-copy.txt")
	require.NoError(t, os.WriteFile(a, []byte("same bytes"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same bytes"), 0o644))

	ha, err := HashFile(a)
	require.NoError(t, err)
	hb, err := HashFile(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "identity is content, not filename")

	_, err = HashFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "doc_5d41402a", DocumentID("5d41402abc4b2a76b9719d911017c592"))
	assert.Equal(t, "doc_abc", DocumentID("abc"))
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc_5d41402a_chunk_0", ChunkID("doc_5d41402a", 0))
	assert.Equal(t, "doc_x_chunk_12", ChunkID("doc_x", 12))
}
