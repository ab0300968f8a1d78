// Package chunker splits extracted document text into overlapping,
// sentence-aligned chunks ready for embedding.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Metadata is caller-supplied document information copied onto every chunk.
type Metadata struct {
	DocumentName string            `json:"document_name,omitempty"`
	DocumentHash string            `json:"document_hash,omitempty"`
	FilePath     string            `json:"file_path,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Chunk is one segment of a document before it is embedded and stored.
type Chunk struct {
	Text        string `json:"text"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	CharCount   int    `json:"char_count"`
	Metadata
}

// Chunker holds the size and overlap settings, measured in characters.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker. A non-positive size falls back to the default, and
// an overlap that would not leave room for new text is reduced to size/4.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk normalizes text, splits it into sentences and packs them greedily
// while the summed sentence lengths stay within Size. Each chunk after the
// first starts with the whole sentences found in the last Overlap characters
// of the one before it. A sentence longer than Size is emitted on its own,
// unsplit.
func (c *Chunker) Chunk(text string, meta Metadata) []Chunk {
	sentences := SplitSentences(Normalize(text))
	if len(sentences) == 0 {
		return nil
	}

	var texts []string
	var buf strings.Builder
	bufLen := 0

	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)

		if buf.Len() > 0 && bufLen+n > c.size {
			closed := strings.TrimSpace(buf.String())
			texts = append(texts, closed)

			buf.Reset()
			buf.WriteString(c.overlapTail(closed))
			buf.WriteByte(' ')
			buf.WriteString(sentence)
			bufLen = utf8.RuneCountInString(buf.String())
			continue
		}

		// separators are not counted toward the running length
		buf.WriteByte(' ')
		buf.WriteString(sentence)
		bufLen += n
	}

	if last := strings.TrimSpace(buf.String()); last != "" {
		texts = append(texts, last)
	}

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{
			Text:        t,
			ChunkIndex:  i,
			TotalChunks: len(texts),
			CharCount:   utf8.RuneCountInString(t),
			Metadata:    meta.clone(),
		}
	}
	return chunks
}

// overlapTail returns the complete sentences contained in the final
// c.overlap characters of chunk. A chunk no longer than the overlap is
// returned whole.
func (c *Chunker) overlapTail(chunk string) string {
	if c.overlap == 0 {
		return ""
	}
	runes := []rune(chunk)
	if len(runes) <= c.overlap {
		return chunk
	}

	start := len(runes) - c.overlap
	sentences := SplitSentences(string(runes[start:]))
	if len(sentences) > 0 && !atSentenceStart(runes, start) {
		sentences = sentences[1:]
	}
	return strings.Join(sentences, " ")
}

// atSentenceStart reports whether runes[start:] begins on a sentence boundary,
// i.e. whitespace separates it from terminal punctuation before it.
func atSentenceStart(runes []rune, start int) bool {
	if start == 0 {
		return true
	}
	if !unicode.IsSpace(runes[start]) && !unicode.IsSpace(runes[start-1]) {
		return false
	}
	prefix := strings.TrimRightFunc(string(runes[:start]), unicode.IsSpace)
	if prefix == "" {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(prefix)
	return isTerminal(last)
}

func (m Metadata) clone() Metadata {
	if m.Extra == nil {
		return m
	}
	extra := make(map[string]string, len(m.Extra))
	for k, v := range m.Extra {
		extra[k] = v
	}
	m.Extra = extra
	return m
}
