package llm

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-docrag/core"
)

const DefaultBatchSize = 32

// BatchEmbed embeds texts in groups of batchSize and returns one vector per
// text, in order.
func BatchEmbed(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		vecs, err := e.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: batch %d-%d returned %d vectors", core.ErrEmbedding, start, end, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}
