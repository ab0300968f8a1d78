package vector

import (
	"fmt"

	"github.com/hubenschmidt/go-docrag/store"
)

func toSnapshot(name string, records []Record) *store.Snapshot {
	s := &store.Snapshot{
		Version:    store.SnapshotVersion,
		Collection: name,
		IDs:        make([]string, len(records)),
		Documents:  make([]string, len(records)),
		Embeddings: make([][]float64, len(records)),
		Metadatas:  make([]map[string]any, len(records)),
	}
	for i := range records {
		s.IDs[i] = records[i].ID
		s.Documents[i] = records[i].Text
		s.Embeddings[i] = records[i].Embedding
		s.Metadatas[i] = records[i].Metadata.Map()
	}
	return s
}

// recordsFromSnapshot rebuilds records and checks that every embedding has
// the same length.
func recordsFromSnapshot(s *store.Snapshot) ([]Record, int, error) {
	if err := s.Validate(); err != nil {
		return nil, 0, err
	}

	records := make([]Record, s.Len())
	dim := 0
	for i := range records {
		emb := s.Embeddings[i]
		if i == 0 {
			dim = len(emb)
		}
		if len(emb) == 0 || len(emb) != dim {
			return nil, 0, fmt.Errorf("%w: embedding %d has %d dimensions, want %d", store.ErrCorruptSnapshot, i, len(emb), dim)
		}
		records[i] = Record{
			ID:        s.IDs[i],
			Text:      s.Documents[i],
			Embedding: emb,
			Metadata:  metadataFromMap(s.Metadatas[i]),
		}
	}
	return records, dim, nil
}
