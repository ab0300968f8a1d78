// Package store persists chunk collections as one self-contained snapshot
// per named collection. The whole snapshot is rewritten on every save.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const SnapshotVersion = 1

var (
	// ErrSnapshotNotFound is returned by Load when nothing has been saved yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Snapshot is the persisted form of a collection: four parallel,
// equal-length sequences indexed by chunk position.
type Snapshot struct {
	Version    int              `json:"version"`
	Collection string           `json:"collection"`
	IDs        []string         `json:"ids"`
	Documents  []string         `json:"documents"`
	Embeddings [][]float64      `json:"embeddings"`
	Metadatas  []map[string]any `json:"metadatas"`
}

// Len returns the number of chunks in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.IDs)
}

// Validate checks that the parallel sequences line up.
func (s *Snapshot) Validate() error {
	n := len(s.IDs)
	if len(s.Documents) != n || len(s.Embeddings) != n || len(s.Metadatas) != n {
		return fmt.Errorf("%w: ids=%d documents=%d embeddings=%d metadatas=%d",
			ErrCorruptSnapshot, n, len(s.Documents), len(s.Embeddings), len(s.Metadatas))
	}
	return nil
}

// Persister loads and saves the snapshot of a single collection.
type Persister interface {
	// Load returns ErrSnapshotNotFound when the collection was never saved.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored snapshot with s.
	Save(ctx context.Context, s *Snapshot) error

	// Location describes where the snapshot lives, for stats and logs.
	Location() string

	// Close releases resources.
	Close() error
}

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
