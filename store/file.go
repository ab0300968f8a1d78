package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FilePersister keeps a collection in {dir}/{collection}.json.
type FilePersister struct {
	dir  string
	path string
}

// NewFilePersister creates the directory if needed.
func NewFilePersister(dir, collection string) (*FilePersister, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create persist directory: %w", err)
	}
	return &FilePersister{
		dir:  dir,
		path: filepath.Join(dir, collection+".json"),
	}, nil
}

func (p *FilePersister) Load(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

// Save writes to a temporary file in the same directory and renames it over
// the previous snapshot, so a failed write leaves the old file intact.
func (p *FilePersister) Save(ctx context.Context, s *Snapshot) error {
	data, err := encodeSnapshot(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("create persist directory: %w", err)
	}

	tmp, err := os.CreateTemp(p.dir, filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (p *FilePersister) Location() string {
	return p.path
}

// Close is a no-op for file persistence.
func (p *FilePersister) Close() error {
	return nil
}
