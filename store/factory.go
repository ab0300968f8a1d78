package store

import (
	"fmt"
	"strings"
)

// NewPersister picks a backend from the DSN.
// - Empty DSN: JSON file {dir}/{collection}.json
// - postgres:// or postgresql://: PostgreSQL
// - sqlite:<path> or anything else: SQLite at the given path
func NewPersister(dsn, dir, collection string) (Persister, error) {
	if dsn == "" {
		return NewFilePersister(dir, collection)
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		p, err := NewPostgresPersister(dsn, collection)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return p, nil
	}

	p, err := NewSQLitePersister(strings.TrimPrefix(dsn, "sqlite:"), collection)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return p, nil
}
