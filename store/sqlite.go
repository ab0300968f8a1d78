package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hubenschmidt/go-docrag/store/migrations"
	_ "modernc.org/sqlite"
)

// SQLitePersister stores each collection as one row of the collections table.
type SQLitePersister struct {
	db         *sql.DB
	path       string
	collection string
}

// NewSQLitePersister opens (or creates) the database at path.
func NewSQLitePersister(path, collection string) (*SQLitePersister, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}
	if path == "" {
		path = "data/docrag.db"
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runSQLiteMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLitePersister{db: db, path: path, collection: collection}, nil
}

func runSQLiteMigrations(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma: %w", err)
		}
	}

	data, err := migrations.SQLite.ReadFile("sqlite/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func (p *SQLitePersister) Load(ctx context.Context) (*Snapshot, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT snapshot FROM collections WHERE name = ?`, p.collection).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (p *SQLitePersister) Save(ctx context.Context, s *Snapshot) error {
	data, err := encodeSnapshot(s)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (name, snapshot, chunk_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			snapshot = excluded.snapshot,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at`,
		p.collection, data, s.Len(), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return tx.Commit()
}

func (p *SQLitePersister) Location() string {
	return fmt.Sprintf("sqlite:%s#%s", p.path, p.collection)
}

func (p *SQLitePersister) Close() error {
	return p.db.Close()
}
