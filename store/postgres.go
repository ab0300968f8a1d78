package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hubenschmidt/go-docrag/store/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresPersister stores each collection as one row of the collections table.
type PostgresPersister struct {
	db         *sql.DB
	location   string
	collection string
}

// NewPostgresPersister connects, pings and applies the schema.
func NewPostgresPersister(dsn, collection string) (*PostgresPersister, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := runPostgresMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresPersister{db: db, location: redactDSN(dsn), collection: collection}, nil
}

func runPostgresMigrations(ctx context.Context, db *sql.DB) error {
	data, err := migrations.Postgres.ReadFile("postgres/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func (p *PostgresPersister) Load(ctx context.Context) (*Snapshot, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT snapshot FROM collections WHERE name = $1`, p.collection).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (p *PostgresPersister) Save(ctx context.Context, s *Snapshot) error {
	data, err := encodeSnapshot(s)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO collections (name, snapshot, chunk_count, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE SET
			snapshot = EXCLUDED.snapshot,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at`,
		p.collection, data, s.Len(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (p *PostgresPersister) Location() string {
	return p.location + "#" + p.collection
}

func (p *PostgresPersister) Close() error {
	return p.db.Close()
}

// redactDSN drops credentials so the location is safe to log and report.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
