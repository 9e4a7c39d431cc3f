package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
)

const pgDDL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS docvault_collections (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS docvault_records (
    seq           BIGSERIAL PRIMARY KEY,
    collection_id BIGINT NOT NULL REFERENCES docvault_collections(id) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    document      TEXT NOT NULL,
    metadata      JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding     vector NOT NULL,
    UNIQUE (collection_id, id)
);
`

// PostgresStore implements Store on Postgres with the pgvector extension.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects through the pgx database/sql driver and bootstraps
// the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) find(ctx context.Context, q queryer, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM docvault_collections WHERE name = $1", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return id, err
}

func (p *PostgresStore) Lookup(ctx context.Context, name string) (Collection, bool, error) {
	id, err := p.find(ctx, p.db, name)
	if isNotFound(err) {
		return Collection{}, false, nil
	}
	if err != nil {
		return Collection{}, false, err
	}
	return Collection{ID: strconv.FormatInt(id, 10), Name: name}, true, nil
}

func (p *PostgresStore) CreateCollection(ctx context.Context, name string) (Collection, error) {
	var id int64
	err := p.db.QueryRowContext(ctx,
		"INSERT INTO docvault_collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id",
		name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Collection{}, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	if err != nil {
		return Collection{}, err
	}
	return Collection{ID: strconv.FormatInt(id, 10), Name: name}, nil
}

func (p *PostgresStore) DeleteCollection(ctx context.Context, name string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM docvault_collections WHERE name = $1", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return nil
}

func (p *PostgresStore) Clear(ctx context.Context, name string) error {
	id, err := p.find(ctx, p.db, name)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, "DELETE FROM docvault_records WHERE collection_id = $1", id)
	return err
}

func (p *PostgresStore) Add(ctx context.Context, name string, b Batch) error {
	dim, err := b.Validate()
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id, err := p.find(ctx, tx, name)
	if err != nil {
		return err
	}
	if dim == 0 {
		return nil
	}

	var stored sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		"SELECT vector_dims(embedding) FROM docvault_records WHERE collection_id = $1 LIMIT 1", id,
	).Scan(&stored); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if stored.Valid && int(stored.Int64) != dim {
		return fmt.Errorf("%w: collection %s stores dimension %d, batch has %d", ErrMisaligned, name, stored.Int64, dim)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO docvault_records (collection_id, id, document, metadata, embedding) VALUES ($1, $2, $3, $4, $5)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rid := range b.IDs {
		meta, err := json.Marshal(b.Metadatas[i])
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", rid, err)
		}
		if _, err := stmt.ExecContext(ctx, id, rid, b.Documents[i], string(meta), pgvector.NewVector(b.Embeddings[i])); err != nil {
			return fmt.Errorf("insert record %s: %w", rid, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) Get(ctx context.Context, name string) (*GetResult, error) {
	id, err := p.find(ctx, p.db, name)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx,
		"SELECT id, document, metadata FROM docvault_records WHERE collection_id = $1 ORDER BY seq", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &GetResult{}
	for rows.Next() {
		var rid, doc string
		var raw []byte
		if err := rows.Scan(&rid, &doc, &raw); err != nil {
			return nil, err
		}
		var meta Metadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", rid, err)
		}
		out.IDs = append(out.IDs, rid)
		out.Documents = append(out.Documents, doc)
		out.Metadatas = append(out.Metadatas, meta)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Count(ctx context.Context, name string) (int, error) {
	id, err := p.find(ctx, p.db, name)
	if err != nil {
		return 0, err
	}
	var n int
	err = p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM docvault_records WHERE collection_id = $1", id).Scan(&n)
	return n, err
}

func (p *PostgresStore) Swap(ctx context.Context, staging, live string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st, err := p.find(ctx, tx, staging)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM docvault_collections WHERE name = $1", live); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE docvault_collections SET name = $1 WHERE id = $2", live, st); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
