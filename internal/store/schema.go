package store

import (
	"context"
	"database/sql"
	"fmt"
)

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS collections (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL UNIQUE,
    dimension  INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS records (
    rowid         INTEGER PRIMARY KEY AUTOINCREMENT,
    collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    document      TEXT NOT NULL,
    metadata      TEXT NOT NULL DEFAULT '{}',
    UNIQUE (collection_id, id)
);

CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection_id);
`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

// vecTable names the sqlite-vec table holding a collection's embeddings.
// Embedding dimensions are fixed per vec0 table, so each collection gets its
// own, created on the first write.
func vecTable(collectionID int64) string {
	return fmt.Sprintf("vec_%d", collectionID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func createVecTable(ctx context.Context, x execer, collectionID int64, dim int) error {
	_, err := x.ExecContext(ctx, fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(record_rowid INTEGER PRIMARY KEY, embedding float[%d])",
		vecTable(collectionID), dim,
	))
	return err
}

func dropVecTable(ctx context.Context, x execer, collectionID int64) error {
	_, err := x.ExecContext(ctx, "DROP TABLE IF EXISTS "+vecTable(collectionID))
	return err
}
