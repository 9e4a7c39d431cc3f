package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// DefaultSQLitePath is where the local store lives when nothing else is set.
const DefaultSQLitePath = ".docvault/vectors.db"

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite creates or opens a SQLite database at the given path and
// initializes the schema.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// vec0 tables are created and dropped inside transactions; a single
	// connection keeps schema changes visible to every statement.
	db.SetMaxOpenConns(1)
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

type sqliteCollection struct {
	id   int64
	name string
	dim  int
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) find(ctx context.Context, q queryer, name string) (sqliteCollection, error) {
	c := sqliteCollection{name: name}
	err := q.QueryRowContext(ctx, "SELECT id, dimension FROM collections WHERE name = ?", name).Scan(&c.id, &c.dim)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, err
}

func (c sqliteCollection) public() Collection {
	return Collection{ID: strconv.FormatInt(c.id, 10), Name: c.name}
}

func (s *SQLiteStore) Lookup(ctx context.Context, name string) (Collection, bool, error) {
	c, err := s.find(ctx, s.db, name)
	if errors.Is(err, ErrCollectionNotFound) {
		return Collection{}, false, nil
	}
	if err != nil {
		return Collection{}, false, err
	}
	return c.public(), true, nil
}

func (s *SQLiteStore) CreateCollection(ctx context.Context, name string) (Collection, error) {
	if _, err := s.find(ctx, s.db, name); err == nil {
		return Collection{}, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	} else if !errors.Is(err, ErrCollectionNotFound) {
		return Collection{}, err
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO collections (name) VALUES (?)", name)
	if err != nil {
		return Collection{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Collection{}, err
	}
	return sqliteCollection{id: id, name: name}.public(), nil
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.deleteTx(ctx, tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) deleteTx(ctx context.Context, tx *sql.Tx, name string) error {
	c, err := s.find(ctx, tx, name)
	if err != nil {
		return err
	}
	if err := dropVecTable(ctx, tx, c.id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE collection_id = ?", c.id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", c.id)
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := s.find(ctx, tx, name)
	if err != nil {
		return err
	}
	if err := dropVecTable(ctx, tx, c.id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE collection_id = ?", c.id); err != nil {
		return err
	}
	// The next Add may bring a different embedding model.
	if _, err := tx.ExecContext(ctx, "UPDATE collections SET dimension = 0 WHERE id = ?", c.id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Add(ctx context.Context, name string, b Batch) error {
	dim, err := b.Validate()
	if err != nil {
		return err
	}
	if dim == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := s.find(ctx, tx, name)
	if err != nil {
		return err
	}
	switch c.dim {
	case 0:
		if err := createVecTable(ctx, tx, c.id, dim); err != nil {
			return fmt.Errorf("create vector table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE collections SET dimension = ? WHERE id = ?", dim, c.id); err != nil {
			return err
		}
	case dim:
	default:
		return fmt.Errorf("%w: collection %s stores dimension %d, batch has %d", ErrMisaligned, name, c.dim, dim)
	}

	recStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO records (collection_id, id, document, metadata) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer recStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s (record_rowid, embedding) VALUES (?, ?)", vecTable(c.id)))
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, id := range b.IDs {
		meta, err := json.Marshal(b.Metadatas[i])
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", id, err)
		}
		res, err := recStmt.ExecContext(ctx, c.id, id, b.Documents[i], string(meta))
		if err != nil {
			return fmt.Errorf("insert record %s: %w", id, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		blob, err := sqlite_vec.SerializeFloat32(b.Embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding for %s: %w", id, err)
		}
		if _, err := vecStmt.ExecContext(ctx, rowid, blob); err != nil {
			return fmt.Errorf("insert embedding for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Get(ctx context.Context, name string) (*GetResult, error) {
	c, err := s.find(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document, metadata FROM records WHERE collection_id = ? ORDER BY rowid", c.id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &GetResult{}
	for rows.Next() {
		var id, doc, raw string
		if err := rows.Scan(&id, &doc, &raw); err != nil {
			return nil, err
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
		}
		out.IDs = append(out.IDs, id)
		out.Documents = append(out.Documents, doc)
		out.Metadatas = append(out.Metadatas, meta)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context, name string) (int, error) {
	c, err := s.find(ctx, s.db, name)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE collection_id = ?", c.id).Scan(&n)
	return n, err
}

// Swap deletes live (if present) and renames staging to live in one
// transaction. Vector tables are keyed by collection id, so they move with
// the rename.
func (s *SQLiteStore) Swap(ctx context.Context, staging, live string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st, err := s.find(ctx, tx, staging)
	if err != nil {
		return err
	}
	if err := s.deleteTx(ctx, tx, live); err != nil && !errors.Is(err, ErrCollectionNotFound) {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE collections SET name = ? WHERE id = ?", live, st.id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
