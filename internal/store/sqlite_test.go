package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store { return openTestSQLite(t) })
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.CreateCollection(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "docs", batch("a.md", 2, 3)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteStore_VectorsMoveWithSwap(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	st, err := s.CreateCollection(ctx, "staging")
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "staging", batch("a.md", 2, 3)))
	require.NoError(t, s.Swap(ctx, "staging", "docs"))

	live, ok, err := s.Lookup(ctx, "docs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st.ID, live.ID)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM vec_"+live.ID).Scan(&n))
	assert.Equal(t, 2, n)
}
