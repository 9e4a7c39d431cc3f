package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(file string, n, dim int) Batch {
	var b Batch
	for i := range n {
		b.IDs = append(b.IDs, fmt.Sprintf("%s_%d_abcdef%02d", file, i, i))
		b.Documents = append(b.Documents, fmt.Sprintf("chunk %d of %s", i, file))
		b.Metadatas = append(b.Metadatas, Metadata{
			Filename:    file,
			Filepath:    "data/" + file,
			ChunkIndex:  i,
			TotalChunks: n,
		})
		vec := make([]float32, dim)
		vec[0] = float32(i)
		b.Embeddings = append(b.Embeddings, vec)
	}
	return b
}

// testStore runs the behaviour every backend must share.
func testStore(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("lookup missing", func(t *testing.T) {
		s := open(t)
		_, ok, err := s.Lookup(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrCollectionNotFound)
		_, err = s.Count(ctx, "nope")
		assert.ErrorIs(t, err, ErrCollectionNotFound)
		assert.ErrorIs(t, s.Clear(ctx, "nope"), ErrCollectionNotFound)
	})

	t.Run("create and lookup", func(t *testing.T) {
		s := open(t)
		c, err := s.CreateCollection(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, "docs", c.Name)
		assert.NotEmpty(t, c.ID)

		got, ok, err := s.Lookup(ctx, "docs")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, c.ID, got.ID)

		_, err = s.CreateCollection(ctx, "docs")
		assert.ErrorIs(t, err, ErrCollectionExists)
	})

	t.Run("add and get", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateCollection(ctx, "docs")
		require.NoError(t, err)

		b := batch("a.md", 3, 4)
		require.NoError(t, s.Add(ctx, "docs", b))

		n, err := s.Count(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		got, err := s.Get(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, b.IDs, got.IDs)
		assert.Equal(t, b.Documents, got.Documents)
		assert.Equal(t, b.Metadatas, got.Metadatas)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateCollection(ctx, "docs")
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, "docs", Batch{}))
		n, err := s.Count(ctx, "docs")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("misaligned batch", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateCollection(ctx, "docs")
		require.NoError(t, err)

		b := batch("a.md", 2, 4)
		b.Documents = b.Documents[:1]
		assert.ErrorIs(t, s.Add(ctx, "docs", b), ErrMisaligned)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateCollection(ctx, "docs")
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, "docs", batch("a.md", 1, 4)))
		assert.Error(t, s.Add(ctx, "docs", batch("b.md", 1, 8)))
	})

	t.Run("clear keeps collection", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateCollection(ctx, "docs")
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, "docs", batch("a.md", 3, 4)))
		require.NoError(t, s.Clear(ctx, "docs"))

		_, ok, err := s.Lookup(ctx, "docs")
		require.NoError(t, err)
		assert.True(t, ok)
		n, err := s.Count(ctx, "docs")
		require.NoError(t, err)
		assert.Zero(t, n)

		// Same ids and a new dimension are accepted after a clear.
		require.NoError(t, s.Add(ctx, "docs", batch("a.md", 3, 6)))
		n, err = s.Count(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateCollection(ctx, "docs")
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, "docs", batch("a.md", 2, 4)))
		require.NoError(t, s.DeleteCollection(ctx, "docs"))

		_, ok, err := s.Lookup(ctx, "docs")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, s.DeleteCollection(ctx, "docs"), ErrCollectionNotFound)
	})

	t.Run("swap replaces live", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateCollection(ctx, "docs")
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, "docs", batch("old.md", 1, 4)))

		_, err = s.CreateCollection(ctx, "docs__staging")
		require.NoError(t, err)
		fresh := batch("new.md", 2, 4)
		require.NoError(t, s.Add(ctx, "docs__staging", fresh))

		require.NoError(t, s.Swap(ctx, "docs__staging", "docs"))

		got, err := s.Get(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, fresh.IDs, got.IDs)
		_, ok, err := s.Lookup(ctx, "docs__staging")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("swap without live", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateCollection(ctx, "staging")
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, "staging", batch("a.md", 2, 4)))
		require.NoError(t, s.Swap(ctx, "staging", "docs"))

		n, err := s.Count(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("swap missing staging", func(t *testing.T) {
		s := open(t)
		assert.ErrorIs(t, s.Swap(ctx, "ghost", "docs"), ErrCollectionNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store { return NewMemory() })
}

func TestBatch_Validate(t *testing.T) {
	dim, err := batch("a.md", 3, 5).Validate()
	require.NoError(t, err)
	assert.Equal(t, 5, dim)

	dim, err = Batch{}.Validate()
	require.NoError(t, err)
	assert.Zero(t, dim)

	b := batch("a.md", 2, 3)
	b.Embeddings[1] = []float32{1}
	_, err = b.Validate()
	assert.ErrorIs(t, err, ErrMisaligned)

	b = batch("a.md", 2, 3)
	b.IDs[1] = b.IDs[0]
	_, err = b.Validate()
	assert.ErrorIs(t, err, ErrMisaligned)
}
