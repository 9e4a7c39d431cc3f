package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"docvault/internal/config"
	"docvault/internal/embedder"
	"docvault/internal/index"
	"docvault/internal/inspect"
	"docvault/internal/store"
)

// fakeOllama answers /api/embed with 3-dimensional vectors.
func fakeOllama(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := struct {
			Embeddings [][]float32 `json:"embeddings"`
		}{}
		for _, in := range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(len(in)), 0, 1})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	s, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	cfg.Store.Backend = config.BackendSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "v.db")
	s, err = OpenStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, s)
	require.NoError(t, s.Close())

	cfg.Store.Backend = config.BackendChroma
	cfg.Store.Chroma.Host = "localhost"
	s, err = OpenStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.ChromaStore{}, s)

	cfg.Store.Backend = "redis"
	_, err = OpenStore(ctx, cfg)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewEmbedder(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	_, err := NewEmbedder(ctx, cfg)
	require.Error(t, err, "openai needs a key")

	cfg.Embed.OpenAIAPIKey = "sk-test"
	e, err := NewEmbedder(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, embedder.DefaultOpenAIModel, e.Model())

	cfg.Embed.Provider = config.ProviderOllama
	e, err = NewEmbedder(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, embedder.DefaultOllamaModel, e.Model())

	cfg.Embed.Provider = "cohere"
	_, err = NewEmbedder(ctx, cfg)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestIndexer_MissingKeyIsConfigError(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Indexer(context.Background(), nil)
	require.ErrorIs(t, err, index.ErrConfig)
}

func TestIngestThenInspect(t *testing.T) {
	ctx := context.Background()
	data := t.TempDir()
	for name, n := range map[string]int{"a.md": 25, "b.md": 25} {
		words := strings.Repeat("word ", n)
		require.NoError(t, os.WriteFile(filepath.Join(data, name), []byte(words), 0o644))
	}

	cfg := config.Default()
	cfg.Store.Backend = config.BackendSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "vectors.db")
	cfg.Embed.Provider = config.ProviderOllama
	cfg.Embed.OllamaURL = fakeOllama(t).URL
	cfg.ChunkSize, cfg.ChunkOverlap = 10, 2
	cfg.BatchSize = 4

	a, err := New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	idx, err := a.Indexer(ctx, nil)
	require.NoError(t, err)
	stats, err := idx.Ingest(ctx, data, cfg.Collection)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	// 25 words, stride 8: windows at 0, 8, 16.
	assert.Equal(t, 6, stats.Chunks)
	assert.Equal(t, 2, stats.Batches)

	l, err := a.Inspector().ListFiles(ctx, cfg.Collection)
	require.NoError(t, err)
	assert.Equal(t, inspect.StatusOK, l.Status)
	assert.Equal(t, []inspect.FileSummary{{Filename: "a.md", ChunkCount: 3}, {Filename: "b.md", ChunkCount: 3}}, l.Files)
	assert.Equal(t, 6, l.TotalChunks)
}
