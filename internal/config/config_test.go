package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/embedder"
)

// isolate runs the test in an empty directory so no stray docvault.toml or
// .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"CHROMA_HOST", "VECTOR_STORE", "EMBED_PROVIDER", "PORT", "DATABASE_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "docvault", cfg.Collection)
	assert.Equal(t, []string{"md"}, cfg.Extensions)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, ProviderOpenAI, cfg.Embed.Provider)
	assert.Equal(t, embedder.DefaultOpenAIModel, cfg.EmbedModel())
}

func TestLoad_ChromaHostSelectsChroma(t *testing.T) {
	isolate(t)
	t.Setenv("CHROMA_HOST", "chroma.internal")
	t.Setenv("CHROMA_PORT", "9000")
	t.Setenv("CHROMA_SSL", "true")
	t.Setenv("CHROMA_AUTH_TOKEN", "tok")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendChroma, cfg.Store.Backend)
	assert.Equal(t, ChromaConfig{
		Host: "chroma.internal", Port: 9000, SSL: true, AuthToken: "tok",
		Tenant: "default_tenant", Database: "default_database",
	}, cfg.Store.Chroma)
}

func TestLoad_ExplicitBackendWins(t *testing.T) {
	isolate(t)
	t.Setenv("CHROMA_HOST", "chroma.internal")
	t.Setenv("VECTOR_STORE", "Memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
}

func TestLoad_TOMLThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
collection = "handbook"
extensions = ["md", "txt"]
chunk_size = 300
chunk_overlap = 50

[embed]
provider = "ollama"

[store]
backend = "postgres"
database_url = "postgres://localhost/docvault"
`), 0o644))
	t.Setenv("DOCVAULT_CHUNK_SIZE", "400")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "handbook", cfg.Collection)
	assert.Equal(t, []string{"md", "txt"}, cfg.Extensions)
	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, embedder.DefaultOllamaModel, cfg.EmbedModel())
}

func TestLoad_DefaultFileAndDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(`data_dir = "docs"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DOCVAULT_COLLECTION=from-dotenv\n"), 0o644))
	t.Setenv("DOCVAULT_COLLECTION", "")
	os.Unsetenv("DOCVAULT_COLLECTION")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.DataDir)
	assert.Equal(t, "from-dotenv", cfg.Collection)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.toml"))
	require.Error(t, err)
}

func TestLoad_BadEnvValues(t *testing.T) {
	isolate(t)
	t.Setenv("DOCVAULT_BATCH_SIZE", "lots")
	t.Setenv("CHROMA_SSL", "maybe")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "DOCVAULT_BATCH_SIZE")
	assert.Contains(t, err.Error(), "CHROMA_SSL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"bad port", func(c *Config) { c.Port = "http" }},
		{"unknown provider", func(c *Config) { c.Embed.Provider = "cohere" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"chroma without host", func(c *Config) { c.Store.Backend = BackendChroma }},
		{"postgres without url", func(c *Config) { c.Store.Backend = BackendPostgres }},
		{"empty collection", func(c *Config) { c.Collection = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Store.Backend = BackendSQLite
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	cfg.Store.Backend = BackendSQLite
	require.NoError(t, cfg.Validate())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"md", "txt"}, SplitList(" md, ,txt "))
	assert.Nil(t, SplitList(""))
}
