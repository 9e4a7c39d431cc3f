// Package config loads docvault settings from defaults, an optional TOML
// file, a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"docvault/internal/chunker"
	"docvault/internal/embedder"
	"docvault/internal/store"
)

// DefaultFile is read when no --config path is given and it exists.
const DefaultFile = "docvault.toml"

// ErrInvalid is returned for unusable settings.
var ErrInvalid = errors.New("invalid configuration")

// Vector store backends.
const (
	BackendSQLite   = "sqlite"
	BackendChroma   = "chroma"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

type Config struct {
	DataDir      string   `toml:"data_dir"`
	Collection   string   `toml:"collection"`
	Extensions   []string `toml:"extensions"`
	ChunkSize    int      `toml:"chunk_size"`
	ChunkOverlap int      `toml:"chunk_overlap"`
	BatchSize    int      `toml:"batch_size"`
	Staged       bool     `toml:"staged"`
	Port         string   `toml:"port"`

	Embed EmbedConfig `toml:"embed"`
	Store StoreConfig `toml:"store"`
}

type EmbedConfig struct {
	Provider          string  `toml:"provider"`
	Model             string  `toml:"model"`
	OpenAIAPIKey      string  `toml:"openai_api_key"`
	OpenAIBaseURL     string  `toml:"openai_base_url"`
	OllamaURL         string  `toml:"ollama_url"`
	GeminiAPIKey      string  `toml:"gemini_api_key"`
	MaxRetries        int     `toml:"max_retries"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

type StoreConfig struct {
	// Backend is one of the Backend constants. Empty selects chroma when a
	// Chroma host is configured and sqlite otherwise.
	Backend     string       `toml:"backend"`
	SQLitePath  string       `toml:"sqlite_path"`
	DatabaseURL string       `toml:"database_url"`
	Chroma      ChromaConfig `toml:"chroma"`
}

type ChromaConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	SSL       bool   `toml:"ssl"`
	AuthToken string `toml:"auth_token"`
	Tenant    string `toml:"tenant"`
	Database  string `toml:"database"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataDir:      "data",
		Collection:   "docvault",
		Extensions:   []string{"md"},
		ChunkSize:    chunker.DefaultChunkSize,
		ChunkOverlap: chunker.DefaultOverlap,
		BatchSize:    embedder.DefaultBatchSize,
		Port:         "5000",
		Embed: EmbedConfig{
			Provider:   ProviderOpenAI,
			OllamaURL:  embedder.DefaultOllamaURL,
			MaxRetries: embedder.DefaultMaxAttempts,
		},
		Store: StoreConfig{
			SQLitePath: store.DefaultSQLitePath,
			Chroma: ChromaConfig{
				Port:     store.DefaultChromaPort,
				Tenant:   store.DefaultChromaTenant,
				Database: store.DefaultChromaDatabase,
			},
		},
	}
}

// Load builds the configuration. path names a TOML file that must exist;
// when empty, DefaultFile is used if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			file = DefaultFile
		}
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalid, file, err)
		}
	}

	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.resolveBackend()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolveBackend() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Embed.Provider = strings.ToLower(strings.TrimSpace(c.Embed.Provider))
	if c.Store.Backend != "" {
		return
	}
	if c.Store.Chroma.Host != "" {
		c.Store.Backend = BackendChroma
	} else {
		c.Store.Backend = BackendSQLite
	}
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, key, v))
				return
			}
			*dst = b
		}
	}

	str("DOCVAULT_DATA_DIR", &c.DataDir)
	str("DOCVAULT_COLLECTION", &c.Collection)
	if v, ok := os.LookupEnv("DOCVAULT_EXTENSIONS"); ok {
		c.Extensions = SplitList(v)
	}
	num("DOCVAULT_CHUNK_SIZE", &c.ChunkSize)
	num("DOCVAULT_CHUNK_OVERLAP", &c.ChunkOverlap)
	num("DOCVAULT_BATCH_SIZE", &c.BatchSize)
	flag("DOCVAULT_STAGED", &c.Staged)
	str("PORT", &c.Port)

	str("EMBED_PROVIDER", &c.Embed.Provider)
	str("EMBED_MODEL", &c.Embed.Model)
	str("OPENAI_API_KEY", &c.Embed.OpenAIAPIKey)
	str("OPENAI_BASE_URL", &c.Embed.OpenAIBaseURL)
	str("OLLAMA_URL", &c.Embed.OllamaURL)
	str("GEMINI_API_KEY", &c.Embed.GeminiAPIKey)
	num("EMBED_MAX_RETRIES", &c.Embed.MaxRetries)
	if v, ok := os.LookupEnv("EMBED_REQUESTS_PER_SECOND"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: EMBED_REQUESTS_PER_SECOND=%q is not a number", ErrInvalid, v))
		} else {
			c.Embed.RequestsPerSecond = f
		}
	}

	str("VECTOR_STORE", &c.Store.Backend)
	str("DOCVAULT_DB", &c.Store.SQLitePath)
	str("DATABASE_URL", &c.Store.DatabaseURL)
	str("CHROMA_HOST", &c.Store.Chroma.Host)
	num("CHROMA_PORT", &c.Store.Chroma.Port)
	flag("CHROMA_SSL", &c.Store.Chroma.SSL)
	str("CHROMA_AUTH_TOKEN", &c.Store.Chroma.AuthToken)
	str("CHROMA_TENANT", &c.Store.Chroma.Tenant)
	str("CHROMA_DATABASE", &c.Store.Chroma.Database)

	return errors.Join(errs...)
}

// Validate reports every unusable setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Collection == "" {
		bad("collection name is empty")
	}
	if err := chunker.Validate(c.ChunkSize, c.ChunkOverlap); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if c.BatchSize < 1 {
		bad("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.Embed.MaxRetries < 1 {
		bad("max retries must be at least 1, got %d", c.Embed.MaxRetries)
	}
	if c.Embed.RequestsPerSecond < 0 {
		bad("requests per second must not be negative")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		bad("port %q is not a valid TCP port", c.Port)
	}

	switch c.Embed.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderGemini:
	default:
		bad("unknown embedding provider %q", c.Embed.Provider)
	}

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			bad("sqlite path is empty")
		}
	case BackendChroma:
		if c.Store.Chroma.Host == "" {
			bad("chroma backend needs CHROMA_HOST")
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			bad("postgres backend needs DATABASE_URL")
		}
	case BackendMemory:
	default:
		bad("unknown vector store %q", c.Store.Backend)
	}

	return errors.Join(errs...)
}

// EmbedModel returns the configured model or the provider's default.
func (c *Config) EmbedModel() string {
	if c.Embed.Model != "" {
		return c.Embed.Model
	}
	switch c.Embed.Provider {
	case ProviderOllama:
		return embedder.DefaultOllamaModel
	case ProviderGemini:
		return embedder.DefaultGeminiModel
	}
	return embedder.DefaultOpenAIModel
}

// SplitList parses a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
