// Package app builds the store, embedder and services from configuration.
package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"docvault/internal/config"
	"docvault/internal/embedder"
	"docvault/internal/index"
	"docvault/internal/inspect"
	"docvault/internal/store"
)

// App owns the long-lived clients of one process.
type App struct {
	Config *config.Config
	Store  store.Store
	Log    *zap.Logger

	closers []io.Closer
}

// New opens the configured vector store.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("vector store ready", zap.String("backend", cfg.Store.Backend))
	return &App{Config: cfg, Store: s, Log: log, closers: []io.Closer{s}}, nil
}

// OpenStore returns the backend selected by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite, "":
		return store.OpenSQLite(cfg.Store.SQLitePath)
	case config.BackendChroma:
		c := cfg.Store.Chroma
		return store.NewChroma(store.ChromaConfig{
			Host:      c.Host,
			Port:      c.Port,
			SSL:       c.SSL,
			AuthToken: c.AuthToken,
			Tenant:    c.Tenant,
			Database:  c.Database,
		})
	case config.BackendPostgres:
		return store.OpenPostgres(ctx, cfg.Store.DatabaseURL)
	case config.BackendMemory:
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: unknown vector store %q", config.ErrInvalid, cfg.Store.Backend)
}

// NewEmbedder returns the provider selected by cfg.Embed.Provider.
func NewEmbedder(ctx context.Context, cfg *config.Config) (embedder.Embedder, error) {
	model := cfg.EmbedModel()
	switch cfg.Embed.Provider {
	case config.ProviderOpenAI, "":
		return embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			APIKey:  cfg.Embed.OpenAIAPIKey,
			BaseURL: cfg.Embed.OpenAIBaseURL,
			Model:   model,
		})
	case config.ProviderOllama:
		return embedder.NewOllamaEmbedder(cfg.Embed.OllamaURL, model), nil
	case config.ProviderGemini:
		return embedder.NewGeminiEmbedder(ctx, cfg.Embed.GeminiAPIKey, model)
	}
	return nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalid, cfg.Embed.Provider)
}

// Indexer builds an ingestion orchestrator on the app's store.
func (a *App) Indexer(ctx context.Context, onProgress index.ProgressFunc) (*index.Indexer, error) {
	emb, err := NewEmbedder(ctx, a.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrConfig, err)
	}
	if c, ok := emb.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	b, err := embedder.NewBatcher(emb,
		embedder.WithBatchSize(a.Config.BatchSize),
		embedder.WithMaxAttempts(a.Config.Embed.MaxRetries),
		embedder.WithRateLimit(a.Config.Embed.RequestsPerSecond, 1),
		embedder.WithLogger(a.Log),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrConfig, err)
	}

	return index.New(a.Store, b, index.Config{
		ChunkSize:  a.Config.ChunkSize,
		Overlap:    a.Config.ChunkOverlap,
		Extensions: a.Config.Extensions,
		Staged:     a.Config.Staged,
		OnProgress: onProgress,
	}, a.Log)
}

// Inspector returns a read-only view over the app's store.
func (a *App) Inspector() *inspect.Inspector {
	return inspect.New(a.Store, a.Log)
}

// Close releases every client in reverse order of creation.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
