package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docvault/internal/chunker"
	"docvault/internal/embedder"
	"docvault/internal/source"
	"docvault/internal/store"
)

// ProgressFunc reports progress through a phase of a run.
type ProgressFunc func(phase string, done, total int)

// Progress phases.
const (
	PhaseDiscover = "Discovering documents..."
	PhaseChunk    = "Chunking documents..."
	PhaseEmbed    = "Embedding chunks..."
	PhaseStore    = "Writing to vector store..."
)

// Config holds the indexer configuration.
type Config struct {
	ChunkSize  int
	Overlap    int
	Extensions []string
	// Staged builds the new contents in a temporary collection and swaps it
	// in, so a failed run leaves the previous contents in place.
	Staged     bool
	OnProgress ProgressFunc
}

// Stats reports ingestion results.
type Stats struct {
	Collection string
	Files      int
	Chunks     int
	Batches    int
	Model      string
	Staged     bool
	Duration   time.Duration
}

// Indexer rebuilds a collection from the documents in a source directory.
type Indexer struct {
	store   store.Store
	batcher *embedder.Batcher
	config  Config
	log     *zap.Logger
}

// New creates a new Indexer. Chunking parameters are validated up front so
// a bad configuration never touches the store.
func New(s store.Store, b *embedder.Batcher, cfg Config, log *zap.Logger) (*Indexer, error) {
	if s == nil || b == nil {
		return nil, fmt.Errorf("%w: store and embedder are required", ErrConfig)
	}
	if cfg.ChunkSize == 0 && cfg.Overlap == 0 {
		cfg.ChunkSize, cfg.Overlap = chunker.DefaultChunkSize, chunker.DefaultOverlap
	}
	if err := chunker.Validate(cfg.ChunkSize, cfg.Overlap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{store: s, batcher: b, config: cfg, log: log}, nil
}

// Config returns the effective configuration.
func (idx *Indexer) Config() Config { return idx.config }

func (idx *Indexer) progress(phase string, done, total int) {
	if idx.config.OnProgress != nil {
		idx.config.OnProgress(phase, done, total)
	}
}

// Ingest clears the named collection and fills it with the chunks of every
// matching document in sourceDir.
func (idx *Indexer) Ingest(ctx context.Context, sourceDir, collection string) (*Stats, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is empty", ErrConfig)
	}
	start := time.Now()
	stats := &Stats{Collection: collection, Model: idx.batcher.Model(), Staged: idx.config.Staged}

	var err error
	if idx.config.Staged {
		err = idx.ingestStaged(ctx, sourceDir, collection, stats)
	} else {
		err = idx.ingestInPlace(ctx, sourceDir, collection, stats)
	}
	if err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	idx.log.Info("ingestion complete",
		zap.String("collection", collection),
		zap.Int("files", stats.Files),
		zap.Int("chunks", stats.Chunks),
		zap.Int("batches", stats.Batches),
		zap.Duration("took", stats.Duration))
	return stats, nil
}

// ingestInPlace resolves the collection first. A failure after the clear
// leaves the collection empty until the next successful run.
func (idx *Indexer) ingestInPlace(ctx context.Context, dir, collection string, stats *Stats) error {
	if err := idx.resolve(ctx, collection); err != nil {
		return err
	}

	recs, err := idx.prepare(ctx, dir)
	if err != nil {
		return err
	}
	stats.Files = recs.files
	stats.Chunks = len(recs.ids)

	vecs, batches, err := idx.embed(ctx, recs)
	if err != nil {
		return err
	}
	stats.Batches = batches

	return idx.commit(ctx, collection, recs, vecs)
}

// ingestStaged does all reading and embedding before touching the store.
func (idx *Indexer) ingestStaged(ctx context.Context, dir, collection string, stats *Stats) error {
	recs, err := idx.prepare(ctx, dir)
	if err != nil {
		return err
	}
	stats.Files = recs.files
	stats.Chunks = len(recs.ids)

	vecs, batches, err := idx.embed(ctx, recs)
	if err != nil {
		return err
	}
	stats.Batches = batches

	staging := StagingName(collection)
	if _, err := idx.store.CreateCollection(ctx, staging); err != nil {
		return fmt.Errorf("%w: create staging collection %s: %w", ErrStore, staging, err)
	}
	if err := idx.commit(ctx, staging, recs, vecs); err != nil {
		idx.dropStaging(staging)
		return err
	}
	if err := idx.store.Swap(ctx, staging, collection); err != nil {
		idx.dropStaging(staging)
		return fmt.Errorf("%w: swap %s into %s: %w", ErrStore, staging, collection, err)
	}
	idx.log.Debug("swapped staging collection", zap.String("staging", staging), zap.String("collection", collection))
	return nil
}

// StagingName returns a fresh temporary collection name for name.
func StagingName(name string) string {
	return name + "__staging_" + uuid.NewString()[:8]
}

func (idx *Indexer) dropStaging(name string) {
	// The run's ctx may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := idx.store.DeleteCollection(ctx, name); err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		idx.log.Warn("failed to drop staging collection", zap.String("staging", name), zap.Error(err))
	}
}

// resolve makes sure collection exists and is empty.
func (idx *Indexer) resolve(ctx context.Context, collection string) error {
	_, found, err := idx.store.Lookup(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: look up %s: %w", ErrStore, collection, err)
	}
	if found {
		idx.log.Info("clearing existing collection", zap.String("collection", collection))
		if err := idx.store.Clear(ctx, collection); err != nil {
			return fmt.Errorf("%w: clear %s: %w", ErrStore, collection, err)
		}
		return nil
	}
	idx.log.Info("creating collection", zap.String("collection", collection))
	if _, err := idx.store.CreateCollection(ctx, collection); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrStore, collection, err)
	}
	return nil
}

// prepare discovers and chunks documents.
func (idx *Indexer) prepare(ctx context.Context, dir string) (*records, error) {
	idx.progress(PhaseDiscover, 0, 0)
	docs, err := source.Discover(dir, idx.config.Extensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceRead, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx.log.Info("found documents", zap.String("dir", dir), zap.Int("files", len(docs)))

	done := 0
	return chunkDocuments(docs, idx.config.ChunkSize, idx.config.Overlap, func(doc source.Document, n int) {
		done++
		idx.log.Debug("processed document", zap.String("file", doc.Filename), zap.Int("chunks", n))
		idx.progress(PhaseChunk, done, len(docs))
	})
}

func (idx *Indexer) embed(ctx context.Context, recs *records) ([][]float32, int, error) {
	if len(recs.texts) == 0 {
		return nil, 0, nil
	}
	batches := idx.batcher.NumBatches(len(recs.texts))
	idx.progress(PhaseEmbed, 0, batches)
	vecs, err := idx.batcher.EmbedWithProgress(ctx, recs.texts, func(done, total int) {
		idx.progress(PhaseEmbed, done, total)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	return vecs, batches, nil
}

// commit writes every record in one Add. Nothing is written for zero chunks.
func (idx *Indexer) commit(ctx context.Context, collection string, recs *records, vecs [][]float32) error {
	if len(recs.ids) == 0 {
		idx.log.Info("no chunks to write", zap.String("collection", collection))
		return nil
	}
	idx.progress(PhaseStore, 0, 1)
	if err := idx.store.Add(ctx, collection, recs.batch(vecs)); err != nil {
		return fmt.Errorf("%w: add to %s: %w", ErrStore, collection, err)
	}
	idx.progress(PhaseStore, 1, 1)
	return nil
}
