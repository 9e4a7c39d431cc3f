package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Batching defaults.
const (
	DefaultBatchSize   = 100
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
)

// ErrInvalidBatchSize is returned for a batch size below one.
var ErrInvalidBatchSize = errors.New("invalid batch size")

// BatchFunc is called after each batch completes.
type BatchFunc func(done, total int)

// Batcher splits texts into fixed-size batches and embeds them one batch at
// a time, retrying transient failures with exponential backoff.
type Batcher struct {
	emb         Embedder
	size        int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	limiter     *rate.Limiter
	log         *zap.Logger
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithBatchSize sets the maximum number of texts per provider call.
func WithBatchSize(n int) Option {
	return func(b *Batcher) { b.size = n }
}

// WithMaxAttempts bounds the calls made per batch, including the first.
func WithMaxAttempts(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and the delay cap.
func WithBackoff(base, limit time.Duration) Option {
	return func(b *Batcher) {
		if base > 0 {
			b.baseDelay = base
		}
		if limit > 0 {
			b.maxDelay = limit
		}
	}
}

// WithRateLimit throttles provider calls to rps requests per second.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(b *Batcher) {
		if rps <= 0 {
			b.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Batcher) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBatcher wraps emb with batching and retry.
func NewBatcher(emb Embedder, opts ...Option) (*Batcher, error) {
	if emb == nil {
		return nil, errors.New("batcher: nil embedder")
	}
	b := &Batcher{
		emb:         emb,
		size:        DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, b.size)
	}
	return b, nil
}

// BatchSize returns the configured batch size.
func (b *Batcher) BatchSize() int { return b.size }

// Model returns the wrapped embedder's model name.
func (b *Batcher) Model() string { return b.emb.Model() }

// NumBatches returns how many provider calls n texts need.
func (b *Batcher) NumBatches(n int) int {
	return (n + b.size - 1) / b.size
}

// Embed returns one vector per text, aligned with texts.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return b.EmbedWithProgress(ctx, texts, nil)
}

// EmbedWithProgress is Embed with a per-batch callback.
func (b *Batcher) EmbedWithProgress(ctx context.Context, texts []string, onBatch BatchFunc) ([][]float32, error) {
	total := b.NumBatches(len(texts))
	out := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += b.size {
		end := min(i+b.size, len(texts))
		n := i/b.size + 1
		b.log.Info("getting embeddings for batch",
			zap.Int("batch", n), zap.Int("batches", total), zap.Int("size", end-i))

		vecs, err := b.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", n, total, err)
		}
		out = append(out, vecs...)
		if onBatch != nil {
			onBatch(n, total)
		}
	}
	return out, nil
}

func (b *Batcher) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	delay := b.baseDelay
	var lastErr error

	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vecs, err := b.emb.Embed(ctx, batch)
		if err == nil {
			if err := checkCount(b.emb.Model(), len(batch), len(vecs)); err != nil {
				return nil, err
			}
			return vecs, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == b.maxAttempts {
			break
		}
		b.log.Warn("embedding batch failed, retrying",
			zap.Int("attempt", attempt), zap.Duration("backoff", delay), zap.Error(err))

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = min(delay*2, b.maxDelay)
	}
	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
