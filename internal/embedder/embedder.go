package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Embedder turns a batch of texts into vectors. Implementations must return
// exactly one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ErrPermanent marks failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent embedding failure")

// StatusError is a non-200 response from an embedding API.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s embed returned %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether the status code signals a transient condition.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// IsRetryable classifies an embedding error. Transport errors are retried;
// context cancellation, permanent errors and 4xx responses are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrPermanent) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

func checkCount(provider string, want, got int) error {
	if want != got {
		return fmt.Errorf("%w: %s: expected %d embeddings, got %d", ErrPermanent, provider, want, got)
	}
	return nil
}
