package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound is returned by operations on a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when creating a name that is taken.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrMisaligned is returned for a batch whose slices differ in length.
	ErrMisaligned = errors.New("misaligned batch")
)

// Store persists named collections of chunk records and their embeddings.
type Store interface {
	// Lookup reports whether the named collection exists.
	Lookup(ctx context.Context, name string) (Collection, bool, error)
	// CreateCollection creates an empty collection.
	CreateCollection(ctx context.Context, name string) (Collection, error)
	// DeleteCollection drops a collection and everything in it.
	DeleteCollection(ctx context.Context, name string) error
	// Clear removes every record from a collection, keeping the collection.
	Clear(ctx context.Context, name string) error
	// Add writes a batch in one operation.
	Add(ctx context.Context, name string, batch Batch) error
	// Get returns every record's id, document and metadata.
	Get(ctx context.Context, name string) (*GetResult, error)
	// Count returns the number of records in a collection.
	Count(ctx context.Context, name string) (int, error)
	// Swap replaces the live collection with staging. Afterwards staging no
	// longer exists and live holds staging's records.
	Swap(ctx context.Context, staging, live string) error
	// Close releases resources.
	Close() error
}

// Validate checks that a batch is aligned and every vector has the same
// dimension. It returns that dimension (0 for an empty batch).
func (b Batch) Validate() (int, error) {
	n := len(b.IDs)
	if len(b.Documents) != n || len(b.Metadatas) != n || len(b.Embeddings) != n {
		return 0, fmt.Errorf("%w: %d ids, %d documents, %d metadatas, %d embeddings",
			ErrMisaligned, n, len(b.Documents), len(b.Metadatas), len(b.Embeddings))
	}
	if n == 0 {
		return 0, nil
	}

	dim := len(b.Embeddings[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty embedding for %s", ErrMisaligned, b.IDs[0])
	}
	seen := make(map[string]struct{}, n)
	for i, e := range b.Embeddings {
		if len(e) != dim {
			return 0, fmt.Errorf("%w: embedding %s has dimension %d, want %d", ErrMisaligned, b.IDs[i], len(e), dim)
		}
		if _, dup := seen[b.IDs[i]]; dup {
			return 0, fmt.Errorf("%w: duplicate id %s", ErrMisaligned, b.IDs[i])
		}
		seen[b.IDs[i]] = struct{}{}
	}
	return dim, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrCollectionNotFound)
}
