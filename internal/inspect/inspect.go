// Package inspect summarises what a collection holds.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"docvault/internal/store"
)

// ErrAccess wraps any store failure other than a missing collection.
var ErrAccess = errors.New("error accessing vector store")

// UnknownFile labels chunks stored without a filename.
const UnknownFile = "Unknown"

// Status says which of the three listing outcomes applies.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusNotFound:
		return "not_found"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// FileSummary is one source file and how many chunks it produced.
type FileSummary struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// Listing is the per-file breakdown of a collection.
type Listing struct {
	Collection  string        `json:"collection"`
	Status      Status        `json:"-"`
	Files       []FileSummary `json:"files"`
	TotalFiles  int           `json:"total_files"`
	TotalChunks int           `json:"total_chunks"`
}

// Inspector reads collection contents without modifying them.
type Inspector struct {
	store store.Store
	log   *zap.Logger
}

// New returns an Inspector over s.
func New(s store.Store, log *zap.Logger) *Inspector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inspector{store: s, log: log}
}

// ListFiles groups the collection's chunks by filename, sorted by filename.
// A missing or empty collection is reported through Status, not an error.
func (in *Inspector) ListFiles(ctx context.Context, collection string) (*Listing, error) {
	out := &Listing{Collection: collection, Files: []FileSummary{}}

	_, found, err := in.store.Lookup(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccess, err)
	}
	if !found {
		out.Status = StatusNotFound
		return out, nil
	}

	got, err := in.store.Get(ctx, collection)
	if errors.Is(err, store.ErrCollectionNotFound) {
		// Dropped between Lookup and Get, e.g. by a staged swap.
		out.Status = StatusNotFound
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccess, err)
	}
	if len(got.Metadatas) == 0 {
		out.Status = StatusEmpty
		return out, nil
	}

	counts := make(map[string]int)
	for _, m := range got.Metadatas {
		name := m.Filename
		if name == "" {
			name = UnknownFile
		}
		counts[name]++
	}
	for name, n := range counts {
		out.Files = append(out.Files, FileSummary{Filename: name, ChunkCount: n})
	}
	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Filename < out.Files[j].Filename })

	out.Status = StatusOK
	out.TotalFiles = len(out.Files)
	out.TotalChunks = len(got.Metadatas)
	in.log.Debug("listed collection",
		zap.String("collection", collection), zap.Int("files", out.TotalFiles), zap.Int("chunks", out.TotalChunks))
	return out, nil
}

// Chunk is one stored chunk of a file.
type Chunk struct {
	ID          string `json:"id"`
	Index       int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	Text        string `json:"text"`
}

// FileChunks returns the chunks stored for filename, ordered by chunk index.
// A missing collection wraps store.ErrCollectionNotFound.
func (in *Inspector) FileChunks(ctx context.Context, collection, filename string) ([]Chunk, error) {
	got, err := in.store.Get(ctx, collection)
	if errors.Is(err, store.ErrCollectionNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccess, err)
	}

	var out []Chunk
	for i, m := range got.Metadatas {
		name := m.Filename
		if name == "" {
			name = UnknownFile
		}
		if name != filename {
			continue
		}
		out = append(out, Chunk{ID: got.IDs[i], Index: m.ChunkIndex, TotalChunks: m.TotalChunks, Text: got.Documents[i]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
