package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type memCollection struct {
	id      string
	dim     int
	ids     []string
	docs    []string
	metas   []Metadata
	vectors [][]float32
}

// MemoryStore is an in-process Store. Contents are lost on Close.
type MemoryStore struct {
	mu   sync.RWMutex
	cols map[string]*memCollection
}

var _ Store = (*MemoryStore)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{cols: make(map[string]*memCollection)}
}

func (m *MemoryStore) get(name string) (*memCollection, error) {
	c, ok := m.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

func (m *MemoryStore) Lookup(_ context.Context, name string) (Collection, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cols[name]
	if !ok {
		return Collection{}, false, nil
	}
	return Collection{ID: c.id, Name: name}, true, nil
}

func (m *MemoryStore) CreateCollection(_ context.Context, name string) (Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cols[name]; ok {
		return Collection{}, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	c := &memCollection{id: uuid.NewString()}
	m.cols[name] = c
	return Collection{ID: c.id, Name: name}, nil
}

func (m *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(name); err != nil {
		return err
	}
	delete(m.cols, name)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(name)
	if err != nil {
		return err
	}
	m.cols[name] = &memCollection{id: c.id}
	return nil
}

func (m *MemoryStore) Add(_ context.Context, name string, b Batch) error {
	dim, err := b.Validate()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(name)
	if err != nil {
		return err
	}
	if dim == 0 {
		return nil
	}
	if c.dim != 0 && c.dim != dim {
		return fmt.Errorf("%w: collection %s stores dimension %d, batch has %d", ErrMisaligned, name, c.dim, dim)
	}
	existing := make(map[string]struct{}, len(c.ids))
	for _, id := range c.ids {
		existing[id] = struct{}{}
	}
	for _, id := range b.IDs {
		if _, dup := existing[id]; dup {
			return fmt.Errorf("%w: id %s already stored", ErrMisaligned, id)
		}
	}

	c.dim = dim
	c.ids = append(c.ids, b.IDs...)
	c.docs = append(c.docs, b.Documents...)
	c.metas = append(c.metas, b.Metadatas...)
	for _, v := range b.Embeddings {
		c.vectors = append(c.vectors, append([]float32(nil), v...))
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, name string) (*GetResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return &GetResult{
		IDs:       append([]string(nil), c.ids...),
		Documents: append([]string(nil), c.docs...),
		Metadatas: append([]Metadata(nil), c.metas...),
	}, nil
}

func (m *MemoryStore) Count(_ context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.get(name)
	if err != nil {
		return 0, err
	}
	return len(c.ids), nil
}

func (m *MemoryStore) Swap(_ context.Context, staging, live string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(staging)
	if err != nil {
		return err
	}
	delete(m.cols, staging)
	m.cols[live] = c
	return nil
}

func (m *MemoryStore) Close() error { return nil }
