package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Chroma defaults.
const (
	DefaultChromaPort     = 8000
	DefaultChromaTenant   = "default_tenant"
	DefaultChromaDatabase = "default_database"
)

// ChromaConfig locates a Chroma server.
type ChromaConfig struct {
	Host      string
	Port      int
	SSL       bool
	AuthToken string
	Tenant    string
	Database  string
	Timeout   time.Duration
}

// BaseURL returns the server root, e.g. http://localhost:8000.
func (c ChromaConfig) BaseURL() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	port := c.Port
	if port == 0 {
		port = DefaultChromaPort
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, port)
}

// ChromaStore implements Store against the Chroma v2 REST API.
type ChromaStore struct {
	base   string
	token  string
	client *http.Client
}

var _ Store = (*ChromaStore)(nil)

// NewChroma returns a client for the configured server. It does not dial.
func NewChroma(cfg ChromaConfig) (*ChromaStore, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("chroma: host is required")
	}
	return newChromaWithBase(cfg.BaseURL(), cfg)
}

func newChromaWithBase(root string, cfg ChromaConfig) (*ChromaStore, error) {
	tenant, database := cfg.Tenant, cfg.Database
	if tenant == "" {
		tenant = DefaultChromaTenant
	}
	if database == "" {
		database = DefaultChromaDatabase
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &ChromaStore{
		base: fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s",
			strings.TrimRight(root, "/"), url.PathEscape(tenant), url.PathEscape(database)),
		token:  cfg.AuthToken,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chromaError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// A 404, or an error body naming a missing collection, maps to
// ErrCollectionNotFound.
func (s *ChromaStore) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("chroma %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var ce chromaError
		_ = json.Unmarshal(raw, &ce)
		msg := strings.TrimSpace(ce.Message + " " + ce.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if resp.StatusCode == http.StatusNotFound || strings.Contains(msg, "does not exist") {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, msg)
		}
		if resp.StatusCode == http.StatusConflict || strings.Contains(msg, "already exists") {
			return fmt.Errorf("%w: %s", ErrCollectionExists, msg)
		}
		return fmt.Errorf("chroma %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode chroma response: %w", err)
	}
	return nil
}

func (s *ChromaStore) collection(ctx context.Context, name string) (chromaCollection, error) {
	var c chromaCollection
	err := s.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(name), nil, &c)
	return c, err
}

func (s *ChromaStore) Lookup(ctx context.Context, name string) (Collection, bool, error) {
	c, err := s.collection(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return Collection{}, false, nil
		}
		return Collection{}, false, err
	}
	return Collection{ID: c.ID, Name: c.Name}, true, nil
}

func (s *ChromaStore) CreateCollection(ctx context.Context, name string) (Collection, error) {
	var c chromaCollection
	in := map[string]any{"name": name, "get_or_create": false}
	if err := s.do(ctx, http.MethodPost, "/collections", in, &c); err != nil {
		return Collection{}, err
	}
	return Collection{ID: c.ID, Name: c.Name}, nil
}

func (s *ChromaStore) DeleteCollection(ctx context.Context, name string) error {
	return s.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(name), nil, nil)
}

type chromaGetResponse struct {
	IDs       []string   `json:"ids"`
	Documents []*string  `json:"documents"`
	Metadatas []Metadata `json:"metadatas"`
}

func (s *ChromaStore) Clear(ctx context.Context, name string) error {
	c, err := s.collection(ctx, name)
	if err != nil {
		return err
	}
	var got chromaGetResponse
	if err := s.do(ctx, http.MethodPost, "/collections/"+c.ID+"/get",
		map[string]any{"include": []string{}}, &got); err != nil {
		return err
	}
	if len(got.IDs) == 0 {
		return nil
	}
	return s.do(ctx, http.MethodPost, "/collections/"+c.ID+"/delete",
		map[string]any{"ids": got.IDs}, nil)
}

func (s *ChromaStore) Add(ctx context.Context, name string, b Batch) error {
	dim, err := b.Validate()
	if err != nil {
		return err
	}
	c, err := s.collection(ctx, name)
	if err != nil {
		return err
	}
	if dim == 0 {
		return nil
	}
	in := map[string]any{
		"ids":        b.IDs,
		"documents":  b.Documents,
		"metadatas":  b.Metadatas,
		"embeddings": b.Embeddings,
	}
	return s.do(ctx, http.MethodPost, "/collections/"+c.ID+"/add", in, nil)
}

func (s *ChromaStore) Get(ctx context.Context, name string) (*GetResult, error) {
	c, err := s.collection(ctx, name)
	if err != nil {
		return nil, err
	}
	var got chromaGetResponse
	in := map[string]any{"include": []string{"documents", "metadatas"}}
	if err := s.do(ctx, http.MethodPost, "/collections/"+c.ID+"/get", in, &got); err != nil {
		return nil, err
	}

	out := &GetResult{
		IDs:       got.IDs,
		Documents: make([]string, len(got.IDs)),
		Metadatas: make([]Metadata, len(got.IDs)),
	}
	for i := range got.IDs {
		if i < len(got.Documents) && got.Documents[i] != nil {
			out.Documents[i] = *got.Documents[i]
		}
		if i < len(got.Metadatas) {
			out.Metadatas[i] = got.Metadatas[i]
		}
	}
	return out, nil
}

func (s *ChromaStore) Count(ctx context.Context, name string) (int, error) {
	c, err := s.collection(ctx, name)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.do(ctx, http.MethodGet, "/collections/"+c.ID+"/count", nil, &n)
	return n, err
}

// Swap deletes live and renames staging. Chroma has no transactions, so a
// reader between the two calls sees no live collection.
func (s *ChromaStore) Swap(ctx context.Context, staging, live string) error {
	st, err := s.collection(ctx, staging)
	if err != nil {
		return err
	}
	if err := s.DeleteCollection(ctx, live); err != nil && !isNotFound(err) {
		return err
	}
	return s.do(ctx, http.MethodPut, "/collections/"+st.ID, map[string]any{"new_name": live}, nil)
}

func (s *ChromaStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
