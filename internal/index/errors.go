package index

import "errors"

// Error kinds returned by Ingest. Each wraps the underlying cause.
var (
	ErrConfig     = errors.New("configuration error")
	ErrSourceRead = errors.New("source read error")
	ErrProvider   = errors.New("embedding provider error")
	ErrStore      = errors.New("vector store error")
)
