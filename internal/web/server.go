// Package web serves a read-only HTML view of a collection.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docvault/internal/inspect"
)

//go:embed templates/index.html
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "templates/index.html"))

const shutdownTimeout = 10 * time.Second

// Lister is the read path the server renders.
type Lister interface {
	ListFiles(ctx context.Context, collection string) (*inspect.Listing, error)
}

// Server renders the file listing of one collection.
type Server struct {
	lister     Lister
	collection string
	log        *zap.Logger
}

// NewServer creates a Server for collection.
func NewServer(l Lister, collection string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{lister: l, collection: collection, log: log}
}

type page struct {
	Collection  string
	Message     string
	Files       []inspect.FileSummary
	TotalFiles  int
	TotalChunks int
}

// Message returns the text shown instead of a listing, or "" when there are
// files to show.
func Message(collection string, l *inspect.Listing, err error) string {
	if err != nil {
		cause := strings.TrimPrefix(err.Error(), inspect.ErrAccess.Error()+": ")
		return "Error accessing vector store: " + cause
	}
	switch l.Status {
	case inspect.StatusNotFound:
		return fmt.Sprintf("Collection '%s' not found. Please run `docvault ingest` first.", collection)
	case inspect.StatusEmpty:
		return "No documents found in the collection. Run `docvault ingest` first."
	}
	return ""
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/api/files", s.handleFiles)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// handleIndex always answers 200; problems are rendered as a message.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	l, err := s.lister.ListFiles(r.Context(), s.collection)
	if err != nil {
		s.log.Error("list files failed", zap.String("collection", s.collection), zap.Error(err))
	}

	p := page{Collection: s.collection, Message: Message(s.collection, l, err)}
	if p.Message == "" {
		p.Files = l.Files
		p.TotalFiles = l.TotalFiles
		p.TotalChunks = l.TotalChunks
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := indexTmpl.Execute(w, p); err != nil {
		s.log.Error("render page", zap.Error(err))
	}
}

type filesResponse struct {
	*inspect.Listing
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	l, err := s.lister.ListFiles(r.Context(), s.collection)
	resp := filesResponse{Listing: l, Message: Message(s.collection, l, err)}
	code := http.StatusOK
	if err != nil {
		s.log.Error("list files failed", zap.String("collection", s.collection), zap.Error(err))
		resp.Listing = &inspect.Listing{Collection: s.collection, Files: []inspect.FileSummary{}}
		resp.Status = "error"
		code = http.StatusBadGateway
	} else {
		resp.Status = l.Status.String()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("HTTP server listening", zap.String("addr", ln.Addr().String()), zap.String("collection", s.collection))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
