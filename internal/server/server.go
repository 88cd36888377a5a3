// Package server exposes a read-only status API over a books directory.
// Every request reads the filesystem fresh; the server holds no book state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/config"
)

// Server serves project status over HTTP.
type Server struct {
	cfg config.ServerConfig
	log *slog.Logger
	hs  *http.Server
}

// New builds a status server.
func New(cfg config.ServerConfig) *Server {
	s := &Server{
		cfg: cfg,
		log: slog.Default().With("component", "server"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/books", s.handleBooks)
	mux.HandleFunc("GET /api/books/{dir}", s.handleBook)
	s.hs = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.hs.Handler }

// ListenAndServe blocks serving requests until the context is canceled or
// the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", "addr", s.cfg.Addr)
		errCh <- s.hs.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.hs.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// bookSummary is one row of the books listing.
type bookSummary struct {
	Dir      string   `json:"dir"`
	Title    string   `json:"title"`
	Author   string   `json:"author,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	Units    int      `json:"units"`
	Compiled bool     `json:"compiled"`
}

// bookDetail adds per-chapter state to a summary.
type bookDetail struct {
	bookSummary
	Language string             `json:"language,omitempty"`
	Chapters []book.ChapterMeta `json:"chapters"`
	Failed   []int              `json:"failed,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBooks(w http.ResponseWriter, _ *http.Request) {
	entries, err := os.ReadDir(s.cfg.BooksDir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, []bookSummary{})
			return
		}
		s.serverError(w, err)
		return
	}
	summaries := make([]bookSummary, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		summary, err := s.summarize(e.Name())
		if err != nil {
			s.log.Warn("unreadable project skipped", "dir", e.Name(), "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("dir")
	if name == "" || strings.ContainsAny(name, "/\\") || name == ".." {
		http.Error(w, "invalid project name", http.StatusBadRequest)
		return
	}
	dir := filepath.Join(s.cfg.BooksDir, name)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	summary, err := s.summarize(name)
	if err != nil {
		s.serverError(w, err)
		return
	}
	meta, err := book.LoadMeta(dir)
	if err != nil {
		s.serverError(w, err)
		return
	}
	detail := bookDetail{
		bookSummary: summary,
		Language:    meta.Language,
		Chapters:    meta.Chapters,
	}
	if detail.Chapters == nil {
		detail.Chapters = []book.ChapterMeta{}
	}
	if failed := readFailed(dir); len(failed) > 0 {
		detail.Failed = failed
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) summarize(name string) (bookSummary, error) {
	dir := filepath.Join(s.cfg.BooksDir, name)
	store, err := book.NewFSStore(dir)
	if err != nil {
		return bookSummary{}, err
	}
	units, err := store.List()
	if err != nil {
		return bookSummary{}, err
	}
	meta, err := book.LoadMeta(dir)
	if err != nil {
		return bookSummary{}, err
	}
	_, compiledErr := os.Stat(filepath.Join(dir, "book.md"))
	return bookSummary{
		Dir:      name,
		Title:    meta.Title,
		Author:   meta.Author,
		Genres:   meta.Genres,
		Units:    len(units),
		Compiled: compiledErr == nil,
	}, nil
}

// readFailed pulls the failed unit numbers from the generation checkpoint.
func readFailed(dir string) []int {
	data, err := os.ReadFile(filepath.Join(dir, book.ProgressFilename))
	if err != nil {
		return nil
	}
	var progress struct {
		Failed []int `json:"failed"`
	}
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil
	}
	return progress.Failed
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.log.Error("request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
