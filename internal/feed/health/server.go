package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/infra/remote"
	"github.com/vietddude/catfeed/internal/infra/storage"
)

// Server provides HTTP endpoints for the feed.
type Server struct {
	feed    Feed
	sources []remote.Source
	journal storage.JournalRepository
	server  *http.Server
}

// NewServer creates a new HTTP server. journal may be nil.
func NewServer(feed Feed, sources []remote.Source, journal storage.JournalRepository, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		feed:    feed,
		sources: sources,
		journal: journal,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/facts/recent", s.handleRecent)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Serve serves on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.server.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := Evaluate(s.feed, s.sources)

	status := http.StatusOK
	if report.Status == StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.Status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Evaluate(s.feed, s.sources))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	res, ok := s.feed.Current()
	if !ok {
		writeJSON(w, http.StatusOK, domain.ResultView{Kind: domain.KindNone})
		return
	}
	writeJSON(w, http.StatusOK, domain.ViewOf(res))
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*storage.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
