package api

import (
	"errors"
	"net/http"

	"github.com/okian/tracker/internal/adapters/repository"
)

// handleStats handles GET /stats requests.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	summary, err := s.deps.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, WrapKind(op, ErrStorage, err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleExport handles GET /export requests.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw, err := s.deps.Export(r.Context())
	if errors.Is(err, repository.ErrEmpty) {
		s.writeError(w, r, WrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		s.writeError(w, r, WrapKind(op, ErrStorage, err))
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", `attachment; filename="events.jsonl"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// handleClear handles POST /clear requests.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := s.deps.Clear(r.Context()); err != nil {
		s.writeError(w, r, WrapKind(op, ErrStorage, err))
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
