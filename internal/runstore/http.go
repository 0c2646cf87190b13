package runstore

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/logger"
)

const maxListLimit = 1000

// HTTPServer serves stored sessions read-only:
//
//	GET /healthz
//	GET /v1/sessions?limit=N
//	GET /v1/sessions/{id}
//	GET /v1/sessions/{id}/records?stage=S
type HTTPServer struct {
	mux   *http.ServeMux
	store Store
}

func NewHTTPServer(store Store) *HTTPServer {
	s := &HTTPServer{
		mux:   http.NewServeMux(),
		store: store,
	}
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("/v1/sessions/", s.handleSessionByID)
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, maxListLimit)
		}
	}
	sessions, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"limit":    limit,
	})
}

func (s *HTTPServer) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	if id, ok := strings.CutSuffix(path, "/records"); ok {
		recs, err := s.store.Records(r.Context(), id, r.URL.Query().Get("stage"))
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		if recs == nil {
			recs = []StoredRecord{}
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"records": recs})
		return
	}
	if strings.Contains(path, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	sess, err := s.store.Get(r.Context(), path)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *HTTPServer) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
