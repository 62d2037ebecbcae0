package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"distkv/internal/persist"
	"distkv/internal/store"
	"distkv/internal/value"
)

// Server exposes one node's versioned store over HTTP. It holds its
// collaborators explicitly; there is no package-level state.
type Server struct {
	store  *store.Store
	db     persist.Store
	logger hclog.Logger
}

// NewServer creates the node API over the given store and its backing
// persistence.
func NewServer(st *store.Store, db persist.Store, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{store: st, db: db, logger: logger}
}

// Handler returns the node's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /put/{key...}", s.handlePut)
	mux.HandleFunc("GET /get/{key...}", s.handleGet)
	mux.HandleFunc("GET /cache/stats", s.handleCacheStats)
	mux.HandleFunc("GET /db/stats", s.handleDBStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

type putRequest struct {
	Value value.Value `json:"value"`
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key cannot be empty")
		return
	}

	var req putRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	resp, err := s.store.Put(key, req.Value)
	if err != nil {
		s.logger.Error("put failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "put failed")
		return
	}

	s.logger.Debug("put", "key", key, "operation", resp.Operation, "version", resp.NewVersion)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key cannot be empty")
		return
	}

	version := persist.Latest
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid version %q", raw))
			return
		}
		version = v
	}

	result, err := s.store.Get(key, version)
	if errors.Is(err, persist.ErrNotFound) {
		if version == persist.Latest {
			writeError(w, http.StatusNotFound, fmt.Sprintf("key %q not found", key))
		} else {
			writeError(w, http.StatusNotFound, fmt.Sprintf("key %q version %d not found", key, version))
		}
		return
	}
	if err != nil {
		s.logger.Error("get failed", "key", key, "version", version, "error", err)
		writeError(w, http.StatusInternalServerError, "get failed")
		return
	}

	s.logger.Debug("get", "key", key, "version", result.Version, "source", result.Source)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleDBStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats()
	if err != nil {
		s.logger.Error("db stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "distkv-node",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
