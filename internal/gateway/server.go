package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"distkv/internal/router"
)

// ForwardTimeout bounds every proxied backend call. A backend that does
// not answer within this window fails the request; the gateway never
// retries.
const ForwardTimeout = 30 * time.Second

// Server is the stateless routing gateway: it resolves a target node
// for each request, proxies the request there, and records per-node
// latency for the insights report.
type Server struct {
	router *router.Router
	client *http.Client
	logger hclog.Logger
}

// NewServer creates a gateway over the given router.
func NewServer(rt *router.Router, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		router: rt,
		client: &http.Client{Timeout: ForwardTimeout},
		logger: logger,
	}
}

// Handler returns the gateway's route table. The insight and health
// endpoints are served locally; everything else is forwarded.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /insights", s.handleInsights)
	mux.HandleFunc("GET /gateway/metrics", s.handleMetrics)
	mux.HandleFunc("GET /gateway/health", s.handleHealth)
	mux.HandleFunc("/", s.handleForward)
	return mux
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	override := r.URL.Query().Get("server")

	target, err := s.router.Resolve(path, override)
	if err != nil {
		s.writeRoutingError(w, path, err)
		return
	}

	targetURL := fmt.Sprintf("http://%s/%s", target, path)
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, r.Body)
	if err != nil {
		s.logger.Error("building backend request failed", "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "gateway error")
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.writeUpstreamError(w, target, path, err)
		return
	}
	defer resp.Body.Close()

	latencyMS := float64(time.Since(start).Microseconds()) / 1000
	s.router.Metrics().Record(target, latencyMS)
	s.logger.Debug("forwarded", "path", path, "target", target, "status", resp.StatusCode, "latency_ms", latencyMS)

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// writeRoutingError maps the router taxonomy onto HTTP statuses:
// an empty ring is service-unavailable, a bad or missing target is the
// caller's error.
func (s *Server) writeRoutingError(w http.ResponseWriter, path string, err error) {
	var missing *router.MissingTargetError
	var unknown *router.UnknownNodeError

	switch {
	case errors.Is(err, router.ErrNoServers):
		s.logger.Warn("no servers configured", "path", path)
		writeError(w, http.StatusServiceUnavailable, "no servers configured")
	case errors.As(err, &missing), errors.As(err, &unknown):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("routing failed", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "routing failed")
	}
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, target, path string, err error) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.logger.Warn("backend timed out", "target", target, "path", path)
		writeError(w, http.StatusGatewayTimeout, fmt.Sprintf("backend %s timed out", target))
		return
	}
	s.logger.Warn("backend unavailable", "target", target, "path", path, "error", err)
	writeError(w, http.StatusBadGateway, fmt.Sprintf("backend %s unavailable", target))
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	report, err := s.router.Insights()
	if errors.Is(err, router.ErrNoMetrics) {
		writeJSON(w, http.StatusOK, map[string]string{"error": "no metrics data available"})
		return
	}
	if err != nil {
		s.logger.Error("insights failed", "error", err)
		writeError(w, http.StatusInternalServerError, "insights failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.router.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "distkv-gateway",
		"servers": s.router.Nodes(),
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
