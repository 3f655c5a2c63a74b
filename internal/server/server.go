// Package server exposes the HTTP façade: the data endpoints recovered from
// the original service plus the administrative policy surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vthibault/annonce/internal/core/domain"
	"github.com/vthibault/annonce/internal/guard/identity"
	"github.com/vthibault/annonce/internal/guard/policy"
	"github.com/vthibault/annonce/internal/infra/storage/postgres"
	"github.com/vthibault/annonce/internal/upstream"
)

// AdsClient is the read surface the façade serves.
type AdsClient interface {
	Search(ctx context.Context, q upstream.SearchQuery) (json.RawMessage, error)
	SearchRaw(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	Ad(ctx context.Context, id string) (json.RawMessage, error)
	User(ctx context.Context, id string) (json.RawMessage, error)
}

// maxJournalLimit caps one journal page regardless of the requested limit.
const maxJournalLimit = 500

// JournalReader lists recent call summaries for diagnostics.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]postgres.CallRow, error)
}

// Server wires the routes over the dispatcher and the policy store.
type Server struct {
	ads      AdsClient
	policies *policy.Store
	pool     *identity.Pool
	journal  JournalReader
	server   *http.Server
	log      *slog.Logger
}

// New creates the façade server. journal may be nil; the journal route then
// answers 404.
func New(ads AdsClient, policies *policy.Store, pool *identity.Pool, journal JournalReader, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		ads:      ads,
		policies: policies,
		pool:     pool,
		journal:  journal,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		log: log,
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/search/raw", s.handleSearchRaw)
	mux.HandleFunc("GET /api/ad/{id}", s.handleAd)
	mux.HandleFunc("GET /api/user/{id}", s.handleUser)
	mux.HandleFunc("GET /api/policy", s.handlePolicyGet)
	mux.HandleFunc("POST /api/policy", s.handlePolicyUpdate)
	mux.HandleFunc("GET /api/journal", s.handleJournal)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "annonce",
		"proxies": s.pool.HealthSnapshot(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q upstream.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid search payload")
		return
	}

	payload, err := s.ads.Search(r.Context(), q)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeRaw(w, payload)
}

func (s *Server) handleSearchRaw(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid search payload")
		return
	}

	payload, err := s.ads.SearchRaw(r.Context(), raw)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeRaw(w, payload)
}

func (s *Server) handleAd(w http.ResponseWriter, r *http.Request) {
	payload, err := s.ads.Ad(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeRaw(w, payload)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	payload, err := s.ads.User(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeRaw(w, payload)
}

func (s *Server) handlePolicyGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.policies.Snapshot())
}

func (s *Server) handlePolicyUpdate(w http.ResponseWriter, r *http.Request) {
	var u policy.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid policy payload")
		return
	}

	applied, err := s.policies.Apply(u)
	if err != nil {
		var vErr *domain.ConfigValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "policy update failed")
		return
	}
	s.log.Info("protection policy updated", "policy", applied)
	writeJSON(w, http.StatusOK, applied)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "journal not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if limit > maxJournalLimit {
		limit = maxJournalLimit
	}

	rows, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.log.Warn("journal read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "journal read failed")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// writeFailure maps the guard error taxonomy onto HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	var (
		blocked    *domain.BlockedError
		notFound   *domain.NotFoundError
		network    *domain.NetworkError
		clientErr  *domain.ClientRequestError
		unexpected *domain.UnexpectedResponseError
	)
	switch {
	case errors.As(err, &blocked):
		status, msg = http.StatusForbidden, "access blocked by upstream protection, try again later"
	case errors.As(err, &notFound):
		status, msg = http.StatusNotFound, "resource not found"
	case errors.As(err, &network):
		status, msg = http.StatusBadGateway, "upstream unreachable"
	case errors.As(err, &clientErr):
		status, msg = http.StatusBadRequest, "upstream rejected the request"
	case errors.As(err, &unexpected):
		status, msg = http.StatusBadGateway, "unexpected upstream response"
	}

	s.log.Warn("request failed",
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
