// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes catalog search and ingestion control over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/catalog"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/metrics"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/search"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/session"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// SessionHeader carries the caller's session ID. The "session" query
// parameter is accepted when the header is absent.
const SessionHeader = "X-Session-ID"

const (
	defaultAddr        = ":3003"
	sessionSweepPeriod = time.Minute
	shutdownTimeout    = 10 * time.Second
)

// Server routes HTTP requests to the orchestrator and the ingestion
// manager.
type Server struct {
	cfg      types.ServerConfig
	search   *search.Orchestrator
	sessions *session.Registry
	ingest   *Ingestions
	metrics  *metrics.Registry
	log      *zap.Logger
	handler  http.Handler
}

// New wires the routes. ingest may be nil, in which case the ingestion
// endpoints answer 404.
func New(cfg types.ServerConfig, orch *search.Orchestrator, sessions *session.Registry, ingest *Ingestions, m *metrics.Registry, log *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		search:   orch,
		sessions: sessions,
		ingest:   ingest,
		metrics:  m,
		log:      log.Named("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("DELETE /api/session", s.handleSessionEnd)
	if ingest != nil {
		mux.HandleFunc("POST /api/ingest", s.handleIngestStart)
		mux.HandleFunc("GET /api/ingest", s.handleIngestStatus)
		mux.HandleFunc("DELETE /api/ingest", s.handleIngestCancel)
	}
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader},
	})
	s.handler = c.Handler(s.logRequests(mux))
	return s
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is done, then shuts down gracefully and
// cancels any running ingestion.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepSessions(ctx)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.ingest != nil {
		s.ingest.Cancel()
		s.ingest.Wait()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) sweepSessions(ctx context.Context) {
	if s.sessions == nil {
		return
	}
	t := time.NewTicker(sessionSweepPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.log.Debug("expired sessions", zap.Int("removed", n))
			}
		}
	}
}

// searchResponse is the /api/search body. Error is set only on failure.
type searchResponse struct {
	Results  []types.SearchResult   `json:"results"`
	Page     int                    `json:"page"`
	Fallback search.FallbackOutcome `json:"fallback,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := ParseSearchParams(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, searchResponse{Results: []types.SearchResult{}, Error: err.Error()})
		return
	}

	var sess *session.Cache
	if id := sessionID(r); id != "" && s.sessions != nil {
		sess = s.sessions.Get(id)
	}

	resp, err := s.search.Search(r.Context(), sess, req)
	if err != nil {
		s.log.Warn("search failed", zap.String("query", req.Query), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, searchResponse{
			Results: []types.SearchResult{},
			Page:    resp.Page,
			Error:   "catalog unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: resp.Results, Page: resp.Page, Fallback: resp.Fallback})
}

// ParseSearchParams builds a search request from URL query values:
// q, lat, lng, cuisine, max_price, min_rating, sort, page, city.
// Malformed numbers and unknown sort keys are errors; absent values take
// their zero value.
func ParseSearchParams(q url.Values) (search.Request, error) {
	req := search.Request{
		Query:    q.Get("q"),
		CityHint: q.Get("city"),
	}
	req.Filters.Cuisine = strings.TrimSpace(q.Get("cuisine"))

	var err error
	if req.Page, err = intParam(q, "page"); err != nil {
		return req, err
	}
	if req.Filters.MaxPriceLevel, err = intParam(q, "max_price"); err != nil {
		return req, err
	}
	if req.Filters.MinRating, err = floatParam(q, "min_rating"); err != nil {
		return req, err
	}
	if req.Sort, err = catalog.ParseSort(q.Get("sort")); err != nil {
		return req, err
	}

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr != "" || lngStr != "" {
		lat, err := floatParam(q, "lat")
		if err != nil {
			return req, err
		}
		lng, err := floatParam(q, "lng")
		if err != nil {
			return req, err
		}
		if latStr == "" || lngStr == "" {
			return req, fmt.Errorf("lat and lng must be given together")
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return req, fmt.Errorf("lat/lng out of range")
		}
		req.Near = &types.GeoPoint{Lat: lat, Lng: lng}
	}
	return req, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func floatParam(q url.Values, name string) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}

func sessionID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("session"))
}

// handleSessionEnd drops the caller's session cache so later searches
// start from an empty cache.
func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing session ID"})
		return
	}
	if s.sessions != nil {
		s.sessions.End(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIngestStart(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Start(); err != nil {
		if errors.Is(err, ErrRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, s.ingest.Status())
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ingest.Status())
}

func (s *Server) handleIngestCancel(w http.ResponseWriter, r *http.Request) {
	if !s.ingest.Cancel() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no ingestion running"})
		return
	}
	writeJSON(w, http.StatusAccepted, s.ingest.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
