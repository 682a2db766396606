// Package server exposes search, rebuild and in-file matching over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/matcher"
	"github.com/Aman-CERP/buscador/internal/search"
	"github.com/Aman-CERP/buscador/internal/telemetry"
	"github.com/Aman-CERP/buscador/pkg/version"
)

// Searcher is the query side of the engine.
type Searcher interface {
	Search(ctx context.Context, query string) search.Response
	Status() (*index.Manifest, error)
}

// Rebuilder runs an index build.
type Rebuilder interface {
	Build(ctx context.Context) (*index.Result, error)
}

// Server serves the HTTP API.
type Server struct {
	engine    Searcher
	builder   Rebuilder
	extractor matcher.Extractor
	docsRoot  string
	metrics   *telemetry.QueryMetrics
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records every search into m and serves it on GET /metrics.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a Server. builder may be nil, in which case POST /index
// answers 503.
func New(engine Searcher, builder Rebuilder, ex matcher.Extractor, docsRoot string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		builder:   builder,
		extractor: ex,
		docsRoot:  docsRoot,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		s.engine = telemetry.Instrument(engine, s.metrics)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleInfo)
	r.Get("/search", s.handleSearch)
	r.Post("/index", s.handleIndex)
	r.Get("/find", s.handleFind)
	r.Get("/status", s.handleStatus)
	if s.metrics != nil {
		r.Get("/metrics", s.handleMetrics)
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_starting", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	slog.Info("http_server_stopped")
	return err
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "buscador",
		"version": version.Version,
		"endpoints": []string{
			"GET /search?q=",
			"POST /index",
			"GET /find?path=&q=&width=",
			"GET /status",
			"GET /metrics",
		},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Query parameter 'q' is required"})
		return
	}

	resp := s.engine.Search(r.Context(), q)
	writeJSON(w, statusFor(resp.Err()), resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.builder == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "indexing is not available"})
		return
	}

	res, err := s.builder.Build(r.Context())
	writeJSON(w, statusFor(err), res)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := params.Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Query parameter 'q' is required"})
		return
	}

	width := matcher.DefaultWidth
	if raw := params.Get("width"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Parameter 'width' must be a non-negative integer"})
			return
		}
		width = n
	}

	path, err := matcher.ResolvePath(s.docsRoot, params.Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := matcher.FindInFile(r.Context(), s.extractor, path, q, width)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":    params.Get("path"),
		"query":   q,
		"total":   len(res.Matches),
		"matches": res.Matches,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	m, err := s.engine.Status()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ready": false, "message": search.MsgIndexNotFound})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true, "manifest": m})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// statusFor maps a structured error to an HTTP status.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, berrors.ErrIndexNotFound), berrors.GetCode(err) == berrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.Is(err, berrors.ErrIndexLocked):
		return http.StatusConflict
	}
	if berrors.GetCategory(err) == berrors.CategoryValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}
	if e, ok := berrors.As(err); ok {
		body["error"] = e.Message
		body["code"] = e.Code
	}
	writeJSON(w, statusFor(err), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http_response_write_failed", slog.String("error", err.Error()))
	}
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http_request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}
