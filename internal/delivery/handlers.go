package delivery

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"bookrec/internal/logger"
	"bookrec/internal/middleware"
	"bookrec/internal/recommend"
)

type Recommender interface {
	Recommend(ctx context.Context, raw string) (*recommend.Result, error)
}

type Server struct {
	Log         *logrus.Logger
	Recommender Recommender
	Timeout     time.Duration
	// Limiter is optional; nil disables rate limiting.
	Limiter *middleware.IPRateLimiter
}

// Routes builds the mux with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) { mux.Handle(pattern, middleware.Route(h)) }
	handle("GET /{$}", http.HandlerFunc(s.Index))
	handle("GET /recommend", http.HandlerFunc(s.RecommendPage))
	handle("GET /api/search", http.HandlerFunc(s.Search))
	handle("GET /health", http.HandlerFunc(s.Health))
	handle("GET /metrics", s.Metrics())

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.RequestLogger(s.Log),
		middleware.CORS,
		middleware.RateLimit(s.Limiter),
	)
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) Metrics() http.Handler { return promhttp.Handler() }

// GET /
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, "", nil); err != nil {
		logger.For(r.Context()).WithError(err).Error("render.failed")
	}
}

// GET /recommend?q=...
func (s *Server) RecommendPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	res, ok := s.recommend(w, r, query)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, query, res); err != nil {
		logger.For(r.Context()).WithError(err).Error("render.failed")
	}
}

// GET /api/search?q=...
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	res, ok := s.recommend(w, r, r.URL.Query().Get("q"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// recommend writes the error response itself and reports whether the caller should go on.
func (s *Server) recommend(w http.ResponseWriter, r *http.Request, query string) (*recommend.Result, bool) {
	if strings.TrimSpace(query) == "" {
		WriteError(w, http.StatusBadRequest, "bad_request", "q parameter is required", nil)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout())
	defer cancel()

	res, err := s.Recommender.Recommend(ctx, query)
	switch {
	case errors.Is(err, recommend.ErrEmptyQuery):
		WriteError(w, http.StatusBadRequest, "bad_request", "query is empty", nil)
		return nil, false
	case err != nil:
		logger.For(r.Context()).WithError(err).WithField("query", query).Error("recommend.failed")
		WriteError(w, http.StatusBadGateway, "upstream_error", "vector search failed", err.Error())
		return nil, false
	}
	return res, true
}

func (s *Server) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 10 * time.Second
	}
	return s.Timeout
}
