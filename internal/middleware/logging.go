package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bookrec/internal/logger"
	"bookrec/internal/metrics"
)

const RequestIDHeader = "X-Request-ID"

// UnmatchedRoute labels requests that never reached a handler wrapped with Route
// (404, 405, mux redirects, rate-limited and preflight requests).
const UnmatchedRoute = "unmatched"

type routeKey struct{}

// routeHolder is filled by Route deep in the chain and read back by RequestLogger.
type routeHolder struct {
	pattern string
}

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestID puts an id into the request context (and the response header),
// reusing an incoming X-Request-ID when the client sent one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.ContextWithID(r.Context(), id)))
	})
}

// RequestLogger logs incoming requests at the INFO level and records request metrics.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			route := &routeHolder{pattern: UnmatchedRoute}
			r = r.WithContext(context.WithValue(r.Context(), routeKey{}, route))

			// Serve the request
			next.ServeHTTP(rec, r)

			took := time.Since(start)
			metrics.HttpRequestsTotal.WithLabelValues(r.Method, route.pattern, strconv.Itoa(rec.status)).Inc()
			metrics.HttpRequestDuration.WithLabelValues(route.pattern).Observe(took.Seconds())

			// Log the request
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"route":      route.pattern,
				"query":      r.URL.Query(),
				"status":     rec.status,
				"remote":     r.RemoteAddr,
				"agent":      r.UserAgent(),
				"took":       took,
				"request_id": logger.IDFrom(r.Context()),
			}).Info("http.request")
		})
	}
}

// Route wraps a handler registered on a ServeMux so that request metrics are labelled
// with its pattern (r.Pattern) instead of the raw path.
func Route(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok && r.Pattern != "" {
			h.pattern = r.Pattern
		}
		next.ServeHTTP(w, r)
	})
}
