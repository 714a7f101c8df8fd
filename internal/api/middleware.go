package api

import (
	"mongods/internal/logger"
	"mongods/internal/metrics"
	"mongods/internal/service"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const apiKeyHeader = "X-API-Key"

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.Info.Printf("%s %s %d %v", r.Method, r.URL.Path, rw.status, duration)
		metrics.HTTPRequests.WithLabelValues(routePattern(r), strconv.Itoa(rw.status)).Inc()
	})
}

// routePattern keeps the metric label set bounded: unmatched paths share one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Custom response writer to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// AuthMiddleware rejects requests whose X-API-Key does not match the
// configured key. With no key configured every request passes.
func AuthMiddleware(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authSvc.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get(apiKeyHeader)
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "Missing X-API-Key header")
				return
			}
			if err := authSvc.VerifyApiKey(apiKey); err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid X-API-Key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
