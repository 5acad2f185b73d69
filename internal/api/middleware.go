package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"knowthepast/pkg/logging"
)

// RequestIDHeader carries the per-request id echoed back to the client.
const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware tags each request with an id and records it in the request log.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed",
			"id", id, "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
