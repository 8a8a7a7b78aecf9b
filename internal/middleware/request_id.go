package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"msgcounter/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

// RequestIDContextKey is the key for request ID in context
const RequestIDContextKey ContextKey = "request_id"

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength caps caller-supplied IDs; longer ones are replaced
const maxRequestIDLength = 128

// RequestID creates a middleware that adds a unique request ID to each request.
// A usable ID supplied by the caller is kept so it can be correlated upstream.
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			switch {
			case requestID == "":
				requestID = uuid.NewString()
			case len(requestID) > maxRequestIDLength:
				logger.WithField("length", len(requestID)).Warn("Replacing oversized caller request ID")
				requestID = uuid.NewString()
			default:
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"path":       r.URL.Path,
				}).Debug("Using caller-supplied request ID")
			}

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request at debug level
func RequestLogger(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			logger.WithFields(map[string]interface{}{
				"request_id": GetRequestID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"duration":   time.Since(start).String(),
			}).Debug("Handled request")
		})
	}
}

// GetRequestID returns the request ID stored by RequestID, or ""
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}
