// Package middleware provides the HTTP middleware chain: request IDs, panic
// recovery with the standard error envelope, and request logging.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/docshed/internal/errors"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// ErrorResponse aliases the shared envelope so middleware tests can decode
// responses without importing internal/errors.
type ErrorResponse = apperrors.HTTPErrorResponse

// RequestID attaches a correlation id to the request context, honoring an
// inbound X-Request-ID header and echoing the id on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// GetRequestID returns the correlation id from the request context, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Recovery converts panics into 500 responses with the standard envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeErrorResponse(w, http.StatusInternalServerError,
					apperrors.CodeInternal,
					fmt.Sprintf("panic: %v", rec),
					GetRequestID(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is the boundary middleware for unexpected faults.
// It is currently identical to Recovery; the name marks intent at the
// router wiring site.
func ErrorHandler(next http.Handler) http.Handler {
	return Recovery(next)
}

// Logger emits one structured log line per request.
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", GetRequestID(r.Context())))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message, requestID string) {
	apperrors.RespondWithError(w, status, code, message, requestID)
}
