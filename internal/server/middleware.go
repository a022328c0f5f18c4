package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chartstack/chartd/internal/common"
)

// correlationHeader carries the per-request ID through logs and back to
// the caller.
const correlationHeader = "X-Correlation-ID"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRecovery converts handler panics into a 500 envelope instead of
// tearing down the connection.
func withRecovery(logger *common.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("handler panic")
				writeEnvelope(w, http.StatusInternalServerError, envelope{Success: false, Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withCORS allows browser-based chart frontends on other origins.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+correlationHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withCorrelationID assigns a request ID when the caller did not send
// one and echoes it back.
func withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r)
	})
}

// withRequestLogging logs one line per request with method, path,
// status, and duration.
func withRequestLogging(logger *common.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("correlation_id", w.Header().Get(correlationHeader)).
			Msg("request")
	})
}
