package internal

import (
	"net/http"
	"strings"
	"time"

	"era-inventory-panel/internal/backend"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestID takes the caller's X-Request-ID or generates one, echoes it on
// the response and stores it in the context so backend calls carry it too.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(backend.RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(backend.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(backend.WithRequestID(r.Context(), id)))
	})
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case r.URL.Path == "/health" || r.URL.Path == "/metrics":
			ev = log.Debug()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", backend.RequestIDFromContext(r.Context())).
			Msg("request")
	})
}
