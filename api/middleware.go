package api

import (
	"net/http"
	"time"

	"github.com/fatali-fataliyev/spending_insights/internal/contextutil"
	"github.com/fatali-fataliyev/spending_insights/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// TraceMiddleware tags every request with a trace id, taken from the
// X-Request-ID header when the caller sent one, and logs the outcome.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := r.Header.Get(contextutil.TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set(contextutil.TraceIDHeader, traceID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := contextutil.WithTraceID(r.Context(), traceID)
		next.ServeHTTP(rec, r.WithContext(ctx))

		entry := logging.Logger.WithFields(logrus.Fields{
			"trace_id":    traceID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if rec.status >= 500 {
			entry.Error("request failed")
			return
		}
		entry.Info("request completed")
	})
}
