package server

import (
	"net/http"
	"time"

	"github.com/teemow/taskdeck/internal/instrumentation"
)

// statusRecorder captures the status code a downstream handler writes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request count and duration for every route
// served behind it. A handler that never calls WriteHeader counts as 200.
func HTTPMetricsMiddleware(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
