// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/bingo/pkg/metrics"
)

// errorClasses names the statuses the dashboard breaks out individually.
var errorClasses = map[int]string{ //nolint:gochecknoglobals // lookup table
	http.StatusNotFound:           "not_found",
	http.StatusTooManyRequests:    "rate_limit",
	http.StatusBadGateway:         "upstream_error",
	http.StatusServiceUnavailable: "unavailable",
}

// MetricsMiddleware records request count, latency and error class for
// endpoint. The endpoint label is the route name, not the raw path, so ids
// in /api/tiles/{id} do not explode cardinality.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := float64(time.Since(start).Milliseconds())

		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, elapsed)
		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, getErrorType(rec.status))
		}
	}
}

// getErrorType buckets an error status for the errors-by-endpoint counter.
func getErrorType(status int) string {
	if class, ok := errorClasses[status]; ok {
		return class
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
