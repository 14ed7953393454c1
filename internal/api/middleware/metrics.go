package middleware

import (
	"net/http"
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/observability"
)

// Metrics records request count and latency by method and status class.
func Metrics(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			m.ObserveHTTP(r.Method, rw.statusCode, time.Since(start))
		})
	}
}
