package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

const resolutionKey = contextKey("resolution")

// resolutionNote is filled in by the resolve handler and read back by the
// access log once the handler returns.
type resolutionNote struct {
	mu         sync.Mutex
	set        bool
	source     string
	confidence int
	cacheHit   bool
}

// NoteResolution records how a doubt was answered on the request's access log
// line. It is a no-op outside Logging.
func NoteResolution(ctx context.Context, source string, confidence int, cacheHit bool) {
	n, ok := ctx.Value(resolutionKey).(*resolutionNote)
	if !ok {
		return
	}
	n.mu.Lock()
	n.set, n.source, n.confidence, n.cacheHit = true, source, confidence, cacheHit
	n.mu.Unlock()
}

func (n *resolutionNote) fields() []zap.Field {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.set {
		return nil
	}
	return []zap.Field{
		zap.String("resolution_source", n.source),
		zap.Int("confidence", n.confidence),
		zap.Bool("cache_hit", n.cacheHit),
	}
}

// Logging logs one structured line per request, with the resolution source
// and cache outcome for doubt requests. Server errors log at warn.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			note := &resolutionNote{}
			r = r.WithContext(context.WithValue(r.Context(), resolutionKey, note))

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			duration := time.Since(start)

			level := logger.Info
			if rw.statusCode >= 500 {
				level = logger.Warn
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", rw.statusCode),
				zap.Int64("bytes", rw.written),
				zap.Duration("duration", duration),
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("tutor_key", KeyFingerprint(TutorKeyFromContext(r.Context()))),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			}
			level("http request", append(fields, note.fields()...)...)
		})
	}
}
