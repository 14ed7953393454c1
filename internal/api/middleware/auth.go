package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

type contextKey string

const (
	// TutorKeyHeader carries a caller-supplied tutor provider key.
	TutorKeyHeader = "X-Tutor-API-Key"
	tutorKeyCtxKey = contextKey("tutor_key")
)

// TutorKeyFromContext returns the caller's tutor key, or "".
func TutorKeyFromContext(ctx context.Context) string {
	k, _ := ctx.Value(tutorKeyCtxKey).(string)
	return k
}

// TutorKey moves a caller-supplied provider key from the request header into
// the context. Requests without one pass through and fall back to the
// process default key.
func TutorKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(TutorKeyHeader))
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), tutorKeyCtxKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// KeyFingerprint identifies a key in logs and rate-limit buckets without
// exposing it.
func KeyFingerprint(key string) string {
	if key == "" {
		return ""
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])[:12]
}
