// Package auth enforces bearer API-key authentication on the API
// endpoints. Keys live in the API_KEYS environment variable as a
// comma-separated list and are re-read on every request, so rotating a
// key never requires a restart.
package auth

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/logging"
)

const keysEnvVar = "API_KEYS"

// Middleware wraps handlers with API-key checks
type Middleware struct {
	logger   *logging.Logger
	warnOnce sync.Once
}

// NewMiddleware creates an auth middleware
func NewMiddleware(logger *logging.Logger) *Middleware {
	return &Middleware{logger: logger}
}

// RequireKey rejects requests lacking a valid bearer key. When API_KEYS
// is unset the middleware fails open so local development works without
// an env file, logging a loud warning once.
func (m *Middleware) RequireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := loadKeys()

		if len(keys) == 0 {
			m.warnOnce.Do(func() {
				m.logger.Warn("API_KEYS is not set, API key enforcement is DISABLED",
					logging.WithField("hint", "set API_KEYS before deploying to production"))
			})
			next(w, r)
			return
		}

		provided := extractKey(r)
		if provided == "" || !matchesAny(provided, keys) {
			// Generic message, do not reveal whether the key exists
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}

		next(w, r)
	}
}

func loadKeys() []string {
	raw := strings.TrimSpace(os.Getenv(keysEnvVar))
	if raw == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func extractKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func matchesAny(provided string, keys []string) bool {
	match := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(k)) == 1 {
			match = true
		}
	}
	return match
}
