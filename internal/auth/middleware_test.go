package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/testutil"
)

func requestWithKey(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	return req
}

func protectedHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestRequireKey_FailsOpenWithoutKeys(t *testing.T) {
	t.Setenv("API_KEYS", "")

	called := false
	handler := NewMiddleware(testutil.NullLogger()).RequireKey(protectedHandler(&called))

	w := httptest.NewRecorder()
	handler(w, requestWithKey(""))

	if !called {
		t.Error("handler not called; middleware must fail open when API_KEYS is unset")
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRequireKey_ValidKey(t *testing.T) {
	t.Setenv("API_KEYS", "alpha-key, beta-key")

	called := false
	handler := NewMiddleware(testutil.NullLogger()).RequireKey(protectedHandler(&called))

	w := httptest.NewRecorder()
	handler(w, requestWithKey("beta-key"))

	if !called {
		t.Error("handler not called with a valid key")
	}
}

func TestRequireKey_Rejections(t *testing.T) {
	t.Setenv("API_KEYS", "alpha-key")

	tests := []struct {
		name    string
		request func() *http.Request
	}{
		{"missing header", func() *http.Request { return requestWithKey("") }},
		{"wrong key", func() *http.Request { return requestWithKey("not-a-key") }},
		{"wrong prefix", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
			req.Header.Set("Authorization", "Basic alpha-key")
			return req
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewMiddleware(testutil.NullLogger()).RequireKey(protectedHandler(&called))

			w := httptest.NewRecorder()
			handler(w, tt.request())

			if called {
				t.Error("handler called despite invalid credentials")
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q; the error body is JSON", ct, "application/json")
			}
			if body := w.Body.String(); !strings.Contains(body, `"error"`) {
				t.Errorf("body = %q, want a JSON error payload", body)
			}
		})
	}
}

func TestRequireKey_BearerCaseInsensitive(t *testing.T) {
	t.Setenv("API_KEYS", "alpha-key")

	called := false
	handler := NewMiddleware(testutil.NullLogger()).RequireKey(protectedHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
	req.Header.Set("Authorization", "bearer alpha-key")
	w := httptest.NewRecorder()
	handler(w, req)

	if !called {
		t.Error("handler not called; the bearer scheme is case-insensitive")
	}
}
