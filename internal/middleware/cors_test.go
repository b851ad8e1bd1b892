package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	var served int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { served++ })

	t.Run("wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		CORS("*")(next).ServeHTTP(w, req)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Expose-Headers")), "x-request-id")
	})

	t.Run("listed origin and preflight", func(t *testing.T) {
		before := served
		req := httptest.NewRequest(http.MethodOptions, "/api/trips", nil)
		req.Header.Set("Origin", "https://app.aivodrive.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
		req.Header.Set("Access-Control-Request-Headers", "authorization, x-request-id")
		w := httptest.NewRecorder()
		CORS("https://app.aivodrive.com, http://localhost:3000")(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, before, served)
		assert.Equal(t, "https://app.aivodrive.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, http.MethodDelete, w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Authorization,X-Request-Id", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("preflight with unknown header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/trips", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "X-Debug")
		w := httptest.NewRecorder()
		CORS("*")(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unlisted origin", func(t *testing.T) {
		before := served
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		CORS("https://app.aivodrive.com")(next).ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, before+1, served)
	})
}
