package httpx_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/productcatalog/pkg/httpx"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func passthrough(next http.Handler) http.Handler { return next }

func newTestRouter(cfg httpx.ServerConfig) http.Handler {
	r := httpx.NewRouter(cfg, passthrough, passthrough, passthrough, passthrough)
	r.Get("/api/items", okHandler)
	r.Post("/api/items", func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

func TestSecurityHeaders_API(t *testing.T) {
	h := httpx.SecurityHeaders(false)(http.HandlerFunc(okHandler))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/items", http.NoBody))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rr.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rr.Header().Get("Content-Security-Policy"))
	// HSTS is only sent over TLS.
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_SwaggerUIAllowsInlineScript(t *testing.T) {
	h := httpx.SecurityHeaders(false)(http.HandlerFunc(okHandler))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, httpx.SwaggerPrefix+"index.html", http.NoBody))

	csp := rr.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'self' 'unsafe-inline'")
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestRequestBodyLimit_WithinLimit(t *testing.T) {
	var got []byte
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	body := `{"code":"W1","name":"Widget","price":"9.99"}`
	httpx.RequestBodyLimit(100)(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, body, string(got))
}

func TestRequestBodyLimit_DeclaredLengthRefused(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bundles", strings.NewReader(strings.Repeat("x", 11)))
	httpx.RequestBodyLimit(10)(inner).ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.JSONEq(t, `{"error":"Request Entity Too Large"}`, rr.Body.String())
}

func TestRequestBodyLimit_UndeclaredLengthCappedOnRead(t *testing.T) {
	var readErr error
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/bundles", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	httpx.RequestBodyLimit(10)(inner).ServeHTTP(httptest.NewRecorder(), req)

	var tooLarge *http.MaxBytesError
	require.True(t, errors.As(readErr, &tooLarge))
	assert.Equal(t, int64(10), tooLarge.Limit)
}

func TestNewRouter_RateLimitPerIP(t *testing.T) {
	h := newTestRouter(httpx.ServerConfig{RateLimit: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/items", http.NoBody)
		req.RemoteAddr = "192.0.2.10:4321"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNewRouter_BodyLimitFromConfig(t *testing.T) {
	h := newTestRouter(httpx.ServerConfig{MaxBodyBytes: 16})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"code":"W1","name":"Widget"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"code":"W1"}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestNewServer_WriteTimeoutCoversHandlerTimeout(t *testing.T) {
	srv := httpx.NewServer(":0", http.NotFoundHandler())
	assert.Greater(t, srv.WriteTimeout, httpx.DefaultHandlerTimeout)
	assert.NotZero(t, srv.ReadHeaderTimeout)
}

func TestCORSMiddleware_ExplicitOrigin(t *testing.T) {
	h := httpx.CORSMiddleware("https://shop.example.com, http://localhost:3000")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/items", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSMiddleware_UnlistedOrigin(t *testing.T) {
	h := httpx.CORSMiddleware("https://shop.example.com")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/items", http.NoBody)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_WildcardDropsCredentials(t *testing.T) {
	h := httpx.CORSMiddleware("")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/items", http.NoBody)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}
