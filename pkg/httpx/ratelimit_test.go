package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", httpx.ClientIP(r))

	r.Header.Set("X-Real-IP", "203.0.113.2")
	require.Equal(t, "203.0.113.2", httpx.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
	require.Equal(t, "203.0.113.1", httpx.ClientIP(r))
}

func TestClientIDKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/connect/token", nil)
	r.SetBasicAuth("client_1", "secret")
	require.Equal(t, "client:client_1", httpx.ClientIDKey(r))

	form := url.Values{"client_id": {"bob"}}
	r = httptest.NewRequest(http.MethodPost, "/connect/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, "client:bob", httpx.ClientIDKey(r))

	r = httptest.NewRequest(http.MethodPost, "/connect/token", nil)
	r.RemoteAddr = "10.0.0.1:1"
	require.Equal(t, "ip:10.0.0.1", httpx.ClientIDKey(r))
}

func TestIPAndFormKey(t *testing.T) {
	form := url.Values{"username": {"alice"}}
	r := httptest.NewRequest(http.MethodPost, "/connect/authorize", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.RemoteAddr = "10.0.0.1:1"

	require.Equal(t, "10.0.0.1:alice", httpx.IPAndFormKey("username")(r))
}

func TestRateLimitBy(t *testing.T) {
	h := httpx.RateLimitBy(httpx.RateLimit{Requests: 2, Window: time.Minute, Burst: 2}, httpx.ClientIP)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	hit := func(addr string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	require.Equal(t, http.StatusOK, hit("1.1.1.1:1").Code)
	require.Equal(t, http.StatusOK, hit("1.1.1.1:2").Code)

	rec := hit("1.1.1.1:3")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	// Buckets are per key.
	require.Equal(t, http.StatusOK, hit("2.2.2.2:1").Code)
}

func TestRateLimitBySkipsEmptyKey(t *testing.T) {
	h := httpx.RateLimitBy(httpx.RateLimit{Requests: 1, Window: time.Hour, Burst: 1}, func(*http.Request) string { return "" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	for range 5 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitFromEnv(t *testing.T) {
	env := map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "30",
		"RATELIMIT_STRICT_BURST":      "-4",
	}
	got := httpx.RateLimitFromEnv(func(k string) string { return env[k] }, "strict", httpx.StrictLimit)

	require.Equal(t, 1000, got.Requests)
	require.Equal(t, 30*time.Second, got.Window)
	require.Equal(t, httpx.StrictLimit.Burst, got.Burst)
}
