package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier accepts tokens named in principals.
type stubVerifier struct {
	principals map[string]*httpx.Principal
	readyErr   error
}

func (s *stubVerifier) VerifyToken(_ context.Context, token string) (*httpx.Principal, error) {
	if p, ok := s.principals[token]; ok {
		return p, nil
	}
	return nil, errors.New("unknown token")
}

func (s *stubVerifier) Ready(context.Context) error { return s.readyErr }

func newTestRouter(t *testing.T) (*Router, *stubVerifier) {
	t.Helper()
	v := &stubVerifier{principals: map[string]*httpx.Principal{
		"full": {
			Subject:  "client_1",
			ClientID: "client_1",
			Scopes:   jwtx.ScopeList{"api1"},
			Claims:   map[string]any{"sub": "client_1", "client_id": "client_1"},
		},
		"openid-only": {Subject: "1", ClientID: "client_1", Scopes: jwtx.ScopeList{"openid"}},
	}}
	rt := NewRouter(Options{
		Verifier:      v,
		DefaultScopes: []string{"api1"},
		CORSAllowAll:  true,
		Version:       "test",
	})
	return rt, v
}

func do(rt http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	return rec
}

func TestProtectedRoutes(t *testing.T) {
	rt, _ := newTestRouter(t)

	for _, tc := range []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"list without token", http.MethodGet, "/api/values", "", http.StatusUnauthorized},
		{"list with bad token", http.MethodGet, "/api/values", "garbage", http.StatusUnauthorized},
		{"list without scope", http.MethodGet, "/api/values", "openid-only", http.StatusForbidden},
		{"list", http.MethodGet, "/api/values", "full", http.StatusOK},
		{"get", http.MethodGet, "/api/values/1", "full", http.StatusOK},
		{"get missing", http.MethodGet, "/api/values/99", "full", http.StatusNotFound},
		{"get bad id", http.MethodGet, "/api/values/abc", "full", http.StatusBadRequest},
		{"identity without token", http.MethodGet, "/api/identity", "", http.StatusUnauthorized},
		{"identity without scope", http.MethodGet, "/api/identity", "openid-only", http.StatusForbidden},
		{"ping", http.MethodGet, "/api/public/ping", "", http.StatusOK},
		{"ping ignores bad token", http.MethodGet, "/api/public/ping", "garbage", http.StatusOK},
		{"livez", http.MethodGet, "/livez", "", http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(rt, tc.method, tc.path, tc.token, "")
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
			if tc.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
			if tc.want == http.StatusForbidden {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
			}
		})
	}
}

func TestValuesLifecycle(t *testing.T) {
	rt, _ := newTestRouter(t)

	rec := do(rt, http.MethodPost, "/api/values", "full", `{"value":"value3"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "/api/values/3", rec.Header().Get("Location"))

	var created Value
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, Value{ID: 3, Value: "value3"}, created)

	rec = do(rt, http.MethodGet, "/api/values", "full", "")
	var list []Value
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, []Value{{1, "value1"}, {2, "value2"}, {3, "value3"}}, list)

	require.Equal(t, http.StatusNoContent, do(rt, http.MethodDelete, "/api/values/2", "full", "").Code)
	require.Equal(t, http.StatusNotFound, do(rt, http.MethodDelete, "/api/values/2", "full", "").Code)
	require.Equal(t, http.StatusNotFound, do(rt, http.MethodGet, "/api/values/2", "full", "").Code)

	require.Equal(t, http.StatusBadRequest, do(rt, http.MethodPost, "/api/values", "full", `{"value":"  "}`).Code)
	require.Equal(t, http.StatusBadRequest, do(rt, http.MethodPost, "/api/values", "full", `not json`).Code)
	require.Equal(t, http.StatusUnauthorized, do(rt, http.MethodPost, "/api/values", "", `{"value":"x"}`).Code)
}

func TestIdentityEchoesPrincipal(t *testing.T) {
	rt, _ := newTestRouter(t)

	rec := do(rt, http.MethodGet, "/api/identity", "full", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body IdentityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "client_1", body.Subject)
	require.Equal(t, "client_1", body.ClientID)
	require.Equal(t, []string{"api1"}, body.Scopes)
	require.Equal(t, "client_1", body.Claims["client_id"])
}

func TestReadyz(t *testing.T) {
	rt, v := newTestRouter(t)

	rec := do(rt, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	v.readyErr = errors.New("discovery failed")
	rec = do(rt, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "unavailable", body.Status)
}

func TestCORSPreflight(t *testing.T) {
	rt, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/values", nil)
	req.Header.Set("Origin", "http://localhost:5000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRouterWithoutVerifierFailsClosed(t *testing.T) {
	rt := NewRouter(Options{DefaultScopes: []string{"api1"}})

	require.Equal(t, http.StatusUnauthorized, do(rt, http.MethodGet, "/api/values", "anything", "").Code)
	require.Equal(t, http.StatusOK, do(rt, http.MethodGet, "/api/public/ping", "", "").Code)
	require.Equal(t, http.StatusOK, do(rt, http.MethodGet, "/readyz", "", "").Code)
}

func TestMountDocs(t *testing.T) {
	rt, _ := newTestRouter(t)
	doc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{}`)) })
	ui := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`ui`)) })
	rt.MountDocs(doc, ui)

	require.Equal(t, `{}`, do(rt, http.MethodGet, PathDoc, "", "").Body.String())
	require.Equal(t, `ui`, do(rt, http.MethodGet, "/swagger/index.html", "", "").Body.String())
}
