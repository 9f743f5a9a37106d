package authn

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/internal/identity/identitytest"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCheckAuthority(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	require.NoError(t, CheckAuthority("https://id.example.com", true, logger))
	require.ErrorIs(t, CheckAuthority("http://localhost:5100", true, logger), ErrInsecureAuthority)
	require.Empty(t, buf.String())

	require.NoError(t, CheckAuthority("http://localhost:5100", false, logger))
	require.Contains(t, buf.String(), "plain http")

	require.Error(t, CheckAuthority("localhost:5100", false, logger))
	require.Error(t, CheckAuthority("ftp://id.example.com", false, logger))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Authority: "http://localhost:5100", Audience: "api1", RequireHTTPSMetadata: true})
	require.ErrorIs(t, err, ErrInsecureAuthority)

	_, err = New(Config{Authority: "https://id.example.com"})
	require.ErrorContains(t, err, "audience")

	_, err = New(Config{Authority: "https://id.example.com", Audience: "api1", Strategy: "magic"})
	require.ErrorContains(t, err, "unknown strategy")

	_, err = New(Config{Authority: "https://id.example.com", Audience: "api1", Strategy: StrategyIntrospection})
	require.ErrorContains(t, err, "resource secret")
}

func strategies(t *testing.T, idp *identitytest.Server) map[string]httpx.TokenVerifier {
	t.Helper()
	return map[string]httpx.TokenVerifier{
		StrategyJWT:           NewJWTVerifier(idp.URL, catalog.DefaultResource, http.DefaultClient),
		StrategyIntrospection: NewIntrospectionVerifier(idp.URL, catalog.DefaultResource, catalog.DevelopmentSecret, time.Minute, nil),
	}
}

func TestVerifyToken(t *testing.T) {
	idp := identitytest.NewServer(t)
	ctx := context.Background()

	appToken := idp.Token(t, "api1")
	userToken := idp.UserToken(t, "alice", "api1", "openid")
	otherAudience := idp.UserToken(t, "alice", "openid", "profile")

	for name, v := range strategies(t, idp) {
		t.Run(name, func(t *testing.T) {
			p, err := v.VerifyToken(ctx, appToken)
			require.NoError(t, err)
			require.Equal(t, catalog.DefaultTokenClientID, p.ClientID)
			require.Equal(t, catalog.DefaultTokenClientID, p.Subject)
			require.True(t, p.Scopes.Has("api1"))
			require.WithinDuration(t, time.Now().Add(time.Hour), p.ExpiresAt, time.Minute)

			p, err = v.VerifyToken(ctx, userToken)
			require.NoError(t, err)
			require.Equal(t, "1", p.Subject)
			require.True(t, p.Scopes.HasAll("api1", "openid"))

			_, err = v.VerifyToken(ctx, "not-a-token")
			require.Error(t, err)

			_, err = v.VerifyToken(ctx, otherAudience)
			require.Error(t, err)
		})
	}
}

func TestIntrospectionCaches(t *testing.T) {
	idp := identitytest.NewServer(t)
	ctx := context.Background()

	calls := 0
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return http.DefaultTransport.RoundTrip(r)
	})}

	v := NewIntrospectionVerifier(idp.URL, catalog.DefaultResource, catalog.DevelopmentSecret, time.Minute, client)
	now := time.Now()
	v.now = func() time.Time { return now }

	token := idp.Token(t, "api1")
	for range 3 {
		_, err := v.VerifyToken(ctx, token)
		require.NoError(t, err)
	}
	require.Equal(t, 1, calls)

	now = now.Add(2 * time.Minute)
	_, err := v.VerifyToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestIntrospectionWrongSecret(t *testing.T) {
	idp := identitytest.NewServer(t)

	v := NewIntrospectionVerifier(idp.URL, catalog.DefaultResource, "wrong", time.Minute, nil)
	_, err := v.VerifyToken(context.Background(), idp.Token(t, "api1"))
	require.ErrorIs(t, err, httpx.ErrVerifierUnavailable)
}

func TestJWTVerifierDiscoveryFailure(t *testing.T) {
	var calls atomic.Int32
	var healthy atomic.Bool
	var down *httptest.Server
	down = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !healthy.Load() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"issuer":%q,"jwks_uri":%q}`, down.URL, down.URL+"/jwks")
	}))
	t.Cleanup(down.Close)

	v := NewJWTVerifier(down.URL, "api1", http.DefaultClient)
	now := time.Now()
	v.now = func() time.Time { return now }

	require.ErrorIs(t, v.Ready(context.Background()), httpx.ErrVerifierUnavailable)
	_, err := v.VerifyToken(context.Background(), "x.y.z")
	require.ErrorIs(t, err, httpx.ErrVerifierUnavailable)
	require.EqualValues(t, 1, calls.Load(), "failures are cached until the retry delay passes")

	guard := Guard(v)
	h := guard(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/values", nil)
	req.Header.Set("Authorization", "Bearer x.y.z")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	healthy.Store(true)
	now = now.Add(DiscoveryRetryDelay)
	require.NoError(t, v.Ready(context.Background()))
}

func TestGuard(t *testing.T) {
	idp := identitytest.NewServer(t)
	m := metricsx.New("api")

	v, err := New(Config{
		Authority: idp.URL,
		Audience:  catalog.DefaultResource,
		Metrics:   m,
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	require.NoError(t, err)

	require.NoError(t, v.(Readiness).Ready(context.Background()))

	guard := Guard(v)
	h := guard([]string{"api1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := httpx.PrincipalFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(p.ClientID))
	}))

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/values", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := call("")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	rec = call("garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(idp.UserToken(t, "bob", "openid", "profile"))
	require.Equal(t, http.StatusUnauthorized, rec.Code, "token for another audience")

	rec = call(idp.Token(t, "api1"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, catalog.DefaultTokenClientID, rec.Body.String())

	expected := `
# HELP docsauth_bearer_authentications_total Bearer token checks by strategy and outcome.
# TYPE docsauth_bearer_authentications_total counter
docsauth_bearer_authentications_total{outcome="accepted",service="api",strategy="jwt"} 1
docsauth_bearer_authentications_total{outcome="rejected",service="api",strategy="jwt"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "docsauth_bearer_authentications_total"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
