package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/internal/identity/store/drivers/memory"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
	"github.com/stretchr/testify/require"
)

const redirectURI = "http://localhost:5000/swagger/oauth2-redirect.html"

var (
	tokenClient = authsdk.ClientAuth{ID: catalog.DefaultTokenClientID, Secret: catalog.DevelopmentSecret}
	codeClient  = authsdk.ClientAuth{ID: catalog.DefaultCodeClientID}
	apiResource = authsdk.ClientAuth{ID: catalog.DefaultResource, Secret: catalog.DevelopmentSecret}
)

func newTestServer(t *testing.T) (*httptest.Server, *authsdk.Client) {
	t.Helper()

	var router *Router
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	cat := catalog.Default()
	st := memory.NewStore()
	km, err := jwtx.NewKeyManager(context.Background(), jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router = NewRouter(cat, km, st, srv.URL, "test", logger)
	router.Metrics = metricsx.New("identity")
	router.ClientService = &service.ClientService{Catalog: cat}
	router.AuthorizeService = &service.AuthorizeService{Catalog: cat, Store: st}
	router.TokenService = &service.TokenService{Catalog: cat, Store: st, KeyManager: km, Issuer: srv.URL}
	router.ApplyRoutes()

	return srv, authsdk.NewClient(srv.URL)
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func TestDiscoveryAndJWKS(t *testing.T) {
	t.Parallel()
	srv, c := newTestServer(t)
	ctx := context.Background()

	doc, err := c.Discover(ctx)
	require.NoError(t, err)
	require.Equal(t, srv.URL, doc.Issuer)
	require.Equal(t, srv.URL+"/connect/token", doc.TokenEndpoint)
	require.Equal(t, srv.URL+"/.well-known/openid-configuration/jwks", doc.JWKSURI)
	require.ElementsMatch(t, []string{"openid", "profile", "api1"}, doc.ScopesSupported)
	require.Equal(t, []string{"ES256"}, doc.IDTokenSigningAlgValuesSupported)
	require.Contains(t, doc.CodeChallengeMethodsSupported, "S256")

	keys, err := c.JWKS(ctx)
	require.NoError(t, err)
	require.Len(t, keys.Keys, 1)
}

func TestClientCredentialsAndIntrospection(t *testing.T) {
	t.Parallel()
	_, c := newTestServer(t)
	ctx := context.Background()

	tok, err := c.ClientCredentials(ctx, tokenClient, []string{"api1"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, "api1", tok.Scope)

	out, err := c.Introspect(ctx, apiResource, tok.AccessToken)
	require.NoError(t, err)
	require.True(t, out.Active)
	require.Equal(t, catalog.DefaultTokenClientID, out.ClientID)
	require.Contains(t, out.Scopes(), "api1")

	_, err = c.Introspect(ctx, authsdk.ClientAuth{ID: "api1", Secret: "wrong"}, tok.AccessToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidClient)

	_, err = c.ClientCredentials(ctx, authsdk.ClientAuth{ID: catalog.DefaultTokenClientID, Secret: "wrong"}, nil)
	require.ErrorIs(t, err, authsdk.ErrInvalidClient)

	_, err = c.ClientCredentials(ctx, tokenClient, []string{"api2"})
	require.ErrorIs(t, err, authsdk.ErrInvalidScope)
}

func TestTokenEndpointRequiresForm(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/connect/token", "application/json", strings.NewReader(`{"grant_type":"client_credentials"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	form := url.Values{"grant_type": {"implicit"}, "client_id": {"client_1"}, "client_secret": {"secret"}}
	resp2, err := http.PostForm(srv.URL+"/connect/token", form)
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, _ := io.ReadAll(resp2.Body)
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	require.Contains(t, string(body), "unsupported_grant_type")
}

func TestPasswordGrantAndUserInfo(t *testing.T) {
	t.Parallel()
	_, c := newTestServer(t)
	ctx := context.Background()

	_, err := c.Password(ctx, tokenClient, "alice", "bob", nil)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	tok, err := c.Password(ctx, tokenClient, "alice", "alice", []string{"openid", "profile", "api1"})
	require.NoError(t, err)
	require.NotEmpty(t, tok.IDToken)

	info, err := c.UserInfo(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "1", info.Subject())
	require.Equal(t, "AliceSmith@email.com", info["email"])

	_, err = c.UserInfo(ctx, "garbage")
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestAuthorizationCodeFlow(t *testing.T) {
	t.Parallel()
	_, c := newTestServer(t)
	ctx := context.Background()

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)
	req := authsdk.AuthorizeRequest{
		ClientID:    catalog.DefaultCodeClientID,
		RedirectURI: redirectURI,
		Scopes:      []string{"api1"},
		State:       "af0ifjsldkj",
		PKCE:        pkce,
	}

	code, err := c.AuthorizeWithPassword(ctx, req, "bob", "bob")
	require.NoError(t, err)

	_, err = c.ExchangeCode(ctx, codeClient, code, redirectURI, "wrong-verifier-wrong-verifier-wrong-verifier")
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	code, err = c.AuthorizeWithPassword(ctx, req, "bob", "bob")
	require.NoError(t, err)
	tok, err := c.ExchangeCode(ctx, codeClient, code, redirectURI, pkce.Verifier)
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.Empty(t, tok.RefreshToken)

	out, err := c.Introspect(ctx, apiResource, tok.AccessToken)
	require.NoError(t, err)
	require.True(t, out.Active)
	require.Equal(t, "2", out.Subject)

	_, err = c.ExchangeCode(ctx, codeClient, code, redirectURI, pkce.Verifier)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
}

func TestAuthorizeRendersLoginForm(t *testing.T) {
	t.Parallel()
	srv, c := newTestServer(t)

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)
	target := c.BuildAuthorizeURL(authsdk.AuthorizeRequest{
		ClientID:    catalog.DefaultCodeClientID,
		RedirectURI: redirectURI,
		Scopes:      []string{"api1"},
		State:       "s",
		PKCE:        pkce,
	})
	require.True(t, strings.HasPrefix(target, srv.URL+"/connect/authorize?"))

	resp, err := http.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, string(body), "Swagger UI for demo_api")
	require.Contains(t, string(body), `name="code_challenge" value="`+pkce.Challenge+`"`)
}

func TestAuthorizeErrors(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)
	client := noRedirect()

	get := func(t *testing.T, q url.Values) *http.Response {
		t.Helper()
		resp, err := client.Get(srv.URL + "/connect/authorize?" + q.Encode())
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}
	base := func() url.Values {
		return url.Values{
			"response_type":         {"code"},
			"client_id":             {"bob"},
			"redirect_uri":          {redirectURI},
			"scope":                 {"api1"},
			"state":                 {"st"},
			"code_challenge":        {strings.Repeat("x", 43)},
			"code_challenge_method": {"S256"},
		}
	}

	t.Run("unknown client is not redirected", func(t *testing.T) {
		q := base()
		q.Set("client_id", "nobody")
		resp := get(t, q)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("foreign redirect is not followed", func(t *testing.T) {
		q := base()
		q.Set("redirect_uri", "https://attacker.example/cb")
		resp := get(t, q)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Empty(t, resp.Header.Get("Location"))
	})

	t.Run("bad scope redirects with error and state", func(t *testing.T) {
		q := base()
		q.Set("scope", "api2")
		resp := get(t, q)
		require.Equal(t, http.StatusFound, resp.StatusCode)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "invalid_scope", loc.Query().Get("error"))
		require.Equal(t, "st", loc.Query().Get("state"))
		require.True(t, strings.HasPrefix(loc.String(), redirectURI))
	})

	t.Run("wrong password re-renders the form", func(t *testing.T) {
		form := base()
		form.Set("username", "alice")
		form.Set("password", "nope")
		resp, err := client.PostForm(srv.URL+"/connect/authorize", form)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, string(body), "Invalid username or password.")
		require.Contains(t, string(body), `value="alice"`)
	})
}

func TestRevocationAlwaysSucceeds(t *testing.T) {
	t.Parallel()
	_, c := newTestServer(t)

	require.NoError(t, c.Revoke(context.Background(), tokenClient, "unknown", "refresh_token"))
}

func TestCORSPreflightOnTokenEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/connect/token", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:5000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusForbidden, resp2.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	srv, c := newTestServer(t)
	ctx := context.Background()

	live, err := c.Liveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := c.Readiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Signer)

	_, err = c.ClientCredentials(ctx, tokenClient, nil)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), `docsauth_tokens_issued_total{client_id="client_1",grant_type="client_credentials",service="identity"} 1`)
}
