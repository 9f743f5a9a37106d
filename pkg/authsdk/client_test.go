package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
)

func TestGeneratePKCEChallenge(t *testing.T) {
	t.Parallel()

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)
	require.Equal(t, authsdk.PKCEMethodS256, pkce.Method)
	require.NotEmpty(t, pkce.Verifier)
	require.Equal(t, cryptox.S256Challenge(pkce.Verifier), pkce.Challenge)
}

func TestBuildAuthorizeURL(t *testing.T) {
	t.Parallel()

	client := authsdk.NewClient("https://auth.example.com/")
	pkce := &authsdk.PKCEChallenge{Verifier: "v", Challenge: "c", Method: "S256"}

	raw := client.BuildAuthorizeURL(authsdk.AuthorizeRequest{
		ClientID:    "bob",
		RedirectURI: "http://localhost:5000/swagger/oauth2-redirect.html",
		Scopes:      []string{"api1", "openid"},
		State:       "xyz",
		PKCE:        pkce,
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "auth.example.com", u.Host)
	assert.Equal(t, authsdk.PathAuthorize, u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "bob", q.Get("client_id"))
	assert.Equal(t, "api1 openid", q.Get("scope"))
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "c", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Empty(t, q.Get("nonce"))
}

func TestClientCredentialsUsesBasicAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, authsdk.PathToken, r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		id, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client_1", id)
		assert.Equal(t, "secret", secret)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "api1", r.PostForm.Get("scope"))
		assert.Empty(t, r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authsdk.TokenResponse{
			AccessToken: "at",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
			Scope:       "api1",
		})
	}))
	t.Cleanup(srv.Close)

	tok, err := authsdk.NewClient(srv.URL).ClientCredentials(context.Background(),
		authsdk.ClientAuth{ID: "client_1", Secret: "secret"}, []string{"api1"})
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, 3600, tok.ExpiresIn)
}

func TestPublicClientSendsClientIDInForm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "bob", r.PostForm.Get("client_id"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "verifier", r.PostForm.Get("code_verifier"))

		_ = json.NewEncoder(w).Encode(authsdk.TokenResponse{AccessToken: "at", TokenType: "Bearer"})
	}))
	t.Cleanup(srv.Close)

	_, err := authsdk.NewClient(srv.URL).ExchangeCode(context.Background(),
		authsdk.ClientAuth{ID: "bob"}, "the-code", "http://localhost/cb", "verifier")
	require.NoError(t, err)
}

func TestTokenErrorIsTyped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		authsdk.ErrInvalidGrant.WithDescription("authorization code is invalid").WriteError(w)
	}))
	t.Cleanup(srv.Close)

	_, err := authsdk.NewClient(srv.URL).Password(context.Background(),
		authsdk.ClientAuth{ID: "client_1", Secret: "secret"}, "alice", "wrong", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	var oe *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, http.StatusBadRequest, oe.StatusCode)
	assert.Equal(t, "authorization code is invalid", oe.Description)
}

func TestWriteErrorInvalidClientChallenges(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	authsdk.ErrInvalidClient.WriteError(rec)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
	assert.JSONEq(t, `{"error":"invalid_client","error_description":"invalid client"}`, rec.Body.String())
}

func TestIntrospect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "api1" || secret != "secret" {
			authsdk.ErrInvalidClient.WriteError(w)
			return
		}
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("token") != "good" {
			_, _ = w.Write([]byte(`{"active":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"active":true,"scope":"api1 openid","client_id":"client_1","sub":"alice","aud":"api1","exp":1700000000}`))
	}))
	t.Cleanup(srv.Close)

	client := authsdk.NewClient(srv.URL)
	ctx := context.Background()

	info, err := client.Introspect(ctx, authsdk.ClientAuth{ID: "api1", Secret: "secret"}, "good")
	require.NoError(t, err)
	assert.True(t, info.Active)
	assert.True(t, info.Scopes().Has("api1"))
	assert.Equal(t, []string{"api1"}, []string(info.Audience))

	info, err = client.Introspect(ctx, authsdk.ClientAuth{ID: "api1", Secret: "secret"}, "bad")
	require.NoError(t, err)
	assert.False(t, info.Active)

	_, err = client.Introspect(ctx, authsdk.ClientAuth{ID: "api1", Secret: "nope"}, "good")
	require.ErrorIs(t, err, authsdk.ErrInvalidClient)
}

func TestAuthorizeWithPassword(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		redirect := r.PostForm.Get("redirect_uri")
		if r.PostForm.Get("password") != "alice" {
			http.Redirect(w, r, redirect+"?error=access_denied&state="+r.PostForm.Get("state"), http.StatusFound)
			return
		}
		http.Redirect(w, r, redirect+"?code=abc&state="+r.PostForm.Get("state"), http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	client := authsdk.NewClient(srv.URL)
	req := authsdk.AuthorizeRequest{ClientID: "bob", RedirectURI: "http://localhost/cb", State: "s1"}

	code, err := client.AuthorizeWithPassword(context.Background(), req, "alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, "abc", code)

	_, err = client.AuthorizeWithPassword(context.Background(), req, "alice", "wrong")
	require.ErrorIs(t, err, authsdk.ErrAccessDenied)
}

func TestRevokeAcceptsEmptyOK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	err := authsdk.NewClient(srv.URL).Revoke(context.Background(),
		authsdk.ClientAuth{ID: "client_1", Secret: "secret"}, "rt", "refresh_token")
	require.NoError(t, err)
}
