//go:build e2e

package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apiapp "github.com/aussiebroadwan/docsauth/internal/api/app"
	"github.com/aussiebroadwan/docsauth/internal/api/authn"
	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
)

// The API runs in process and introspects tokens at the container, which
// works whatever port the container is mapped to.
func TestAPIIntrospectsContainerTokens(t *testing.T) {
	baseURL := setupIdentityContainer(t, nil)
	client := newClient(t, baseURL)
	ctx := context.Background()

	app, err := apiapp.New(ctx, apiapp.Config{
		Variant:             apiapp.VariantOpenAPI,
		PublicURL:           "http://localhost:5000",
		Authority:           baseURL,
		Audience:            catalog.DefaultResource,
		Strategy:            authn.StrategyIntrospection,
		ResourceSecret:      catalog.DevelopmentSecret,
		IntrospectionTTL:    time.Minute,
		UIClientID:          catalog.DefaultCodeClientID,
		Scopes:              []string{catalog.DefaultAPIScope},
		Env:                 "test",
		LogLevel:            "error",
		LogFormat:           "text",
		ShutdownGracePeriod: time.Second,
	}, catalog.Default())
	require.NoError(t, err)

	api := httptest.NewServer(app.Handler())
	t.Cleanup(api.Close)

	call := func(path, token string) int {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	tok, err := client.ClientCredentials(ctx, tokenClient, []string{"api1"})
	require.NoError(t, err)
	user, err := client.Password(ctx, tokenClient, "alice", "alice", []string{"openid"})
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, call("/api/values", ""))
	require.Equal(t, http.StatusOK, call("/api/values", tok.AccessToken))
	require.Equal(t, http.StatusOK, call("/api/identity", tok.AccessToken))
	require.Equal(t, http.StatusUnauthorized, call("/api/values", user.AccessToken))
	require.Equal(t, http.StatusOK, call("/api/public/ping", ""))
	require.Equal(t, http.StatusOK, call("/readyz", ""))
}
