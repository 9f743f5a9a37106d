// Package identitytest runs an in-process identity provider for tests of
// the components that depend on one.
package identitytest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	httpapi "github.com/aussiebroadwan/docsauth/internal/identity/http"
	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/internal/identity/store/drivers/memory"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// Server is a running identity provider backed by the default catalog.
type Server struct {
	URL     string
	Catalog *catalog.Catalog
	Keys    *jwtx.KeyManager
	Client  *authsdk.Client
}

var relaxed = httpx.RateLimit{Requests: 10000, Window: time.Minute, Burst: 10000}

// NewServer starts a provider whose issuer is its own URL. It is closed when
// the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	var router *httpapi.Router
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	cat := catalog.Default()
	st := memory.NewStore()
	km, err := jwtx.NewKeyManager(context.Background(), jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router = httpapi.NewRouter(cat, km, st, srv.URL, "test", logger)
	router.Limits = httpapi.Limits{Login: relaxed, Token: relaxed, Introspect: relaxed, Public: relaxed}
	router.ClientService = &service.ClientService{Catalog: cat}
	router.AuthorizeService = &service.AuthorizeService{Catalog: cat, Store: st}
	router.TokenService = &service.TokenService{Catalog: cat, Store: st, KeyManager: km, Issuer: srv.URL}
	router.ApplyRoutes()

	return &Server{
		URL:     srv.URL,
		Catalog: cat,
		Keys:    km,
		Client:  authsdk.NewClient(srv.URL),
	}
}

// ClientAuth is the default secret-based client.
var ClientAuth = authsdk.ClientAuth{ID: catalog.DefaultTokenClientID, Secret: catalog.DevelopmentSecret}

// ResourceAuth authenticates the default API resource at introspection.
var ResourceAuth = authsdk.ClientAuth{ID: catalog.DefaultResource, Secret: catalog.DevelopmentSecret}

// Token fetches a client credentials access token for scopes.
func (s *Server) Token(t testing.TB, scopes ...string) string {
	t.Helper()
	resp, err := s.Client.ClientCredentials(context.Background(), ClientAuth, scopes)
	require.NoError(t, err)
	return resp.AccessToken
}

// UserToken fetches a password grant access token for username, whose
// password equals the username in the default catalog.
func (s *Server) UserToken(t testing.TB, username string, scopes ...string) string {
	t.Helper()
	resp, err := s.Client.Password(context.Background(), ClientAuth, username, username, scopes)
	require.NoError(t, err)
	return resp.AccessToken
}
