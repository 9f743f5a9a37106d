package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/internal/identity/store/drivers/memory"
	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "http://localhost:5001"

type harness struct {
	catalog   *catalog.Catalog
	store     *memory.Store
	keys      *jwtx.KeyManager
	clients   *ClientService
	authorize *AuthorizeService
	tokens    *TokenService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cat := catalog.Default()
	cat.Clients = append(cat.Clients, catalog.Client{
		ID:                 "native",
		AllowedGrantTypes:  []string{"authorization_code", "password"},
		RequirePKCE:        true,
		AllowPlainTextPKCE: true,
		RedirectURIs:       []string{"http://127.0.0.1/callback"},
		AllowedScopes:      []string{catalog.ScopeOpenID, catalog.ScopeProfile, catalog.DefaultAPIScope},
		AllowOfflineAccess: true,
	})
	require.NoError(t, cat.Validate())

	st := memory.NewStore()
	km, err := jwtx.NewKeyManager(context.Background(), jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256})
	require.NoError(t, err)

	return &harness{
		catalog:   cat,
		store:     st,
		keys:      km,
		clients:   &ClientService{Catalog: cat},
		authorize: &AuthorizeService{Catalog: cat, Store: st},
		tokens:    &TokenService{Catalog: cat, Store: st, KeyManager: km, Issuer: testIssuer},
	}
}

func (h *harness) client(t *testing.T, id string) *catalog.Client {
	t.Helper()
	c, ok := h.catalog.Client(id)
	require.True(t, ok)
	return c
}

func (h *harness) resource(t *testing.T) *catalog.Resource {
	t.Helper()
	r, ok := h.catalog.Resource(catalog.DefaultResource)
	require.True(t, ok)
	return r
}

func testVerifier(t *testing.T) (string, string) {
	t.Helper()
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	return verifier, cryptox.S256Challenge(verifier)
}
