package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
)

// Discovery builds the OpenID Provider metadata for issuer.
func Discovery(issuer string, cat *catalog.Catalog, alg string) authsdk.DiscoveryDocument {
	base := strings.TrimSuffix(issuer, "/")
	return authsdk.DiscoveryDocument{
		Issuer:                base,
		AuthorizationEndpoint: base + authsdk.PathAuthorize,
		TokenEndpoint:         base + authsdk.PathToken,
		UserInfoEndpoint:      base + authsdk.PathUserInfo,
		JWKSURI:               base + authsdk.PathJWKS,
		IntrospectionEndpoint: base + authsdk.PathIntrospect,
		RevocationEndpoint:    base + authsdk.PathRevocation,
		ScopesSupported:       cat.ScopeNames(),
		ClaimsSupported:       cat.ClaimNames(),
		GrantTypesSupported: []string{
			authsdk.GrantAuthorizationCode,
			authsdk.GrantClientCredentials,
			authsdk.GrantPassword,
			authsdk.GrantRefreshToken,
		},
		ResponseTypesSupported:            []string{"code"},
		ResponseModesSupported:            []string{"query"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{alg},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post"},
		CodeChallengeMethodsSupported:     []string{authsdk.PKCEMethodPlain, authsdk.PKCEMethodS256},
	}
}

// DiscoveryHandler godoc
//
//	@Summary		OpenID Provider metadata
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.DiscoveryDocument
//	@Router			/.well-known/openid-configuration [get]
func DiscoveryHandler(issuer string, cat *catalog.Catalog, km *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, Discovery(issuer, cat, km.Algorithm()))
	}
}

// JWKSHandler godoc
//
//	@Summary		Get JWKS
//	@Description	Returns the keys used to verify access and ID tokens, including retired keys still in their grace period.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	jwtx.JWKS
//	@Router			/.well-known/openid-configuration/jwks [get]
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		httpx.WriteJSON(w, http.StatusOK, keys.JWKS())
	}
}
