package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
)

// TokenHandler serves POST /connect/token.
type TokenHandler struct {
	Clients *service.ClientService
	Tokens  *service.TokenService
	Metrics *metricsx.Metrics
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 token endpoint
//	@Description	Issues tokens for the authorization_code, client_credentials, password and refresh_token grants.
//	@Description	Clients authenticate with HTTP Basic (client_secret_basic) or form fields (client_secret_post).
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, client_credentials, password, refresh_token)
//	@Param			client_id		formData	string					false	"Client identifier (when not using Basic auth)"
//	@Param			client_secret	formData	string					false	"Client secret (client_secret_post)"
//	@Param			code			formData	string					false	"Authorization code"
//	@Param			redirect_uri	formData	string					false	"Redirect URI used at the authorization endpoint"
//	@Param			code_verifier	formData	string					false	"PKCE code verifier"
//	@Param			username		formData	string					false	"Username (password grant)"
//	@Param			password		formData	string					false	"Password (password grant)"
//	@Param			refresh_token	formData	string					false	"Refresh token"
//	@Param			scope			formData	string					false	"Space-delimited scopes"
//	@Success		200				{object}	authsdk.TokenResponse
//	@Failure		400				{object}	authsdk.OAuth2Error
//	@Failure		401				{object}	authsdk.OAuth2Error
//	@Header			200				{string}	Cache-Control	"no-store"
//	@Router			/connect/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	creds, ok := clientCredentials(r)
	if !ok {
		authsdk.ErrInvalidRequest.WithDescription("conflicting client credentials").WriteError(w)
		return
	}

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))
	if grantType == "" {
		authsdk.ErrInvalidRequest.WithDescription("grant_type is required").WriteError(w)
		return
	}

	client, err := h.Clients.AuthenticateClient(r.Context(), creds)
	if err != nil {
		writeServiceError(w, r, err, "client authentication failed")
		return
	}

	resp, err := h.dispatch(r, client, grantType)
	if err != nil {
		writeServiceError(w, r, err, grantType+" grant failed")
		return
	}

	h.Metrics.TokenIssued(grantType, client.ID)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *TokenHandler) dispatch(r *http.Request, client *catalog.Client, grantType string) (*authsdk.TokenResponse, error) {
	ctx := r.Context()
	form := r.PostForm
	scopes := strings.Fields(form.Get("scope"))

	switch grantType {
	case authsdk.GrantAuthorizationCode:
		return h.Tokens.ExchangeAuthorizationCode(ctx, client, form.Get("code"), form.Get("redirect_uri"), form.Get("code_verifier"))
	case authsdk.GrantClientCredentials:
		return h.Tokens.ClientCredentials(ctx, client, scopes)
	case authsdk.GrantPassword:
		return h.Tokens.Password(ctx, client, form.Get("username"), form.Get("password"), scopes)
	case authsdk.GrantRefreshToken:
		return h.Tokens.Refresh(ctx, client, form.Get("refresh_token"), scopes)
	default:
		return nil, service.ErrUnsupportedGrantType
	}
}
