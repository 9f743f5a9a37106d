package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
)

// IntrospectHandler serves POST /connect/introspect (RFC 7662). The caller
// authenticates as an API resource.
type IntrospectHandler struct {
	Clients *service.ClientService
	Tokens  *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token introspection
//	@Description	Reports whether an access token is active for the calling API resource.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		BasicAuth
//	@Param			token			formData	string	true	"Token to introspect"
//	@Param			token_type_hint	formData	string	false	"access_token"
//	@Success		200				{object}	authsdk.IntrospectionResponse
//	@Failure		401				{object}	authsdk.OAuth2Error
//	@Router			/connect/introspect [post]
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	creds, ok := clientCredentials(r)
	if !ok {
		authsdk.ErrInvalidRequest.WithDescription("conflicting client credentials").WriteError(w)
		return
	}
	resource, err := h.Clients.AuthenticateResource(r.Context(), creds)
	if err != nil {
		writeServiceError(w, r, err, "introspection caller rejected")
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}

	if hint := r.PostForm.Get("token_type_hint"); hint == "refresh_token" {
		// Refresh tokens are opaque to resources.
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, h.Tokens.Introspect(r.Context(), resource, token))
}
