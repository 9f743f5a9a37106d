package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// RevocationHandler serves POST /connect/revocation (RFC 7009).
type RevocationHandler struct {
	Clients *service.ClientService
	Tokens  *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token revocation
//	@Description	Revokes a refresh token and every token rotated from it. Unknown tokens are ignored.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Param			token			formData	string	true	"Token to revoke"
//	@Param			token_type_hint	formData	string	false	"refresh_token or access_token"
//	@Success		200
//	@Failure		400	{object}	authsdk.OAuth2Error
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Router			/connect/revocation [post]
func (h *RevocationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	creds, ok := clientCredentials(r)
	if !ok {
		authsdk.ErrInvalidRequest.WithDescription("conflicting client credentials").WriteError(w)
		return
	}
	client, err := h.Clients.AuthenticateClient(r.Context(), creds)
	if err != nil {
		writeServiceError(w, r, err, "revocation caller rejected")
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}

	if err := h.Tokens.Revoke(r.Context(), client, token); err != nil {
		// RFC 7009 section 2.2: the client cannot act on a failure.
		slogx.FromContext(r.Context()).Error("revocation failed", "err", err)
	}
	w.WriteHeader(http.StatusOK)
}
