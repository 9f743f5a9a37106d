package http

import (
	"net/http"

	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
)

// UserInfoHandler serves GET /connect/userinfo.
type UserInfoHandler struct {
	Tokens *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OpenID Connect userinfo
//	@Description	Returns the claims released by the identity scopes of the bearer token.
//	@Tags			OIDC
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]any
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Router			/connect/userinfo [get]
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.BearerToken(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer`)
		writeServiceError(w, r, service.ErrInvalidToken, "userinfo without token")
		return
	}

	info, err := h.Tokens.UserInfo(r.Context(), token)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeServiceError(w, r, err, "userinfo rejected")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, info)
}
