package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/httpx"
)

// Identity godoc
//
//	@Summary		Caller identity
//	@Description	Returns the claims of the verified access token.
//	@Tags			Identity
//	@Produce		json
//	@Success		200	{object}	IdentityResponse
//	@Router			/api/identity [get]
func Identity(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, IdentityResponse{
		Subject:  p.Subject,
		ClientID: p.ClientID,
		Scopes:   p.Scopes,
		Claims:   p.Claims,
	})
}

// Ping godoc
//
//	@Summary	Public ping
//	@Tags		Public
//	@Produce	json
//	@Success	200	{object}	PingResponse
//	@Router		/api/public/ping [get]
func Ping(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, PingResponse{Message: "pong", Time: time.Now().UTC()})
}
