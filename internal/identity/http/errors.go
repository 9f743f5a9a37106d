package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// oauth2Error maps a service error onto its wire form. Unknown errors are
// server_error.
func oauth2Error(err error) *authsdk.OAuth2Error {
	var base *authsdk.OAuth2Error
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		base = authsdk.ErrInvalidRequest
	case errors.Is(err, service.ErrInvalidClient):
		base = authsdk.ErrInvalidClient
	case errors.Is(err, service.ErrInvalidGrant):
		base = authsdk.ErrInvalidGrant
	case errors.Is(err, service.ErrInvalidScope):
		base = authsdk.ErrInvalidScope
	case errors.Is(err, service.ErrUnauthorizedClient):
		base = authsdk.ErrUnauthorizedClient
	case errors.Is(err, service.ErrUnsupportedGrantType):
		base = authsdk.ErrUnsupportedGrantType
	case errors.Is(err, service.ErrUnsupportedResponseType):
		base = authsdk.ErrUnsupportedResponseType
	case errors.Is(err, service.ErrInvalidToken):
		base = authsdk.ErrInvalidToken
	case errors.Is(err, service.ErrNotReady):
		base = authsdk.ErrTemporarilyUnavailable
	default:
		return authsdk.ErrServerError
	}

	if desc := service.Description(err); desc != "" {
		return base.WithDescription(desc)
	}
	return base
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	oe := oauth2Error(err)
	if oe.StatusCode >= http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error(msg, "err", err)
	} else {
		slogx.FromContext(r.Context()).Debug(msg, "err", err)
	}
	oe.WriteError(w)
}
