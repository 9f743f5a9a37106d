package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
)

// parseForm enforces the form content type and parses the body.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return false
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return false
	}
	return true
}

// clientCredentials reads client_secret_basic or client_secret_post
// credentials (RFC 6749 section 2.3.1). Basic credentials are form-encoded
// before base64, so they are unescaped here. Using both methods at once is
// rejected.
func clientCredentials(r *http.Request) (service.ClientCredentials, bool) {
	formID := strings.TrimSpace(r.PostForm.Get("client_id"))
	formSecret := r.PostForm.Get("client_secret")

	user, pass, ok := r.BasicAuth()
	if !ok {
		return service.ClientCredentials{ID: formID, Secret: formSecret}, true
	}
	if formSecret != "" {
		return service.ClientCredentials{}, false
	}

	id, err := url.QueryUnescape(user)
	if err != nil {
		return service.ClientCredentials{}, false
	}
	secret, err := url.QueryUnescape(pass)
	if err != nil {
		return service.ClientCredentials{}, false
	}
	if formID != "" && formID != id {
		return service.ClientCredentials{}, false
	}
	return service.ClientCredentials{ID: id, Secret: secret}, true
}
