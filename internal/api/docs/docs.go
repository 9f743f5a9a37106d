// Package docs produces the API description served to the documentation
// UI, in one of two flavours: a Swagger 2.0 document generated by swag from
// handler annotations, or an OpenAPI 3 document built from the endpoint
// declarations. Both get their security metadata from the annex.
package docs

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
)

// Security scheme names.
const (
	SchemeOAuth2         = "oauth2"
	SchemeOAuth2Password = "oauth2_password"
)

// Options describe the document.
type Options struct {
	Title       string
	Version     string
	Description string
	PublicURL   string            // where the API is served
	Authority   string            // identity provider base URL
	Scopes      map[string]string // scope name to description
}

func (o Options) tokenURL() string {
	return strings.TrimSuffix(o.Authority, "/") + authsdk.PathToken
}

func (o Options) authorizeURL() string {
	return strings.TrimSuffix(o.Authority, "/") + authsdk.PathAuthorize
}

// JSONHandler serves doc, marshalled once.
func JSONHandler(doc any) (http.Handler, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(b)
	}), nil
}
