// Package swaggerui configures the documentation UI so a developer can get
// a token straight from the page. The flow and client are taken from the
// identity catalog, so a UI that could never obtain a token is a startup
// error rather than a confusing page.
package swaggerui

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Flow is the OAuth2 flow the UI drives.
type Flow string

const (
	// FlowAuto picks the flow from the client registration.
	FlowAuto Flow = ""
	// FlowAuthorizationCodePKCE redirects the browser to the provider; no
	// secret is involved.
	FlowAuthorizationCodePKCE Flow = "authorization_code_pkce"
	// FlowClientSecret covers client credentials and password, both of which
	// post the client secret.
	FlowClientSecret Flow = "client_secret"
)

// Defaults.
const (
	DefaultDocURL  = "/swagger/v1/swagger.json"
	DefaultAppName = "Demo API - Swagger"
	RedirectPath   = "/swagger/oauth2-redirect.html"
)

var (
	ErrUnknownClient  = errors.New("swaggerui: client is not registered")
	ErrFlowMismatch   = errors.New("swaggerui: flow does not match the client registration")
	ErrSecretMismatch = errors.New("swaggerui: client secret does not match the registration")
)

// Options select the client and flow to pre-fill.
type Options struct {
	ClientID     string
	ClientSecret string
	Flow         Flow
	PublicURL    string // base URL the UI is served from
	DocURL       string
	AppName      string
	Scopes       []string

	DisplayOperationID bool
}

// UIConfig is the resolved UI configuration.
type UIConfig struct {
	ClientID     string
	ClientSecret string // empty for the PKCE flow
	AppName      string
	Flow         Flow
	UsePKCE      bool
	Scopes       []string
	DocURL       string
	RedirectURL  string

	DisplayOperationID bool
}

// Configure resolves opts against the client registration in cat.
func Configure(cat *catalog.Catalog, opts Options) (UIConfig, error) {
	client, ok := cat.Client(opts.ClientID)
	if !ok {
		return UIConfig{}, fmt.Errorf("%w: %q", ErrUnknownClient, opts.ClientID)
	}

	flow, err := resolveFlow(client, opts.Flow)
	if err != nil {
		return UIConfig{}, err
	}

	cfg := UIConfig{
		ClientID:           client.ID,
		AppName:            opts.AppName,
		Flow:               flow,
		Scopes:             opts.Scopes,
		DocURL:             opts.DocURL,
		DisplayOperationID: opts.DisplayOperationID,
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.DocURL == "" {
		cfg.DocURL = DefaultDocURL
	}

	for _, s := range cfg.Scopes {
		if !client.AllowsScope(s) {
			return UIConfig{}, fmt.Errorf("swaggerui: scope %q is not allowed for client %q", s, client.ID)
		}
	}

	switch flow {
	case FlowAuthorizationCodePKCE:
		cfg.UsePKCE = true
		cfg.RedirectURL = strings.TrimSuffix(opts.PublicURL, "/") + RedirectPath
		if !client.HasRedirectURI(cfg.RedirectURL) {
			return UIConfig{}, fmt.Errorf("%w: %s is not a redirect URI of %q", ErrFlowMismatch, cfg.RedirectURL, client.ID)
		}
	case FlowClientSecret:
		if client.RequireSecret && !client.VerifySecret(opts.ClientSecret) {
			return UIConfig{}, fmt.Errorf("%w: %q", ErrSecretMismatch, client.ID)
		}
		cfg.ClientSecret = opts.ClientSecret
	}
	return cfg, nil
}

func resolveFlow(client *catalog.Client, want Flow) (Flow, error) {
	pkce := client.UsesAuthorizationCode() && client.RequirePKCE
	secret := client.HasGrant(authsdk.GrantClientCredentials) || client.HasGrant(authsdk.GrantPassword)

	switch want {
	case FlowAuto:
		if pkce {
			return FlowAuthorizationCodePKCE, nil
		}
		if secret {
			return FlowClientSecret, nil
		}
	case FlowAuthorizationCodePKCE:
		if pkce {
			return want, nil
		}
	case FlowClientSecret:
		if secret {
			return want, nil
		}
	default:
		return "", fmt.Errorf("swaggerui: unknown flow %q", want)
	}
	return "", fmt.Errorf("%w: client %q registers %v (require_pkce=%t)",
		ErrFlowMismatch, client.ID, client.AllowedGrantTypes, client.RequirePKCE)
}

type initOAuth struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret,omitempty"`
	AppName      string `json:"appName"`
	Scopes       string `json:"scopes,omitempty"`
	UsePKCE      bool   `json:"usePkceWithAuthorizationCodeGrant"`
}

// InitOAuthScript is the ui.initOAuth call pre-filling the authorize dialog.
func (c UIConfig) InitOAuthScript() string {
	b, _ := json.Marshal(initOAuth{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		AppName:      c.AppName,
		Scopes:       strings.Join(c.Scopes, " "),
		UsePKCE:      c.UsePKCE,
	})
	return "ui.initOAuth(" + string(b) + ");"
}

// SwaggerUIConfig holds the extra SwaggerUIBundle properties as JavaScript
// literals.
func (c UIConfig) SwaggerUIConfig() map[string]string {
	props := map[string]string{}
	if c.RedirectURL != "" {
		b, _ := json.Marshal(c.RedirectURL)
		props["oauth2RedirectUrl"] = string(b)
	}
	if c.DisplayOperationID {
		props["displayOperationId"] = "true"
	}
	return props
}

// Handler serves the UI and its static assets. Mount it under /swagger/.
func (c UIConfig) Handler() http.HandlerFunc {
	return httpSwagger.Handler(
		httpSwagger.URL(c.DocURL),
		httpSwagger.UIConfig(c.SwaggerUIConfig()),
		httpSwagger.AfterScript(c.InitOAuthScript()),
		httpSwagger.PersistAuthorization(true),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	)
}
