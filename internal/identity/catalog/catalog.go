// Package catalog holds the static registration data of the identity
// provider: identity resources, API scopes, API resources, clients and test
// users. A Catalog is built once at startup, validated, and shared read-only
// by the identity provider and the documented API.
package catalog

import (
	"slices"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
)

// Standard identity scopes.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeOfflineAccess = "offline_access"
)

// Token lifetimes applied when a client leaves them unset.
const (
	DefaultAccessTokenLifetime  = time.Hour
	DefaultRefreshTokenLifetime = 30 * 24 * time.Hour
)

// IdentityResource is a named group of user claims requestable as a scope.
type IdentityResource struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	UserClaims  []string `yaml:"user_claims"`
}

// Scope is an API permission.
type Scope struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Secret is a hashed shared secret. Plain is only read from catalog files
// and is cleared once hashed into Value.
type Secret struct {
	Value       string `yaml:"value,omitempty"`
	Plain       string `yaml:"plain,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Resource is a protected API. Its secrets authenticate it at the
// introspection endpoint.
type Resource struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Scopes      []string `yaml:"scopes"`
	Secrets     []Secret `yaml:"secrets"`
}

// VerifySecret reports whether presented matches one of the resource secrets.
func (r *Resource) VerifySecret(presented string) bool {
	return verifyAny(r.Secrets, presented)
}

// Client is a registered OAuth2 client.
type Client struct {
	ID                   string        `yaml:"id"`
	Name                 string        `yaml:"name"`
	AllowedGrantTypes    []string      `yaml:"allowed_grant_types"`
	Secrets              []Secret      `yaml:"secrets"`
	RequireSecret        bool          `yaml:"require_secret"`
	RequirePKCE          bool          `yaml:"require_pkce"`
	AllowPlainTextPKCE   bool          `yaml:"allow_plain_text_pkce"`
	RedirectURIs         []string      `yaml:"redirect_uris"`
	AllowedCORSOrigins   []string      `yaml:"allowed_cors_origins"`
	AllowedScopes        []string      `yaml:"allowed_scopes"`
	AllowOfflineAccess   bool          `yaml:"allow_offline_access"`
	AccessTokenLifetime  time.Duration `yaml:"access_token_lifetime"`
	RefreshTokenLifetime time.Duration `yaml:"refresh_token_lifetime"`
}

// HasGrant reports whether grant is registered for the client.
func (c *Client) HasGrant(grant string) bool {
	return slices.Contains(c.AllowedGrantTypes, grant)
}

// AllowsScope reports whether the client may request scope.
// offline_access is governed by AllowOfflineAccess.
func (c *Client) AllowsScope(scope string) bool {
	if scope == ScopeOfflineAccess {
		return c.AllowOfflineAccess
	}
	return slices.Contains(c.AllowedScopes, scope)
}

// HasRedirectURI reports an exact match against the registered redirect URIs.
func (c *Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// VerifySecret reports whether presented matches one of the client secrets.
func (c *Client) VerifySecret(presented string) bool {
	return verifyAny(c.Secrets, presented)
}

// AccessTTL returns the access token lifetime.
func (c *Client) AccessTTL() time.Duration {
	if c.AccessTokenLifetime > 0 {
		return c.AccessTokenLifetime
	}
	return DefaultAccessTokenLifetime
}

// RefreshTTL returns the refresh token lifetime.
func (c *Client) RefreshTTL() time.Duration {
	if c.RefreshTokenLifetime > 0 {
		return c.RefreshTokenLifetime
	}
	return DefaultRefreshTokenLifetime
}

// UsesAuthorizationCode reports whether the client is a browser code client.
func (c *Client) UsesAuthorizationCode() bool {
	return c.HasGrant(authsdk.GrantAuthorizationCode)
}

// User is a test user for the interactive and password flows. Password is an
// Argon2id hash.
type User struct {
	Subject  string            `yaml:"subject"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Claims   map[string]string `yaml:"claims"`
}

// VerifyPassword checks password against the stored hash.
func (u *User) VerifyPassword(password string) bool {
	return cryptox.VerifyPassword(password, u.Password) == nil
}

// Catalog is the full registration set.
type Catalog struct {
	IdentityResources []IdentityResource `yaml:"identity_resources"`
	Scopes            []Scope            `yaml:"scopes"`
	Resources         []Resource         `yaml:"resources"`
	Clients           []Client           `yaml:"clients"`
	Users             []User             `yaml:"users"`
}

// Client returns the client with id.
func (c *Catalog) Client(id string) (*Client, bool) {
	for i := range c.Clients {
		if c.Clients[i].ID == id {
			return &c.Clients[i], true
		}
	}
	return nil, false
}

// Resource returns the API resource named name.
func (c *Catalog) Resource(name string) (*Resource, bool) {
	for i := range c.Resources {
		if c.Resources[i].Name == name {
			return &c.Resources[i], true
		}
	}
	return nil, false
}

// User returns the user with username.
func (c *Catalog) User(username string) (*User, bool) {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i], true
		}
	}
	return nil, false
}

// UserBySubject returns the user with subject id sub.
func (c *Catalog) UserBySubject(sub string) (*User, bool) {
	for i := range c.Users {
		if c.Users[i].Subject == sub {
			return &c.Users[i], true
		}
	}
	return nil, false
}

// IdentityResource returns the identity resource named name.
func (c *Catalog) IdentityResource(name string) (*IdentityResource, bool) {
	for i := range c.IdentityResources {
		if c.IdentityResources[i].Name == name {
			return &c.IdentityResources[i], true
		}
	}
	return nil, false
}

// ScopeExists reports whether name is an API scope, an identity resource or
// offline_access.
func (c *Catalog) ScopeExists(name string) bool {
	if name == ScopeOfflineAccess {
		return true
	}
	if _, ok := c.IdentityResource(name); ok {
		return true
	}
	return c.isAPIScope(name)
}

// IsIdentityScope reports whether name is an identity resource.
func (c *Catalog) IsIdentityScope(name string) bool {
	_, ok := c.IdentityResource(name)
	return ok
}

func (c *Catalog) isAPIScope(name string) bool {
	for _, s := range c.Scopes {
		if s.Name == name {
			return true
		}
	}
	return false
}

// ResourcesForScopes returns the names of the API resources exposing any of
// scopes, in catalog order.
func (c *Catalog) ResourcesForScopes(scopes []string) []string {
	var out []string
	for _, r := range c.Resources {
		for _, s := range r.Scopes {
			if slices.Contains(scopes, s) {
				out = append(out, r.Name)
				break
			}
		}
	}
	return out
}

// IdentityScopes filters scopes down to identity resources.
func (c *Catalog) IdentityScopes(scopes []string) []string {
	var out []string
	for _, s := range scopes {
		if c.IsIdentityScope(s) {
			out = append(out, s)
		}
	}
	return out
}

// UserClaims returns the claim names released for the given identity scopes.
func (c *Catalog) UserClaims(scopes []string) []string {
	var out []string
	for _, s := range scopes {
		if ir, ok := c.IdentityResource(s); ok {
			for _, claim := range ir.UserClaims {
				if !slices.Contains(out, claim) {
					out = append(out, claim)
				}
			}
		}
	}
	return out
}

// CORSOrigins returns the union of all client CORS origins.
func (c *Catalog) CORSOrigins() []string {
	var out []string
	for _, cl := range c.Clients {
		for _, o := range cl.AllowedCORSOrigins {
			if !slices.Contains(out, o) {
				out = append(out, o)
			}
		}
	}
	return out
}

// ScopeNames lists every requestable scope: identity resources, API scopes
// and offline_access when any client allows it.
func (c *Catalog) ScopeNames() []string {
	var out []string
	for _, ir := range c.IdentityResources {
		out = append(out, ir.Name)
	}
	for _, s := range c.Scopes {
		out = append(out, s.Name)
	}
	for _, cl := range c.Clients {
		if cl.AllowOfflineAccess {
			out = append(out, ScopeOfflineAccess)
			break
		}
	}
	return out
}

// ScopeDescriptions maps API scope names to their descriptions.
func (c *Catalog) ScopeDescriptions() map[string]string {
	out := make(map[string]string, len(c.Scopes))
	for _, s := range c.Scopes {
		out[s.Name] = s.Description
	}
	return out
}

// ClaimNames lists every claim any identity resource can release.
func (c *Catalog) ClaimNames() []string {
	var names []string
	for _, ir := range c.IdentityResources {
		names = append(names, ir.Name)
	}
	return c.UserClaims(names)
}

func verifyAny(secrets []Secret, presented string) bool {
	ok := false
	for _, s := range secrets {
		if cryptox.VerifySecret(presented, s.Value) {
			ok = true
		}
	}
	return ok
}
