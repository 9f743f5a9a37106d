package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
)

var knownGrants = map[string]bool{
	authsdk.GrantAuthorizationCode: true,
	authsdk.GrantClientCredentials: true,
	authsdk.GrantPassword:          true,
	authsdk.GrantRefreshToken:      true,
}

// Validate checks the catalog for internal consistency. Every violation is
// reported; the result is nil only when the catalog is usable.
func (c *Catalog) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	names := map[string]string{}
	claim := func(kind, name string) {
		if name == "" {
			fail("%s with empty name", kind)
			return
		}
		if prev, ok := names[name]; ok {
			fail("%s %q collides with %s of the same name", kind, name, prev)
			return
		}
		names[name] = kind
	}
	for _, ir := range c.IdentityResources {
		claim("identity resource", ir.Name)
	}
	for _, s := range c.Scopes {
		claim("scope", s.Name)
	}

	resources := map[string]bool{}
	for _, r := range c.Resources {
		if r.Name == "" {
			fail("resource with empty name")
		} else if resources[r.Name] {
			fail("duplicate resource %q", r.Name)
		}
		resources[r.Name] = true
		for _, s := range r.Scopes {
			if !c.isAPIScope(s) {
				fail("resource %q exposes undefined scope %q", r.Name, s)
			}
		}
	}

	clients := map[string]bool{}
	for _, cl := range c.Clients {
		if cl.ID == "" {
			fail("client with empty id")
			continue
		}
		if clients[cl.ID] {
			fail("duplicate client %q", cl.ID)
		}
		clients[cl.ID] = true

		if len(cl.AllowedGrantTypes) == 0 {
			fail("client %q has no grant types", cl.ID)
		}
		for _, g := range cl.AllowedGrantTypes {
			if !knownGrants[g] {
				fail("client %q has unknown grant type %q", cl.ID, g)
			}
		}
		for _, s := range cl.AllowedScopes {
			if !c.ScopeExists(s) {
				fail("client %q references undefined scope %q", cl.ID, s)
			}
		}
		if cl.RequireSecret && len(cl.Secrets) == 0 {
			fail("client %q requires a secret but has none", cl.ID)
		}
		if cl.HasGrant(authsdk.GrantClientCredentials) && !cl.RequireSecret {
			fail("client %q uses client_credentials without requiring a secret", cl.ID)
		}
		if cl.UsesAuthorizationCode() {
			if len(cl.RedirectURIs) == 0 {
				fail("client %q uses authorization_code without redirect URIs", cl.ID)
			}
			for _, u := range cl.RedirectURIs {
				if !isAbsoluteURL(u) {
					fail("client %q redirect URI %q is not absolute", cl.ID, u)
				}
			}
		}
		for _, o := range cl.AllowedCORSOrigins {
			if !isOrigin(o) {
				fail("client %q CORS origin %q must be scheme://host[:port]", cl.ID, o)
			}
		}
		for _, s := range cl.Secrets {
			if s.Value == "" {
				fail("client %q has an empty secret", cl.ID)
			}
		}
	}

	users := map[string]bool{}
	subjects := map[string]bool{}
	for _, u := range c.Users {
		if u.Username == "" || u.Subject == "" {
			fail("user %q needs both username and subject", u.Username)
			continue
		}
		if users[u.Username] {
			fail("duplicate username %q", u.Username)
		}
		if subjects[u.Subject] {
			fail("duplicate subject %q", u.Subject)
		}
		users[u.Username] = true
		subjects[u.Subject] = true
		if !cryptox.IsPasswordHash(u.Password) {
			fail("user %q password is not hashed", u.Username)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("catalog: invalid: %w", errors.Join(errs...))
}

// DevelopmentSecrets lists the registrations still using the well-known
// development secret, and users whose password equals their username.
func (c *Catalog) DevelopmentSecrets() []string {
	var out []string
	for _, r := range c.Resources {
		if r.VerifySecret(DevelopmentSecret) {
			out = append(out, "resource "+r.Name)
		}
	}
	for _, cl := range c.Clients {
		if cl.VerifySecret(DevelopmentSecret) {
			out = append(out, "client "+cl.ID)
		}
	}
	for _, u := range c.Users {
		if u.VerifyPassword(u.Username) {
			out = append(out, "user "+u.Username)
		}
	}
	return out
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != "" && u.Fragment == ""
}

func isOrigin(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return u.Path == "" && u.RawQuery == "" && u.Fragment == "" && u.User == nil
}

// ErrDevelopmentSecrets is returned by Assert in production while well-known
// development secrets remain.
var ErrDevelopmentSecrets = errors.New("catalog: development secrets in production")

// Assert is the startup check shared by both processes: the catalog must
// validate, and development secrets are logged outside development and fatal
// in production.
func (c *Catalog) Assert(env string, logger *slog.Logger) error {
	if err := c.Validate(); err != nil {
		return err
	}

	dev := c.DevelopmentSecrets()
	if len(dev) == 0 || env == "development" {
		return nil
	}
	if env == "production" {
		return fmt.Errorf("%w: %s", ErrDevelopmentSecrets, strings.Join(dev, ", "))
	}
	logger.Warn("catalog uses development secrets", "registrations", dev)
	return nil
}
