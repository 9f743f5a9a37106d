package service

import (
	"fmt"
	"slices"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
)

// resolveScopes validates requested against the catalog and the client.
// An empty request grants every scope the client is allowed, minus identity
// scopes when there is no user.
func resolveScopes(cat *catalog.Catalog, client *catalog.Client, requested []string, withUser bool) ([]string, error) {
	requested = dedupe(requested)

	if len(requested) == 0 {
		var out []string
		for _, s := range client.AllowedScopes {
			if withUser || !cat.IsIdentityScope(s) {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil, describe(ErrInvalidScope, "client has no grantable scopes")
		}
		return out, nil
	}

	for _, s := range requested {
		if !cat.ScopeExists(s) {
			return nil, describe(ErrInvalidScope, fmt.Sprintf("unknown scope %q", s))
		}
		if !client.AllowsScope(s) {
			return nil, describe(ErrInvalidScope, fmt.Sprintf("scope %q is not allowed for client %q", s, client.ID))
		}
		if !withUser && (cat.IsIdentityScope(s) || s == catalog.ScopeOfflineAccess) {
			return nil, describe(ErrInvalidScope, fmt.Sprintf("scope %q requires a user", s))
		}
	}
	return requested, nil
}

// narrowScopes checks that requested is a subset of granted. An empty
// request keeps granted.
func narrowScopes(granted, requested []string) ([]string, error) {
	requested = dedupe(requested)
	if len(requested) == 0 {
		return granted, nil
	}
	for _, s := range requested {
		if !slices.Contains(granted, s) {
			return nil, describe(ErrInvalidScope, fmt.Sprintf("scope %q exceeds the original grant", s))
		}
	}
	return requested, nil
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
