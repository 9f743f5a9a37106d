package httpx

import (
	"context"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
)

// Principal is the authenticated caller of a protected endpoint.
type Principal struct {
	Subject   string
	ClientID  string
	Scopes    jwtx.ScopeList
	ExpiresAt time.Time
	Claims    map[string]any
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller stored by Authenticate, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
