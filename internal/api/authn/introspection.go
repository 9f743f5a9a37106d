package authn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
)

// DefaultCacheTTL bounds how long an introspection result is reused.
const DefaultCacheTTL = time.Minute

const maxCacheEntries = 4096

// IntrospectionVerifier asks the provider about every token it has not seen
// recently, authenticating as the API resource.
type IntrospectionVerifier struct {
	client   *authsdk.Client
	auth     authsdk.ClientAuth
	audience string
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	principal *httpx.Principal
	until     time.Time
}

// NewIntrospectionVerifier returns a verifier calling authority's
// introspection endpoint as resource audience. A non-positive ttl means
// DefaultCacheTTL.
func NewIntrospectionVerifier(authority, audience, secret string, ttl time.Duration, client *http.Client) *IntrospectionVerifier {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	sdk := authsdk.NewClient(authority)
	if client != nil {
		sdk.HTTPClient = client
	}
	return &IntrospectionVerifier{
		client:   sdk,
		auth:     authsdk.ClientAuth{ID: audience, Secret: secret},
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
		cache:    map[string]cacheEntry{},
	}
}

// Ready checks that the provider answers its discovery endpoint.
func (v *IntrospectionVerifier) Ready(ctx context.Context) error {
	_, err := v.client.Discover(ctx)
	return err
}

// VerifyToken returns the cached result for token or introspects it.
func (v *IntrospectionVerifier) VerifyToken(ctx context.Context, token string) (*httpx.Principal, error) {
	key := cryptox.FingerprintToken(token)
	now := v.now()

	v.mu.Lock()
	e, ok := v.cache[key]
	v.mu.Unlock()
	if ok && now.Before(e.until) {
		return e.principal, nil
	}

	resp, err := v.client.Introspect(ctx, v.auth, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", httpx.ErrVerifierUnavailable, err)
	}
	if !resp.Active {
		return nil, ErrInactive
	}
	if !resp.Audience.Has(v.audience) {
		return nil, ErrAudience
	}

	p := &httpx.Principal{
		Subject:  resp.Subject,
		ClientID: resp.ClientID,
		Scopes:   resp.Scopes(),
		Claims: map[string]any{
			"iss":       resp.Issuer,
			"sub":       resp.Subject,
			"client_id": resp.ClientID,
			"scope":     resp.Scope,
			"jti":       resp.JTI,
		},
	}

	until := now.Add(v.ttl)
	if resp.ExpiresAt > 0 {
		p.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
		p.Claims["exp"] = resp.ExpiresAt
		if !now.Before(p.ExpiresAt) {
			return nil, ErrInactive
		}
		if p.ExpiresAt.Before(until) {
			until = p.ExpiresAt
		}
	}

	v.store(key, cacheEntry{principal: p, until: until}, now)
	return p, nil
}

func (v *IntrospectionVerifier) store(key string, e cacheEntry, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.cache) >= maxCacheEntries {
		for k, old := range v.cache {
			if !now.Before(old.until) {
				delete(v.cache, k)
			}
		}
	}
	if len(v.cache) >= maxCacheEntries {
		clear(v.cache)
	}
	v.cache[key] = e
}
