package authn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/sync/singleflight"
)

// DiscoveryRetryDelay is how long a failed discovery is reported before the
// provider is asked again.
const DiscoveryRetryDelay = 2 * time.Second

// JWTVerifier validates access tokens locally. The provider's discovery
// document and key set are fetched on first use and the keys are cached by
// go-oidc, refreshed when an unknown kid shows up.
type JWTVerifier struct {
	authority string
	audience  string
	client    *http.Client

	discovery singleflight.Group
	now       func() time.Time

	mu         sync.Mutex
	verifier   *oidc.IDTokenVerifier
	lastErr    error
	retryAfter time.Time
}

// NewJWTVerifier returns a verifier for tokens issued by authority for
// audience.
func NewJWTVerifier(authority, audience string, client *http.Client) *JWTVerifier {
	return &JWTVerifier{authority: authority, audience: audience, client: client, now: time.Now}
}

// Ready fetches the provider metadata if that has not happened yet.
func (v *JWTVerifier) Ready(ctx context.Context) error {
	_, err := v.load(ctx)
	return err
}

func (v *JWTVerifier) load(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	if verifier, err := v.cached(); verifier != nil || err != nil {
		return verifier, err
	}

	// Concurrent callers share one discovery; the lock is not held while it
	// runs.
	res, err, _ := v.discovery.Do(v.authority, func() (any, error) {
		if verifier, err := v.cached(); verifier != nil || err != nil {
			return verifier, err
		}

		dctx := oidc.ClientContext(context.WithoutCancel(ctx), v.client)
		provider, err := oidc.NewProvider(dctx, v.authority)

		v.mu.Lock()
		defer v.mu.Unlock()
		if err != nil {
			v.lastErr = fmt.Errorf("%w: discover %s: %w", httpx.ErrVerifierUnavailable, v.authority, err)
			v.retryAfter = v.now().Add(DiscoveryRetryDelay)
			return nil, v.lastErr
		}
		v.verifier = provider.Verifier(&oidc.Config{ClientID: v.audience})
		v.lastErr = nil
		return v.verifier, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*oidc.IDTokenVerifier), nil
}

// cached returns the discovered verifier, or the last discovery error while
// it is still within DiscoveryRetryDelay.
func (v *JWTVerifier) cached() (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.verifier != nil {
		return v.verifier, nil
	}
	if v.lastErr != nil && v.now().Before(v.retryAfter) {
		return nil, v.lastErr
	}
	return nil, nil
}

// VerifyToken checks signature, issuer, audience and expiry.
func (v *JWTVerifier) VerifyToken(ctx context.Context, token string) (*httpx.Principal, error) {
	verifier, err := v.load(ctx)
	if err != nil {
		return nil, err
	}

	idt, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	var claims jwtx.AccessClaims
	if err := idt.Claims(&claims); err != nil {
		return nil, fmt.Errorf("authn: decode claims: %w", err)
	}
	if claims.ClientID == "" {
		return nil, errors.New("authn: not an access token")
	}

	raw := map[string]any{}
	if err := idt.Claims(&raw); err != nil {
		return nil, fmt.Errorf("authn: decode claims: %w", err)
	}

	return &httpx.Principal{
		Subject:   idt.Subject,
		ClientID:  claims.ClientID,
		Scopes:    claims.Scope,
		ExpiresAt: idt.Expiry,
		Claims:    raw,
	}, nil
}
