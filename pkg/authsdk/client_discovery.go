package authsdk

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
)

// Discover fetches the OpenID Provider Metadata document.
func (c *Client) Discover(ctx context.Context) (*DiscoveryDocument, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, PathDiscovery, nil, nil)
	if err != nil {
		return nil, err
	}

	var doc DiscoveryDocument
	if err := decodeJSON(resp, &doc, http.StatusOK); err != nil {
		return nil, err
	}
	return &doc, nil
}

// JWKS fetches the public signing keys.
func (c *Client) JWKS(ctx context.Context) (*jwtx.JWKS, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, PathJWKS, nil, nil)
	if err != nil {
		return nil, err
	}

	var keys jwtx.JWKS
	if err := decodeJSON(resp, &keys, http.StatusOK); err != nil {
		return nil, err
	}
	return &keys, nil
}

// UserInfo calls the userinfo endpoint with accessToken.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, PathUserInfo, nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}

	var info UserInfo
	if err := decodeJSON(resp, &info, http.StatusOK); err != nil {
		return nil, err
	}
	return info, nil
}

// Liveness calls the liveness probe.
func (c *Client) Liveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, PathLiveness)
}

// Readiness calls the readiness probe. A not-ready server answers 503 and
// the returned error is non-nil.
func (c *Client) Readiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, PathReadiness)
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
