package authsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ClientCredentials performs the client_credentials grant.
func (c *Client) ClientCredentials(ctx context.Context, auth ClientAuth, scopes []string) (*TokenResponse, error) {
	form := url.Values{"grant_type": {GrantClientCredentials}}
	setScopes(form, scopes)
	return c.requestToken(ctx, auth, form)
}

// Password performs the resource owner password credentials grant.
func (c *Client) Password(ctx context.Context, auth ClientAuth, username, password string, scopes []string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type": {GrantPassword},
		"username":   {username},
		"password":   {password},
	}
	setScopes(form, scopes)
	return c.requestToken(ctx, auth, form)
}

// ExchangeCode redeems an authorization code. verifier is the PKCE code
// verifier and may be empty only for clients that do not require PKCE.
func (c *Client) ExchangeCode(ctx context.Context, auth ClientAuth, code, redirectURI, verifier string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {GrantAuthorizationCode},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if verifier != "" {
		form.Set("code_verifier", verifier)
	}
	return c.requestToken(ctx, auth, form)
}

// Refresh redeems a refresh token. The server rotates it, so callers must
// keep the RefreshToken of the response.
func (c *Client) Refresh(ctx context.Context, auth ClientAuth, refreshToken string, scopes []string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {GrantRefreshToken},
		"refresh_token": {refreshToken},
	}
	setScopes(form, scopes)
	return c.requestToken(ctx, auth, form)
}

func (c *Client) requestToken(ctx context.Context, auth ClientAuth, form url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, PathToken, auth, form)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

// Introspect asks the server whether token is active. auth is the API
// resource name and secret, not a client.
func (c *Client) Introspect(ctx context.Context, auth ClientAuth, token string) (*IntrospectionResponse, error) {
	resp, err := c.postForm(ctx, PathIntrospect, auth, url.Values{"token": {token}})
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke revokes a refresh token (RFC 7009). Unknown tokens are not an
// error.
func (c *Client) Revoke(ctx context.Context, auth ClientAuth, token, tokenTypeHint string) error {
	form := url.Values{"token": {token}}
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}

	resp, err := c.postForm(ctx, PathRevocation, auth, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return parseErrorResponse(resp, body)
}

func setScopes(form url.Values, scopes []string) {
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
}
