package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/internal/identity/domain"
	"github.com/aussiebroadwan/docsauth/internal/identity/store"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
	"github.com/aussiebroadwan/docsauth/pkg/idx"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
)

// IDTokenTTL is the lifetime of ID tokens.
const IDTokenTTL = 5 * time.Minute

// TokenService mints tokens for every supported grant.
type TokenService struct {
	Catalog    *catalog.Catalog
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Issuer     string
	Now        func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// grant is everything needed to mint a token response.
type grant struct {
	client   *catalog.Client
	user     *catalog.User // nil for client_credentials
	scopes   []string
	amr      []string
	authTime time.Time
	nonce    string
	familyID string // set when rotating a refresh token
}

// ExchangeAuthorizationCode implements the authorization_code grant with
// PKCE verification (RFC 6749 section 4.1.3, RFC 7636 section 4.6).
func (s *TokenService) ExchangeAuthorizationCode(
	ctx context.Context,
	client *catalog.Client,
	code, redirectURI, codeVerifier string,
) (*authsdk.TokenResponse, error) {
	if !client.HasGrant(authsdk.GrantAuthorizationCode) {
		return nil, ErrUnauthorizedClient
	}

	code = strings.TrimSpace(code)
	redirectURI = strings.TrimSpace(redirectURI)
	codeVerifier = strings.TrimSpace(codeVerifier)
	if code == "" || redirectURI == "" {
		return nil, describe(ErrInvalidRequest, "code and redirect_uri are required")
	}

	now := s.now()
	var authCode domain.AuthorizationCode

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		authCode, err = tx.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(code))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return describe(ErrInvalidGrant, "authorization code is invalid")
			}
			return err
		}

		if authCode.UsedAt != nil {
			return describe(ErrInvalidGrant, "authorization code was already used")
		}
		if authCode.IsExpired(now) {
			return describe(ErrInvalidGrant, "authorization code expired")
		}
		if authCode.ClientID != client.ID {
			return describe(ErrInvalidGrant, "authorization code was issued to another client")
		}
		if authCode.RedirectURI != redirectURI {
			return describe(ErrInvalidGrant, "redirect_uri does not match")
		}

		// The code is consumed even if PKCE fails so it cannot be retried.
		if err := tx.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, authCode.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return describe(ErrInvalidGrant, "authorization code was already used")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !verifyCodeVerifier(authCode.CodeChallenge, authCode.CodeChallengeMethod, codeVerifier) {
		return nil, describe(ErrInvalidGrant, "code_verifier does not match")
	}

	user, ok := s.Catalog.UserBySubject(authCode.Subject)
	if !ok {
		return nil, describe(ErrInvalidGrant, "user no longer exists")
	}

	return s.issue(ctx, grant{
		client:   client,
		user:     user,
		scopes:   authCode.Scopes,
		amr:      authCode.AMR,
		authTime: authCode.AuthTime,
		nonce:    authCode.Nonce,
	})
}

// ClientCredentials implements the client_credentials grant. The subject is
// the client itself.
func (s *TokenService) ClientCredentials(ctx context.Context, client *catalog.Client, scopes []string) (*authsdk.TokenResponse, error) {
	if !client.HasGrant(authsdk.GrantClientCredentials) {
		return nil, ErrUnauthorizedClient
	}

	granted, err := resolveScopes(s.Catalog, client, scopes, false)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, grant{
		client: client,
		scopes: granted,
		amr:    []string{jwtx.AMRClient},
	})
}

// Password implements the resource owner password credentials grant.
func (s *TokenService) Password(
	ctx context.Context,
	client *catalog.Client,
	username, password string,
	scopes []string,
) (*authsdk.TokenResponse, error) {
	if !client.HasGrant(authsdk.GrantPassword) {
		return nil, ErrUnauthorizedClient
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, describe(ErrInvalidRequest, "username and password are required")
	}

	user, ok := s.Catalog.User(strings.TrimSpace(username))
	if !ok || !user.VerifyPassword(password) {
		slogx.FromContext(ctx).Info("password grant failed",
			slog.String("client_id", client.ID), slog.String("username", username))
		return nil, describe(ErrInvalidGrant, "invalid username or password")
	}

	granted, err := resolveScopes(s.Catalog, client, scopes, true)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, grant{
		client:   client,
		user:     user,
		scopes:   granted,
		amr:      []string{jwtx.AMRPassword},
		authTime: s.now(),
	})
}

// Refresh implements the refresh_token grant with rotation. Presenting a
// token that was already rotated or revoked revokes its whole family.
func (s *TokenService) Refresh(
	ctx context.Context,
	client *catalog.Client,
	refreshToken string,
	scopes []string,
) (*authsdk.TokenResponse, error) {
	if !client.AllowOfflineAccess {
		return nil, ErrUnauthorizedClient
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, describe(ErrInvalidRequest, "refresh_token is required")
	}

	if s.KeyManager.Signer() == nil {
		return nil, ErrNotReady
	}

	now := s.now()
	hash := cryptox.FingerprintToken(refreshToken)
	var (
		current domain.RefreshToken
		g       grant
	)
	reused := false

	// Every check runs before the presented token is revoked, so a refused
	// refresh leaves the grant usable.
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		current, err = tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return describe(ErrInvalidGrant, "refresh token is invalid")
			}
			return err
		}
		if current.ClientID != client.ID {
			return describe(ErrInvalidGrant, "refresh token was issued to another client")
		}
		if current.Revoked {
			reused = true
			return tx.RefreshTokens().RevokeRefreshTokenFamily(ctx, current.FamilyID, now)
		}
		if !current.IsUsable(now) {
			return describe(ErrInvalidGrant, "refresh token expired")
		}

		granted, err := narrowScopes(current.Scopes, scopes)
		if err != nil {
			return err
		}
		g = grant{
			client:   client,
			scopes:   granted,
			amr:      dedupe(append(slices.Clone(current.AMR), jwtx.AMRRefresh)),
			authTime: current.AuthTime,
			familyID: current.FamilyID,
		}
		if current.Subject != client.ID {
			user, ok := s.Catalog.UserBySubject(current.Subject)
			if !ok {
				return describe(ErrInvalidGrant, "user no longer exists")
			}
			g.user = user
		}
		return tx.RefreshTokens().RevokeRefreshToken(ctx, hash, now)
	})
	if err != nil {
		return nil, err
	}
	if reused {
		slogx.FromContext(ctx).Warn("refresh token reuse detected, family revoked",
			slog.String("client_id", client.ID), slog.String("family_id", current.FamilyID))
		return nil, describe(ErrInvalidGrant, "refresh token is invalid")
	}

	return s.issue(ctx, g)
}

// Revoke revokes a refresh token owned by client (RFC 7009). Unknown tokens
// and access tokens are ignored.
func (s *TokenService) Revoke(ctx context.Context, client *catalog.Client, token string) error {
	hash := cryptox.FingerprintToken(strings.TrimSpace(token))
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rt.ClientID != client.ID {
		return nil
	}
	if err := s.Store.RefreshTokens().RevokeRefreshTokenFamily(ctx, rt.FamilyID, s.now()); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("refresh token revoked",
		slog.String("client_id", client.ID), slog.String("family_id", rt.FamilyID))
	return nil
}

func (s *TokenService) issue(ctx context.Context, g grant) (*authsdk.TokenResponse, error) {
	signer := s.KeyManager.Signer()
	if signer == nil {
		return nil, ErrNotReady
	}

	now := s.now()
	subject := g.client.ID
	if g.user != nil {
		subject = g.user.Subject
	}

	audience := s.Catalog.ResourcesForScopes(g.scopes)
	if len(audience) == 0 {
		audience = []string{strings.TrimSuffix(s.Issuer, "/") + "/resources"}
	}

	ttl := g.client.AccessTTL()
	claims := jwtx.NewAccessClaims(jwtx.AccessParams{
		Issuer:   s.Issuer,
		Subject:  subject,
		ClientID: g.client.ID,
		Audience: audience,
		Scopes:   g.scopes,
		AMR:      g.amr,
		AuthTime: g.authTime,
		TTL:      ttl,
	}, now)

	accessToken, err := signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	resp := &authsdk.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		Scope:       strings.Join(g.scopes, " "),
	}

	if g.user != nil && slices.Contains(g.scopes, catalog.ScopeOpenID) {
		idToken, err := s.signIDToken(signer, g, accessToken, now)
		if err != nil {
			return nil, err
		}
		resp.IDToken = idToken
	}

	if g.user != nil && g.client.AllowOfflineAccess && slices.Contains(g.scopes, catalog.ScopeOfflineAccess) {
		rt, err := s.storeRefreshToken(ctx, g, subject, now)
		if err != nil {
			return nil, err
		}
		resp.RefreshToken = rt
	}

	slogx.FromContext(ctx).Info("token issued",
		slog.String("client_id", g.client.ID),
		slog.String("sub", subject),
		slog.String("scope", resp.Scope),
		slog.String("kid", signer.KID()))

	return resp, nil
}

func (s *TokenService) signIDToken(signer *jwtx.Signer, g grant, accessToken string, now time.Time) (string, error) {
	claims := jwtx.IDClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   g.user.Subject,
			Audience:  jwt.ClaimStrings{g.client.ID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(IDTokenTTL)),
			ID:        jwtx.NewJTI(),
		},
		Nonce:   g.nonce,
		AMR:     g.amr,
		AtHash:  jwtx.AtHash(signer.Alg(), accessToken),
		Profile: s.profileClaims(g.user, g.scopes),
	}
	if !g.authTime.IsZero() {
		claims.AuthTime = jwt.NewNumericDate(g.authTime)
	}
	return signer.Sign(claims)
}

// profileClaims returns the user claims released by the granted identity
// scopes. sub is carried by the registered claims.
func (s *TokenService) profileClaims(user *catalog.User, scopes []string) map[string]string {
	out := map[string]string{}
	for _, name := range s.Catalog.UserClaims(scopes) {
		if v, ok := user.Claims[name]; ok && name != "sub" {
			out[name] = v
		}
	}
	return out
}

func (s *TokenService) storeRefreshToken(ctx context.Context, g grant, subject string, now time.Time) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	family := g.familyID
	if family == "" {
		family = idx.New().String()
	}

	rec := domain.RefreshToken{
		ID:        idx.New().String(),
		FamilyID:  family,
		ClientID:  g.client.ID,
		Subject:   subject,
		TokenHash: cryptox.FingerprintToken(token),
		Scopes:    g.scopes,
		AMR:       g.amr,
		AuthTime:  g.authTime,
		ExpiresAt: now.Add(g.client.RefreshTTL()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return token, nil
}
