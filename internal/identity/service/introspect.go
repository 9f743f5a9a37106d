package service

import (
	"context"
	"log/slog"
	"slices"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// VerifyAccessToken validates a JWT access token minted by this issuer.
// ID tokens are rejected because they carry no client_id.
func (s *TokenService) VerifyAccessToken(token string) (*jwtx.AccessClaims, error) {
	claims, err := jwtx.NewVerifier(s.KeyManager.KeySet(), s.Issuer).VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	if claims.ClientID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Introspect reports whether token is an active access token for resource
// (RFC 7662). Tokens issued for other audiences are reported inactive.
func (s *TokenService) Introspect(ctx context.Context, resource *catalog.Resource, token string) *authsdk.IntrospectionResponse {
	claims, err := s.VerifyAccessToken(token)
	if err != nil {
		slogx.FromContext(ctx).Debug("introspected token inactive",
			slog.String("resource", resource.Name), slog.String("reason", err.Error()))
		return &authsdk.IntrospectionResponse{Active: false}
	}
	if !slices.Contains(claims.Audience, resource.Name) {
		slogx.FromContext(ctx).Debug("introspected token for another audience",
			slog.String("resource", resource.Name))
		return &authsdk.IntrospectionResponse{Active: false}
	}

	resp := &authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     claims.Scope.String(),
		ClientID:  claims.ClientID,
		Subject:   claims.Subject,
		Audience:  jwtx.ScopeList(claims.Audience),
		Issuer:    claims.Issuer,
		TokenType: "Bearer",
		JTI:       claims.ID,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.NotBefore != nil {
		resp.NotBefore = claims.NotBefore.Unix()
	}
	return resp
}

// UserInfo returns the identity claims released by the scopes of an access
// token that carries openid.
func (s *TokenService) UserInfo(ctx context.Context, token string) (authsdk.UserInfo, error) {
	claims, err := s.VerifyAccessToken(token)
	if err != nil {
		return nil, describe(ErrInvalidToken, err.Error())
	}
	if !claims.Scope.Has(catalog.ScopeOpenID) {
		return nil, describe(ErrInvalidToken, "token lacks the openid scope")
	}

	user, ok := s.Catalog.UserBySubject(claims.Subject)
	if !ok {
		slogx.FromContext(ctx).Info("userinfo for unknown subject", slog.String("sub", claims.Subject))
		return nil, describe(ErrInvalidToken, "subject not found")
	}

	info := authsdk.UserInfo{"sub": user.Subject}
	for k, v := range s.profileClaims(user, claims.Scope) {
		info[k] = v
	}
	return info, nil
}
