package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
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
)

// DefaultCodeTTL is the lifetime of an authorization code.
const DefaultCodeTTL = 5 * time.Minute

// AuthorizeService runs the authorization code issuance half of the code
// flow.
type AuthorizeService struct {
	Catalog *catalog.Catalog
	Store   store.Store
	CodeTTL time.Duration
	Now     func() time.Time
}

// AuthorizeRequest carries the raw authorization request parameters.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               []string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// ValidatedAuthorize is an authorization request that passed validation.
type ValidatedAuthorize struct {
	Request             AuthorizeRequest
	Client              *catalog.Client
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeCodeResponse is used to build the redirect back to the client.
type AuthorizeCodeResponse struct {
	Code        string
	RedirectURI string
	State       string
}

func (s *AuthorizeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Validate checks an authorization request (RFC 6749 section 4.1.1,
// RFC 7636 section 4.3). ErrInvalidClient and ErrInvalidRedirect must be
// shown to the user; every other error may be redirected to the client.
func (s *AuthorizeService) Validate(_ context.Context, req AuthorizeRequest) (*ValidatedAuthorize, error) {
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.RedirectURI = strings.TrimSpace(req.RedirectURI)

	client, ok := s.Catalog.Client(req.ClientID)
	if !ok {
		return nil, describe(ErrInvalidClient, "unknown client")
	}
	if req.RedirectURI == "" || !client.HasRedirectURI(req.RedirectURI) {
		return nil, describe(ErrInvalidRedirect, "redirect_uri is not registered for this client")
	}

	if req.ResponseType != "code" {
		return nil, describe(ErrUnsupportedResponseType, "only response_type=code is supported")
	}
	if !client.UsesAuthorizationCode() {
		return nil, describe(ErrUnauthorizedClient, "client may not use the authorization code flow")
	}

	scopes, err := resolveScopes(s.Catalog, client, req.Scope, true)
	if err != nil {
		return nil, err
	}

	challenge, method, err := validatePKCE(req.CodeChallenge, req.CodeChallengeMethod, client)
	if err != nil {
		return nil, err
	}

	return &ValidatedAuthorize{
		Request:             req,
		Client:              client,
		Scopes:              scopes,
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
	}, nil
}

// Login authenticates a catalog user for a validated request and issues an
// authorization code bound to the client, redirect URI, scopes, PKCE
// challenge and nonce.
func (s *AuthorizeService) Login(ctx context.Context, v *ValidatedAuthorize, username, password string) (*AuthorizeCodeResponse, error) {
	log := slogx.FromContext(ctx)

	user, ok := s.Catalog.User(strings.TrimSpace(username))
	if !ok || !user.VerifyPassword(password) {
		log.Info("login failed", slog.String("username", username), slog.String("client_id", v.Client.ID))
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	record := domain.AuthorizationCode{
		ID:                  idx.New().String(),
		CodeHash:            cryptox.FingerprintToken(code),
		ClientID:            v.Client.ID,
		Subject:             user.Subject,
		RedirectURI:         v.Request.RedirectURI,
		Scopes:              v.Scopes,
		Nonce:               v.Request.Nonce,
		CodeChallenge:       v.CodeChallenge,
		CodeChallengeMethod: v.CodeChallengeMethod,
		AMR:                 []string{jwtx.AMRPassword},
		AuthTime:            now,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
	}
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return nil, fmt.Errorf("store authorization code: %w", err)
	}

	log.Info("authorization code issued",
		slog.String("client_id", v.Client.ID),
		slog.String("sub", user.Subject),
		slog.String("scope", strings.Join(v.Scopes, " ")))

	return &AuthorizeCodeResponse{
		Code:        code,
		RedirectURI: v.Request.RedirectURI,
		State:       v.Request.State,
	}, nil
}

func validatePKCE(challenge, method string, client *catalog.Client) (string, string, error) {
	challenge = strings.TrimSpace(challenge)
	method = strings.TrimSpace(method)

	if challenge == "" {
		if client.RequirePKCE {
			return "", "", describe(ErrInvalidRequest, "code_challenge is required")
		}
		return "", "", nil
	}

	// RFC 7636 section 4.2: 43 to 128 characters from the unreserved set.
	if len(challenge) < 43 || len(challenge) > 128 {
		return "", "", describe(ErrInvalidRequest, "code_challenge must be 43 to 128 characters")
	}

	switch method {
	case "", authsdk.PKCEMethodPlain:
		if !client.AllowPlainTextPKCE {
			return "", "", describe(ErrInvalidRequest, "transform algorithm not supported")
		}
		return challenge, authsdk.PKCEMethodPlain, nil
	case authsdk.PKCEMethodS256:
		return challenge, authsdk.PKCEMethodS256, nil
	default:
		return "", "", describe(ErrInvalidRequest, "transform algorithm not supported")
	}
}

// verifyCodeVerifier checks verifier against the stored challenge. A code
// issued without a challenge must be redeemed without a verifier.
func verifyCodeVerifier(challenge, method, verifier string) bool {
	if challenge == "" {
		return verifier == ""
	}
	if len(verifier) < 43 || len(verifier) > 128 {
		return false
	}

	derived := verifier
	if method == authsdk.PKCEMethodS256 {
		derived = cryptox.S256Challenge(verifier)
	}
	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}
