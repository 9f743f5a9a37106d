package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// ErrVerifierUnavailable marks verification failures that say nothing about
// the token, such as an unreachable provider. Authenticate answers them with
// 503 instead of 401.
var ErrVerifierUnavailable = errors.New("token verifier unavailable")

// TokenVerifier turns a bearer token into a Principal.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Principal, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate rejects requests without a valid bearer token with 401 and
// stores the verified Principal in the request context.
func Authenticate(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				WriteJSON(w, http.StatusUnauthorized, errorBody("invalid_token", "missing bearer token"))
				return
			}

			p, err := v.VerifyToken(ctx, token)
			if errors.Is(err, ErrVerifierUnavailable) {
				slogx.FromContext(ctx).Error("bearer token could not be verified", "err", err)
				w.Header().Set("Retry-After", "5")
				WriteJSON(w, http.StatusServiceUnavailable, errorBody("temporarily_unavailable", "token verification is unavailable"))
				return
			}
			if err != nil {
				slogx.FromContext(ctx).Warn("bearer token rejected", "err", err)
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="token verification failed"`)
				WriteJSON(w, http.StatusUnauthorized, errorBody("invalid_token", "token verification failed"))
				return
			}

			ctx = slogx.WithAttrs(ctx, "sub", p.Subject, "client_id", p.ClientID)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// RequireScopes answers 403 insufficient_scope unless the authenticated
// caller holds every scope in required. Without a Principal it answers 401,
// so it is safe to mount without Authenticate in front of it.
func RequireScopes(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				WriteJSON(w, http.StatusUnauthorized, errorBody("invalid_token", "missing bearer token"))
				return
			}

			if !p.Scopes.HasAll(required...) {
				scope := strings.Join(required, " ")
				w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error="insufficient_scope", scope=%q`, scope))
				WriteJSON(w, http.StatusForbidden, errorBody("insufficient_scope", "token lacks scope: "+scope))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func errorBody(code, desc string) map[string]string {
	return map[string]string{"error": code, "error_description": desc}
}
