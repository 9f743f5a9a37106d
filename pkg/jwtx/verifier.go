package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrAlgMismatch  = errors.New("jwtx: algorithm mismatch")
	ErrInvalidToken = errors.New("jwtx: invalid token")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
)

// DefaultLeeway absorbs clock skew on exp, nbf and iat.
const DefaultLeeway = 30 * time.Second

// Verifier checks signatures against a KeySet and validates the issuer and
// time-based claims.
type Verifier struct {
	keys   *KeySet
	issuer string
	leeway time.Duration
}

// NewVerifier returns a Verifier bound to keys and issuer.
func NewVerifier(keys *KeySet, issuer string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, leeway: DefaultLeeway}
}

// Parse verifies token and decodes its payload into claims.
func (v *Verifier) Parse(token string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods(SupportedAlgorithms()),
		jwt.WithIssuer(v.issuer),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrInvalidToken)
		}
		pub, alg, err := v.keys.Lookup(kid)
		if err != nil {
			return nil, fmt.Errorf("%w %q", err, kid)
		}
		if alg != "" && alg != t.Method.Alg() {
			return nil, ErrAlgMismatch
		}
		return pub, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// VerifyAccessToken parses an access token minted by this issuer.
func (v *Verifier) VerifyAccessToken(token string) (*AccessClaims, error) {
	var c AccessClaims
	if err := v.Parse(token, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
