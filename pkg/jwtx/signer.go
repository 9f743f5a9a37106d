package jwtx

import (
	"fmt"

	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Signer signs JWTs with one private key identified by kid.
type Signer struct {
	kid    string
	alg    string
	method jwt.SigningMethod
	key    any
	pub    any
}

// NewSigner loads a PEM private key (PKCS1 RSA or PKCS8) for alg.
func NewSigner(alg, kid string, pemKey []byte) (*Signer, error) {
	if kid == "" {
		return nil, fmt.Errorf("jwtx: signer kid is required")
	}

	method, err := signingMethod(alg)
	if err != nil {
		return nil, err
	}

	key, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load %s key %q: %w", alg, kid, err)
	}

	pub, err := checkKeyType(alg, key)
	if err != nil {
		return nil, err
	}

	return &Signer{kid: kid, alg: alg, method: method, key: key, pub: pub}, nil
}

// GenerateSigner creates a fresh key for alg and returns the signer together
// with the PEM encoding of its private key.
func GenerateSigner(alg, kid string, rsaBits int) (*Signer, []byte, error) {
	pemKey, err := generateKeyPEM(alg, rsaBits)
	if err != nil {
		return nil, nil, err
	}

	s, err := NewSigner(alg, kid, pemKey)
	if err != nil {
		return nil, nil, err
	}
	return s, pemKey, nil
}

func (s *Signer) KID() string { return s.kid }
func (s *Signer) Alg() string { return s.alg }

// Sign serialises claims as a compact JWS carrying the signer's kid.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid

	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign with %q: %w", s.kid, err)
	}
	return signed, nil
}

// PublicJWK returns the verification key for publishing in a JWKS.
func (s *Signer) PublicJWK() JWK {
	// checkKeyType guarantees a supported public key type.
	j, _ := PublicJWK(s.kid, s.alg, s.pub)
	return j
}
