package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Supported JWS algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// DefaultRSABits is used when RS256 keys are generated without an explicit size.
const DefaultRSABits = 2048

// ErrUnsupportedAlgorithm is returned for algorithms outside SupportedAlgorithms.
var ErrUnsupportedAlgorithm = errors.New("jwtx: unsupported algorithm")

// SupportedAlgorithms lists every algorithm the package can sign and verify.
func SupportedAlgorithms() []string {
	return []string{AlgorithmRS256, AlgorithmES256, AlgorithmEdDSA}
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case AlgorithmRS256:
		return jwt.SigningMethodRS256, nil
	case AlgorithmES256:
		return jwt.SigningMethodES256, nil
	case AlgorithmEdDSA:
		return jwt.SigningMethodEdDSA, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

func generateKeyPEM(alg string, rsaBits int) ([]byte, error) {
	switch alg {
	case AlgorithmRS256:
		if rsaBits == 0 {
			rsaBits = DefaultRSABits
		}
		return cryptox.GenerateRSAKey(rsaBits)
	case AlgorithmES256:
		return cryptox.GenerateP256Key()
	case AlgorithmEdDSA:
		return cryptox.GenerateEd25519Key()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

// checkKeyType makes sure a parsed private key can be used with alg and
// returns its public half.
func checkKeyType(alg string, key any) (any, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		if alg == AlgorithmRS256 {
			return &k.PublicKey, nil
		}
	case *ecdsa.PrivateKey:
		if alg == AlgorithmES256 && k.Curve.Params().Name == "P-256" {
			return &k.PublicKey, nil
		}
	case ed25519.PrivateKey:
		if alg == AlgorithmEdDSA {
			return k.Public(), nil
		}
	}
	return nil, fmt.Errorf("jwtx: key type %T cannot sign %s", key, alg)
}
