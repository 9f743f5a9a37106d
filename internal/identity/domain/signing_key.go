package domain

import "time"

// SigningKey is a persisted JWT signing key. The private key PEM is sealed
// with AES-GCM before it reaches the store.
type SigningKey struct {
	Kid                 string
	Algorithm           string // RS256, ES256 or EdDSA
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time // nil while the key signs
}

// IsActive reports whether the key is the signing key.
func (k *SigningKey) IsActive() bool {
	return k.RetiredAt == nil
}
