package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HashSecret digests a client or resource secret as standard base64 of its
// SHA-256.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifySecret reports whether presented hashes to digest. Comparison is
// constant time.
func VerifySecret(presented, digest string) bool {
	if digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashSecret(presented)), []byte(digest)) == 1
}
