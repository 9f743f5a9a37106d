package domain

import "time"

// RefreshToken is a stored refresh token record. Tokens rotated from the
// same original grant share a FamilyID.
type RefreshToken struct {
	ID        string
	FamilyID  string
	ClientID  string
	Subject   string
	TokenHash string // base64url SHA-256 fingerprint
	Scopes    []string
	AMR       []string
	AuthTime  time.Time
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsUsable reports whether the token may be redeemed at now.
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
