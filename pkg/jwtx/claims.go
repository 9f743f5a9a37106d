package jwtx

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/json"
	"hash"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// Authentication method references placed in the "amr" claim.
const (
	AMRPassword = "pwd"
	AMRClient   = "client"
	AMRRefresh  = "refresh"
)

// ScopeList is the "scope" claim. It is written as a JSON array and read from
// either an array or a space-delimited string, since both forms are in use.
type ScopeList []string

// ParseScopeList splits a space-delimited scope parameter.
func ParseScopeList(s string) ScopeList {
	return ScopeList(strings.Fields(s))
}

func (s *ScopeList) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = ParseScopeList(str)
		return nil
	}

	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*s = arr
	return nil
}

// Has reports whether scope is present.
func (s ScopeList) Has(scope string) bool {
	return slices.Contains(s, scope)
}

// HasAll reports whether every scope in want is present.
func (s ScopeList) HasAll(want ...string) bool {
	for _, w := range want {
		if !s.Has(w) {
			return false
		}
	}
	return true
}

// String joins the scopes with single spaces.
func (s ScopeList) String() string {
	return strings.Join(s, " ")
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims

	ClientID string           `json:"client_id"`
	Scope    ScopeList        `json:"scope,omitempty"`
	AMR      []string         `json:"amr,omitempty"`
	AuthTime *jwt.NumericDate `json:"auth_time,omitempty"`
}

// AccessParams describes an access token to mint.
type AccessParams struct {
	Issuer   string
	Subject  string
	ClientID string
	Audience []string
	Scopes   []string
	AMR      []string
	AuthTime time.Time
	TTL      time.Duration
}

// NewAccessClaims builds access token claims issued at now.
func NewAccessClaims(p AccessParams, now time.Time) AccessClaims {
	c := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.TTL)),
			ID:        NewJTI(),
		},
		ClientID: p.ClientID,
		Scope:    ScopeList(p.Scopes),
		AMR:      p.AMR,
	}
	if !p.AuthTime.IsZero() {
		c.AuthTime = jwt.NewNumericDate(p.AuthTime)
	}
	return c
}

// IDClaims is the payload of an OpenID Connect ID token. Profile carries the
// user claims released for the granted identity scopes and is flattened into
// the top-level JSON object.
type IDClaims struct {
	jwt.RegisteredClaims

	Nonce    string           `json:"nonce,omitempty"`
	AuthTime *jwt.NumericDate `json:"auth_time,omitempty"`
	AMR      []string         `json:"amr,omitempty"`
	AtHash   string           `json:"at_hash,omitempty"`

	Profile map[string]string `json:"-"`
}

func (c IDClaims) MarshalJSON() ([]byte, error) {
	type plain IDClaims
	base, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Profile) == 0 {
		return base, nil
	}

	merged := map[string]any{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for _, k := range slices.Sorted(maps.Keys(c.Profile)) {
		if _, reserved := merged[k]; !reserved {
			merged[k] = c.Profile[k]
		}
	}
	return json.Marshal(merged)
}

// NewJTI returns a unique token identifier.
func NewJTI() string {
	return idx.New().String()
}

// AtHash computes the OpenID Connect at_hash for accessToken: the left half
// of its digest under the hash paired with alg, base64url encoded.
func AtHash(alg, accessToken string) string {
	var h hash.Hash
	switch alg {
	case AlgorithmEdDSA:
		h = sha512.New()
	default:
		h = sha256.New()
	}
	h.Write([]byte(accessToken))
	sum := h.Sum(nil)
	return b64.EncodeToString(sum[:len(sum)/2])
}
