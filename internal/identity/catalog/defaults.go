package catalog

import (
	"fmt"

	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
)

// Names of the compiled-in registrations.
const (
	DefaultAPIScope      = "api1"
	DefaultResource      = "api1"
	DefaultCodeClientID  = "bob"
	DefaultTokenClientID = "client_1"

	// DevelopmentSecret is the well-known secret the default catalog ships with.
	DevelopmentSecret = "secret"

	documentedOrigin = "http://localhost:5000"
)

// Default returns the compiled-in catalog.
func Default() *Catalog {
	devSecret := func() []Secret {
		return []Secret{{Value: cryptox.HashSecret(DevelopmentSecret)}}
	}

	return &Catalog{
		IdentityResources: []IdentityResource{
			{
				Name:        ScopeOpenID,
				DisplayName: "Your user identifier",
				UserClaims:  []string{"sub"},
			},
			{
				Name:        ScopeProfile,
				DisplayName: "User profile",
				UserClaims:  []string{"name", "preferred_username", "email", "website"},
			},
		},
		Scopes: []Scope{
			{Name: DefaultAPIScope, Description: "Full access to API #1"},
		},
		Resources: []Resource{
			{
				Name:        DefaultResource,
				DisplayName: "API #1",
				Scopes:      []string{DefaultAPIScope},
				Secrets:     devSecret(),
			},
		},
		Clients: []Client{
			{
				ID:                 DefaultCodeClientID,
				Name:               "Swagger UI for demo_api",
				AllowedGrantTypes:  []string{authsdk.GrantAuthorizationCode},
				Secrets:            devSecret(),
				RequireSecret:      false,
				RequirePKCE:        true,
				RedirectURIs:       []string{documentedOrigin + "/swagger/oauth2-redirect.html"},
				AllowedCORSOrigins: []string{documentedOrigin},
				AllowedScopes:      []string{DefaultAPIScope},
			},
			{
				ID:                 DefaultTokenClientID,
				Name:               "Swagger UI client credentials",
				AllowedGrantTypes:  []string{authsdk.GrantClientCredentials, authsdk.GrantPassword},
				Secrets:            devSecret(),
				RequireSecret:      true,
				AllowedCORSOrigins: []string{documentedOrigin},
				AllowedScopes:      []string{DefaultAPIScope, ScopeOpenID, ScopeProfile},
			},
		},
		Users: []User{
			testUser("1", "alice", "Alice Smith", "AliceSmith@email.com", "http://alice.com"),
			testUser("2", "bob", "Bob Smith", "BobSmith@email.com", "http://bob.com"),
		},
	}
}

// testUser builds a user whose password equals its username.
func testUser(sub, username, name, email, website string) User {
	hash, err := cryptox.HashPassword(username)
	if err != nil {
		panic(fmt.Sprintf("catalog: hash default password: %v", err))
	}
	return User{
		Subject:  sub,
		Username: username,
		Password: hash,
		Claims: map[string]string{
			"name":               name,
			"preferred_username": username,
			"email":              email,
			"website":            website,
		},
	}
}
