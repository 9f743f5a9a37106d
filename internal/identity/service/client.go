package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// ClientCredentials is what a caller presented at the token, introspection
// or revocation endpoint.
type ClientCredentials struct {
	ID     string
	Secret string
}

// ClientService authenticates clients and API resources against the catalog.
type ClientService struct {
	Catalog *catalog.Catalog
}

// AuthenticateClient resolves and authenticates a client. Clients that do
// not require a secret are accepted on their id alone, but a secret they do
// present must still be correct.
func (s *ClientService) AuthenticateClient(ctx context.Context, creds ClientCredentials) (*catalog.Client, error) {
	if creds.ID == "" {
		return nil, describe(ErrInvalidClient, "client_id is required")
	}

	client, ok := s.Catalog.Client(creds.ID)
	if !ok {
		slogx.FromContext(ctx).Info("unknown client", slog.String("client_id", creds.ID))
		return nil, ErrInvalidClient
	}

	switch {
	case creds.Secret != "":
		if !client.VerifySecret(creds.Secret) {
			slogx.FromContext(ctx).Info("client authentication failed", slog.String("client_id", creds.ID))
			return nil, ErrInvalidClient
		}
	case client.RequireSecret:
		return nil, describe(ErrInvalidClient, "client secret is required")
	}
	return client, nil
}

// AuthenticateResource authenticates an API resource by name and secret.
func (s *ClientService) AuthenticateResource(ctx context.Context, creds ClientCredentials) (*catalog.Resource, error) {
	res, ok := s.Catalog.Resource(creds.ID)
	if !ok || creds.Secret == "" || !res.VerifySecret(creds.Secret) {
		slogx.FromContext(ctx).Info("resource authentication failed", slog.String("resource", creds.ID))
		return nil, ErrInvalidClient
	}
	return res, nil
}
