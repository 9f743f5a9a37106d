/*
Package authsdk is a small client for the docsauth identity provider.

It covers the protocol surface other processes need: discovery, JWKS,
the token endpoint grants, introspection, revocation, userinfo and the
health probes. The same package holds the OAuth2 error values the
identity provider writes, so server and client agree on the wire shape.

	client := authsdk.NewClient("http://localhost:5001")

	tok, err := client.ClientCredentials(ctx, authsdk.ClientAuth{
		ID:     "client_1",
		Secret: "secret",
	}, []string{"api1"})

A resource server validating opaque or JWT access tokens through the
introspection endpoint authenticates with its own API resource name and
secret:

	info, err := client.Introspect(ctx, authsdk.ClientAuth{ID: "api1", Secret: "secret"}, tok.AccessToken)
	if err == nil && info.Active {
		...
	}

Errors returned by the server are decoded into *OAuth2Error so callers can
switch on Code.
*/
package authsdk
