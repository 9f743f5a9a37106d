package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
)

// DefaultRedirectURI is the documentation UI callback registered for the
// authorization code client.
const DefaultRedirectURI = "http://localhost:5000/swagger/oauth2-redirect.html"

// tokenOutput is what the token commands print.
type tokenOutput struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

func printToken(w io.Writer, tok *oauth2.Token) error {
	out := tokenOutput{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if v, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = v
	}
	if v, ok := tok.Extra("scope").(string); ok {
		out.Scope = v
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain tokens from the identity provider",
	}
	cmd.AddCommand(
		newClientCredentialsCmd(),
		newPasswordCmd(),
		newAuthorizeURLCmd(),
		newExchangeCmd(),
	)
	return cmd
}

func (f *clientFlags) clientCredentials() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     f.clientID,
		ClientSecret: f.clientSecret,
		TokenURL:     f.tokenURL(),
		Scopes:       f.scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
}

func (f *clientFlags) oauth2Config(redirectURI string) *oauth2.Config {
	style := oauth2.AuthStyleInHeader
	if f.clientSecret == "" {
		style = oauth2.AuthStyleInParams
	}
	return &oauth2.Config{
		ClientID:     f.clientID,
		ClientSecret: f.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       f.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.authorizeURL(),
			TokenURL:  f.tokenURL(),
			AuthStyle: style,
		},
	}
}

func newClientCredentialsCmd() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "client-credentials",
		Short: "Run the client credentials grant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := flags.clientCredentials().Token(cmd.Context())
			if err != nil {
				return fmt.Errorf("client credentials grant: %w", err)
			}
			return printToken(cmd.OutOrStdout(), tok)
		},
	}
	flags.register(cmd, catalog.DefaultTokenClientID)
	return cmd
}

func newPasswordCmd() *cobra.Command {
	var (
		flags    clientFlags
		username string
		password string
	)
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Run the resource owner password grant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			tok, err := flags.oauth2Config("").PasswordCredentialsToken(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("password grant: %w", err)
			}
			return printToken(cmd.OutOrStdout(), tok)
		},
	}
	flags.register(cmd, catalog.DefaultTokenClientID)
	cmd.Flags().StringVarP(&username, "username", "u", "", "Resource owner username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Resource owner password")
	return cmd
}

func newAuthorizeURLCmd() *cobra.Command {
	var (
		flags       clientFlags
		redirectURI string
		state       string
	)
	cmd := &cobra.Command{
		Use:   "authorize-url",
		Short: "Print a PKCE authorization URL and the verifier to redeem it with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verifier := oauth2.GenerateVerifier()
			if state == "" {
				state = oauth2.GenerateVerifier()[:16]
			}
			u := flags.oauth2Config(redirectURI).AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "url: %s\n", u)
			fmt.Fprintf(w, "state: %s\n", state)
			fmt.Fprintf(w, "verifier: %s\n", verifier)
			return nil
		},
	}
	flags.register(cmd, catalog.DefaultCodeClientID)
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", DefaultRedirectURI, "Registered redirect URI")
	cmd.Flags().StringVar(&state, "state", "", "State parameter (default: random)")
	return cmd
}

func newExchangeCmd() *cobra.Command {
	var (
		flags       clientFlags
		redirectURI string
		code        string
		verifier    string
	)
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Redeem an authorization code with its PKCE verifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if code == "" || verifier == "" {
				return errors.New("--code and --verifier are required")
			}
			tok, err := flags.oauth2Config(redirectURI).Exchange(cmd.Context(), code, oauth2.VerifierOption(verifier))
			if err != nil {
				return fmt.Errorf("authorization code exchange: %w", err)
			}
			return printToken(cmd.OutOrStdout(), tok)
		},
	}
	flags.register(cmd, catalog.DefaultCodeClientID)
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", DefaultRedirectURI, "Redirect URI used for the authorization request")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code")
	cmd.Flags().StringVar(&verifier, "verifier", "", "PKCE code verifier printed by authorize-url")
	return cmd
}
