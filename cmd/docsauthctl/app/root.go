// Package app implements the docsauthctl command line: catalog checks,
// token acquisition with every grant the identity provider supports, and
// authenticated calls to the protected API.
package app

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/envx"
)

// clientFlags are shared by every command that talks to the provider.
type clientFlags struct {
	authority    string
	clientID     string
	clientSecret string
	scopes       []string
}

func (f *clientFlags) register(cmd *cobra.Command, defaultClient string) {
	cmd.Flags().StringVar(&f.authority, "authority",
		envx.String("DOCSAUTH_AUTHORITY", "http://localhost:5100"), "Identity provider base URL")
	cmd.Flags().StringVar(&f.clientID, "client-id",
		envx.String("DOCSAUTH_CLIENT_ID", defaultClient), "Client id")
	cmd.Flags().StringVar(&f.clientSecret, "client-secret",
		envx.String("DOCSAUTH_CLIENT_SECRET", ""), "Client secret")
	cmd.Flags().StringSliceVar(&f.scopes, "scope", []string{catalog.DefaultAPIScope}, "Scopes to request")
}

func (f *clientFlags) tokenURL() string {
	return strings.TrimSuffix(f.authority, "/") + authsdk.PathToken
}

func (f *clientFlags) authorizeURL() string {
	return strings.TrimSuffix(f.authority, "/") + authsdk.PathAuthorize
}

// NewRootCmd builds the docsauthctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "docsauthctl",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Operate the docsauth identity provider and protected API",
		Long: `docsauthctl validates identity catalogs, obtains tokens from the identity
provider with any registered grant and calls the protected API with them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newCatalogCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newCallCmd())
	return root
}
