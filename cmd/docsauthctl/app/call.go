package app

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
)

func newCallCmd() *cobra.Command {
	var (
		flags  clientFlags
		token  string
		method string
	)
	cmd := &cobra.Command{
		Use:   "call <url>",
		Short: "Call the API with a bearer token",
		Long: `call sends a request with a bearer token. Without --token it first obtains
one with the client credentials grant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var client *http.Client
			if token != "" {
				client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
			} else {
				client = flags.clientCredentials().Client(ctx)
			}

			req, err := http.NewRequestWithContext(ctx, method, args[0], nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, resp.Status)
			if _, err := io.Copy(w, resp.Body); err != nil {
				return err
			}
			fmt.Fprintln(w)
			if resp.StatusCode >= 400 {
				return fmt.Errorf("request failed: %s", resp.Status)
			}
			return nil
		},
	}
	flags.register(cmd, catalog.DefaultTokenClientID)
	cmd.Flags().StringVar(&token, "token", "", "Access token to send")
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	return cmd
}
