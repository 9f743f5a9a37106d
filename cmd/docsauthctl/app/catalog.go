package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect identity catalogs",
	}

	var file string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog for consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.LoadOrDefault(file)
			if err != nil {
				return err
			}
			if err := cat.Validate(); err != nil {
				return err
			}
			name := file
			if name == "" {
				name = "built-in catalog"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d clients, %d resources, %d users)\n",
				name, len(cat.Clients), len(cat.Resources), len(cat.Users))
			if dev := cat.DevelopmentSecrets(); len(dev) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: development secrets in use: %v\n", dev)
			}
			return nil
		},
	}
	validate.Flags().StringVarP(&file, "file", "f", "", "Catalog YAML file (default: built-in catalog)")

	var showFile string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print a catalog as YAML with secrets hashed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.LoadOrDefault(showFile)
			if err != nil {
				return err
			}
			out, err := catalog.Marshal(cat)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	show.Flags().StringVarP(&showFile, "file", "f", "", "Catalog YAML file (default: built-in catalog)")

	cmd.AddCommand(validate, show)
	return cmd
}
