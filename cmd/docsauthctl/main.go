package main

import (
	"fmt"
	"os"

	"github.com/aussiebroadwan/docsauth/cmd/docsauthctl/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
