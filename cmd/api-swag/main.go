// Command api-swag serves the protected API with a Swagger 2.0 document
// generated by swag. Regenerate the document with:
//
//	swag init -g cmd/api-swag/main.go -d ./,./internal/api/http -o api/protected --instanceName protected
package main

import (
	"context"
	"log"

	_ "github.com/aussiebroadwan/docsauth/api/protected"
	"github.com/aussiebroadwan/docsauth/internal/api/app"
	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
)

//	@title			Protected API
//	@version		v1
//	@description	Demo API protected by the docsauth identity provider.
//	@host			localhost:5000
//	@BasePath		/

func main() {
	cfg, err := app.LoadConfig(app.VariantSwag)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cat, err := catalog.LoadOrDefault(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	application, err := app.New(context.Background(), cfg, cat)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
