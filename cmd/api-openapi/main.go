// Command api-openapi serves the protected API with an OpenAPI 3 document
// built from the endpoint declarations.
package main

import (
	"context"
	"log"

	"github.com/aussiebroadwan/docsauth/internal/api/app"
	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
)

func main() {
	cfg, err := app.LoadConfig(app.VariantOpenAPI)
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
