package docs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/aussiebroadwan/docsauth/internal/api/annex"
	"github.com/go-openapi/spec"
	"github.com/swaggo/swag"
)

// BuildSwagger2 reads the swag document registered under instance, pins it
// to the public URL, declares the client credentials and password flows and
// applies the annex.
func BuildSwagger2(instance string, m annex.Map, opts Options) (*spec.Swagger, error) {
	raw, err := swag.ReadDoc(instance)
	if err != nil {
		return nil, fmt.Errorf("docs: read swag document %q: %w", instance, err)
	}

	var doc spec.Swagger
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("docs: parse swag document %q: %w", instance, err)
	}

	if opts.PublicURL != "" {
		u, err := url.Parse(opts.PublicURL)
		if err != nil {
			return nil, fmt.Errorf("docs: public url: %w", err)
		}
		doc.Host = u.Host
		doc.Schemes = []string{u.Scheme}
	}

	if doc.Info == nil {
		doc.Info = &spec.Info{}
	}
	if opts.Title != "" {
		doc.Info.Title = opts.Title
	}
	if opts.Version != "" {
		doc.Info.Version = opts.Version
	}

	application := spec.OAuth2Application(opts.tokenURL())
	password := spec.OAuth2Password(opts.tokenURL())
	for _, name := range sortedKeys(opts.Scopes) {
		application.AddScope(name, opts.Scopes[name])
		password.AddScope(name, opts.Scopes[name])
	}
	doc.SecurityDefinitions = spec.SecurityDefinitions{
		SchemeOAuth2:         application,
		SchemeOAuth2Password: password,
	}

	annex.ApplySwagger2(&doc, m)
	return &doc, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
