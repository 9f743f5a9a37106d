package docs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/docsauth/internal/api/annex"
	"github.com/aussiebroadwan/docsauth/internal/api/endpoint"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
)

// BuildOpenAPI3 describes groups as an OpenAPI 3 document with an
// authorization code flow, applies the annex and validates the result.
func BuildOpenAPI3(ctx context.Context, groups []endpoint.Group, m annex.Map, opts Options) (*openapi3.T, error) {
	if len(opts.Scopes) == 0 {
		return nil, errors.New("docs: the oauth2 flow needs at least one scope")
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       opts.Title,
			Version:     opts.Version,
			Description: opts.Description,
		},
		Servers: openapi3.Servers{{URL: opts.PublicURL}},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				SchemeOAuth2: &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{
					Type: "oauth2",
					Flows: &openapi3.OAuthFlows{
						AuthorizationCode: &openapi3.OAuthFlow{
							AuthorizationURL: opts.authorizeURL(),
							TokenURL:         opts.tokenURL(),
							Scopes:           scopeMap(opts.Scopes),
						},
					},
				}},
			},
		},
	}

	for _, g := range groups {
		if g.Tag != "" {
			doc.Tags = append(doc.Tags, &openapi3.Tag{Name: g.Tag})
		}
		for _, e := range g.Endpoints {
			op, err := operation(g, e)
			if err != nil {
				return nil, fmt.Errorf("docs: %s %s: %w", e.Method, g.Pattern(e), err)
			}

			path := annex.NormalizePath(g.Pattern(e))
			item := doc.Paths.Value(path)
			if item == nil {
				item = &openapi3.PathItem{}
				doc.Paths.Set(path, item)
			}
			item.SetOperation(e.Method, op)
		}
	}

	annex.ApplyOpenAPI3(doc, m)

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("docs: invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

func operation(g endpoint.Group, e endpoint.Endpoint) (*openapi3.Operation, error) {
	op := &openapi3.Operation{
		OperationID: e.OperationID,
		Summary:     e.Summary,
		Description: e.Description,
	}
	if g.Tag != "" {
		op.Tags = []string{g.Tag}
	}

	for _, p := range e.Params {
		typ := p.Type
		if typ == "" {
			typ = openapi3.TypeString
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:        p.Name,
			In:          p.In,
			Description: p.Description,
			Required:    p.Required || p.In == openapi3.ParameterInPath,
			Schema:      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{typ}}},
		}})
	}

	if e.Request != nil {
		schema, err := openapi3gen.NewSchemaRefForValue(e.Request, nil)
		if err != nil {
			return nil, err
		}
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(schema)}
	}

	status := e.SuccessStatus()
	resp := openapi3.NewResponse().WithDescription(http.StatusText(status))
	if e.Response != nil {
		schema, err := openapi3gen.NewSchemaRefForValue(e.Response, nil)
		if err != nil {
			return nil, err
		}
		resp = resp.WithJSONSchemaRef(schema)
	}
	op.Responses = openapi3.NewResponses(openapi3.WithStatus(status, &openapi3.ResponseRef{Value: resp}))

	for _, p := range e.Params {
		if p.In == openapi3.ParameterInPath {
			bad := openapi3.NewResponse().WithDescription(http.StatusText(http.StatusBadRequest))
			op.Responses.Set(strconv.Itoa(http.StatusBadRequest), &openapi3.ResponseRef{Value: bad})
			notFound := openapi3.NewResponse().WithDescription(http.StatusText(http.StatusNotFound))
			op.Responses.Set(strconv.Itoa(http.StatusNotFound), &openapi3.ResponseRef{Value: notFound})
			break
		}
	}
	return op, nil
}

func scopeMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
