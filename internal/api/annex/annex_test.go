package annex

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/docsauth/internal/api/endpoint"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/spec"
	"github.com/stretchr/testify/require"
)

func noop(http.ResponseWriter, *http.Request) {}

func testRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/livez", noop)
	endpoint.Mount(r, []endpoint.Group{
		{Prefix: "/api/values", Authorize: endpoint.Authorize(), Endpoints: []endpoint.Endpoint{
			{Method: http.MethodGet, Handler: noop},
			{Method: http.MethodGet, Path: "/{id:[0-9]+}", Handler: noop},
			{Method: http.MethodDelete, Path: "/{id:[0-9]+}", Authorize: endpoint.Authorize("api1.write"), Handler: noop},
		}},
		{Prefix: "/api/public", Endpoints: []endpoint.Endpoint{
			{Method: http.MethodGet, Path: "/ping", Handler: noop},
		}},
	}, []string{"api1"}, nil)
	return r
}

func TestBuild(t *testing.T) {
	m, err := Build(testRouter(), Config{Schemes: []string{"oauth2"}})
	require.NoError(t, err)

	require.Equal(t, Map{
		"GET /api/values":         {Schemes: []string{"oauth2"}, Scopes: []string{"api1"}},
		"GET /api/values/{id}":    {Schemes: []string{"oauth2"}, Scopes: []string{"api1"}},
		"DELETE /api/values/{id}": {Schemes: []string{"oauth2"}, Scopes: []string{"api1.write"}},
	}, m)
}

func TestNormalizePath(t *testing.T) {
	require.Equal(t, "/a/{id}/b/{name}", NormalizePath("/a/{id:[0-9]+}/b/{name}"))
	require.Equal(t, "/a", NormalizePath("/a/"))
	require.Equal(t, "/", NormalizePath("/"))
}

func openapiDoc() *openapi3.T {
	ok := &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("OK")}
	op := func(id string) *openapi3.Operation {
		return &openapi3.Operation{
			OperationID: id,
			Responses:   openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, ok)),
		}
	}

	doc := &openapi3.T{OpenAPI: "3.0.3", Paths: openapi3.NewPaths()}
	doc.Paths.Set("/api/values", &openapi3.PathItem{Get: op("listValues")})
	doc.Paths.Set("/api/values/{id}", &openapi3.PathItem{Get: op("getValue"), Delete: op("deleteValue")})
	doc.Paths.Set("/api/public/ping", &openapi3.PathItem{Get: op("ping")})
	doc.Paths.Set("/api/undocumented", &openapi3.PathItem{})
	return doc
}

func TestApplyOpenAPI3(t *testing.T) {
	m, err := Build(testRouter(), Config{Schemes: []string{"oauth2"}})
	require.NoError(t, err)

	doc := openapiDoc()
	ApplyOpenAPI3(doc, m)

	for _, tc := range []struct {
		path, method string
		scopes       []string
	}{
		{"/api/values", http.MethodGet, []string{"api1"}},
		{"/api/values/{id}", http.MethodGet, []string{"api1"}},
		{"/api/values/{id}", http.MethodDelete, []string{"api1.write"}},
	} {
		op := doc.Paths.Value(tc.path).GetOperation(tc.method)
		require.NotNil(t, op.Responses.Value("401"), tc.path)
		require.Equal(t, UnauthorizedDescription, *op.Responses.Value("401").Value.Description)
		require.Equal(t, ForbiddenDescription, *op.Responses.Value("403").Value.Description)
		require.NotNil(t, op.Responses.Value("200"))
		require.NotNil(t, op.Security)
		require.Equal(t, openapi3.SecurityRequirements{{"oauth2": tc.scopes}}, *op.Security)
	}

	ping := doc.Paths.Value("/api/public/ping").Get
	require.Nil(t, ping.Responses.Value("401"))
	require.Nil(t, ping.Responses.Value("403"))
	require.Nil(t, ping.Security)
}

func TestApplyOpenAPI3ToleratesMissingPieces(t *testing.T) {
	m := Map{"GET /x": {Schemes: []string{"oauth2"}}}

	require.NotPanics(t, func() { ApplyOpenAPI3(nil, m) })
	require.NotPanics(t, func() { ApplyOpenAPI3(&openapi3.T{}, m) })

	doc := &openapi3.T{Paths: openapi3.NewPaths()}
	doc.Paths.Set("/x", &openapi3.PathItem{Get: &openapi3.Operation{}})
	ApplyOpenAPI3(doc, m)

	op := doc.Paths.Value("/x").Get
	require.NotNil(t, op.Responses.Value("401"))
	require.Equal(t, openapi3.SecurityRequirements{{"oauth2": []string{}}}, *op.Security)
}

func TestApplyOpenAPI3TrailingSlash(t *testing.T) {
	r := chi.NewRouter()
	endpoint.Mount(r, []endpoint.Group{
		{Prefix: "/api/items", Authorize: endpoint.Authorize(), Endpoints: []endpoint.Endpoint{
			{Method: http.MethodGet, Path: "/", Handler: noop},
		}},
	}, []string{"api1"}, nil)

	m, err := Build(r, Config{Schemes: []string{"oauth2"}})
	require.NoError(t, err)

	_, ok := m.Lookup(http.MethodGet, "/api/items/")
	require.True(t, ok)

	doc := &openapi3.T{Paths: openapi3.NewPaths()}
	doc.Paths.Set("/api/items/", &openapi3.PathItem{Get: &openapi3.Operation{}})
	ApplyOpenAPI3(doc, m)
	require.Equal(t, openapi3.SecurityRequirements{{"oauth2": []string{"api1"}}}, *doc.Paths.Value("/api/items/").Get.Security)
}

func swaggerDoc(basePath string) *spec.Swagger {
	op := func(id string) *spec.Operation {
		o := spec.NewOperation(id)
		o.RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("OK"))
		return o
	}
	return &spec.Swagger{SwaggerProps: spec.SwaggerProps{
		Swagger:  "2.0",
		BasePath: basePath,
		Paths: &spec.Paths{Paths: map[string]spec.PathItem{
			"/values":      {PathItemProps: spec.PathItemProps{Get: op("listValues")}},
			"/values/{id}": {PathItemProps: spec.PathItemProps{Get: op("getValue"), Delete: op("deleteValue")}},
			"/public/ping": {PathItemProps: spec.PathItemProps{Get: op("ping")}},
		}},
	}}
}

func TestApplySwagger2HonoursBasePath(t *testing.T) {
	m, err := Build(testRouter(), Config{Schemes: []string{"oauth2", "oauth2_password"}})
	require.NoError(t, err)

	doc := swaggerDoc("/api")
	ApplySwagger2(doc, m)

	list := doc.Paths.Paths["/values"].Get
	require.Contains(t, list.Responses.StatusCodeResponses, http.StatusOK)
	require.Equal(t, UnauthorizedDescription, list.Responses.StatusCodeResponses[http.StatusUnauthorized].Description)
	require.Equal(t, ForbiddenDescription, list.Responses.StatusCodeResponses[http.StatusForbidden].Description)
	require.Equal(t, []map[string][]string{
		{"oauth2": {"api1"}},
		{"oauth2_password": {"api1"}},
	}, list.Security)

	del := doc.Paths.Paths["/values/{id}"].Delete
	require.Equal(t, []string{"api1.write"}, del.Security[0]["oauth2"])

	ping := doc.Paths.Paths["/public/ping"].Get
	require.NotContains(t, ping.Responses.StatusCodeResponses, http.StatusUnauthorized)
	require.Empty(t, ping.Security)
}

func TestApplySwagger2RootBasePath(t *testing.T) {
	m := Map{"GET /values": {Schemes: []string{"oauth2"}, Scopes: []string{"api1"}}}

	doc := swaggerDoc("/")
	ApplySwagger2(doc, m)
	require.Len(t, doc.Paths.Paths["/values"].Get.Security, 1)

	require.NotPanics(t, func() { ApplySwagger2(nil, m) })
	require.NotPanics(t, func() { ApplySwagger2(&spec.Swagger{}, m) })
}
