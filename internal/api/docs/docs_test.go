package docs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/aussiebroadwan/docsauth/api/protected"
	"github.com/aussiebroadwan/docsauth/internal/api/annex"
	"github.com/aussiebroadwan/docsauth/internal/api/endpoint"
	httpapi "github.com/aussiebroadwan/docsauth/internal/api/http"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var testOptions = Options{
	Title:     "Protected API",
	Version:   "v1",
	PublicURL: "http://localhost:5000",
	Authority: "http://localhost:5100/",
	Scopes:    map[string]string{"api1": "Demo API - full access"},
}

func mounted(t *testing.T, schemes ...string) ([]endpoint.Group, annex.Map) {
	t.Helper()
	groups := httpapi.Groups(httpapi.NewValueStore("value1"))
	r := chi.NewRouter()
	endpoint.Mount(r, groups, []string{"api1"}, nil)

	m, err := annex.Build(r, annex.Config{Schemes: schemes})
	require.NoError(t, err)
	return groups, m
}

func TestBuildOpenAPI3(t *testing.T) {
	groups, m := mounted(t, SchemeOAuth2)

	doc, err := BuildOpenAPI3(context.Background(), groups, m, testOptions)
	require.NoError(t, err)

	flow := doc.Components.SecuritySchemes[SchemeOAuth2].Value.Flows.AuthorizationCode
	require.Equal(t, "http://localhost:5100/connect/authorize", flow.AuthorizationURL)
	require.Equal(t, "http://localhost:5100/connect/token", flow.TokenURL)
	require.Contains(t, flow.Scopes, "api1")

	protected := []struct{ path, method string }{
		{"/api/values", http.MethodGet},
		{"/api/values", http.MethodPost},
		{"/api/values/{id}", http.MethodGet},
		{"/api/values/{id}", http.MethodDelete},
		{"/api/identity", http.MethodGet},
	}
	for _, p := range protected {
		item := doc.Paths.Value(p.path)
		require.NotNil(t, item, p.path)
		op := item.GetOperation(p.method)
		require.NotNil(t, op, "%s %s", p.method, p.path)

		require.NotNil(t, op.Responses.Value("401"), "%s %s", p.method, p.path)
		require.NotNil(t, op.Responses.Value("403"), "%s %s", p.method, p.path)
		require.NotNil(t, op.Security)
		require.Equal(t, openapi3.SecurityRequirements{{SchemeOAuth2: []string{"api1"}}}, *op.Security)
	}

	ping := doc.Paths.Value("/api/public/ping").Get
	require.Nil(t, ping.Responses.Value("401"))
	require.Nil(t, ping.Responses.Value("403"))
	require.Nil(t, ping.Security)

	created := doc.Paths.Value("/api/values").Post
	require.NotNil(t, created.Responses.Value("201"))
	require.NotNil(t, created.RequestBody)

	deleted := doc.Paths.Value("/api/values/{id}").Delete
	require.NotNil(t, deleted.Responses.Value("204"))
	require.NotNil(t, deleted.Responses.Value("404"))
}

func TestBuildOpenAPI3RejectsMissingScopes(t *testing.T) {
	groups, m := mounted(t, SchemeOAuth2)
	opts := testOptions
	opts.Scopes = nil

	_, err := BuildOpenAPI3(context.Background(), groups, m, opts)
	require.Error(t, err)
}

func TestBuildSwagger2(t *testing.T) {
	_, m := mounted(t, SchemeOAuth2, SchemeOAuth2Password)

	doc, err := BuildSwagger2("protected", m, testOptions)
	require.NoError(t, err)

	require.Equal(t, "localhost:5000", doc.Host)
	require.Equal(t, []string{"http"}, doc.Schemes)
	require.Equal(t, "Protected API", doc.Info.Title)

	app := doc.SecurityDefinitions[SchemeOAuth2]
	require.Equal(t, "application", app.Flow)
	require.Equal(t, "http://localhost:5100/connect/token", app.TokenURL)
	require.Contains(t, app.Scopes, "api1")
	require.Equal(t, "password", doc.SecurityDefinitions[SchemeOAuth2Password].Flow)

	want := []map[string][]string{
		{SchemeOAuth2: {"api1"}},
		{SchemeOAuth2Password: {"api1"}},
	}

	list := doc.Paths.Paths["/api/values"].Get
	require.Equal(t, want, list.Security)
	require.Contains(t, list.Responses.StatusCodeResponses, 401)
	require.Contains(t, list.Responses.StatusCodeResponses, 403)

	remove := doc.Paths.Paths["/api/values/{id}"].Delete
	require.Equal(t, want, remove.Security)

	ping := doc.Paths.Paths["/api/public/ping"].Get
	require.Empty(t, ping.Security)
	require.NotContains(t, ping.Responses.StatusCodeResponses, 401)
}

func TestBuildSwagger2UnknownInstance(t *testing.T) {
	_, err := BuildSwagger2("missing", annex.Map{}, testOptions)
	require.Error(t, err)
}

func TestJSONHandler(t *testing.T) {
	h, err := JSONHandler(map[string]string{"openapi": "3.0.3"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/v1/swagger.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "3.0.3", body["openapi"])

	_, err = JSONHandler(make(chan int))
	require.Error(t, err)
}
