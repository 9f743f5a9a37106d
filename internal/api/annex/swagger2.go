package annex

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-openapi/spec"
)

// ApplySwagger2 is ApplyOpenAPI3 for a Swagger 2.0 document. Paths are
// resolved against doc.BasePath before the lookup.
func ApplySwagger2(doc *spec.Swagger, m Map) {
	if doc == nil || doc.Paths == nil {
		return
	}

	for p, item := range doc.Paths.Paths {
		full := joinBasePath(doc.BasePath, p)
		for method, op := range swaggerOperations(&item) {
			if op == nil {
				continue
			}
			req, ok := m.Lookup(method, full)
			if !ok {
				continue
			}
			annotateSwagger2(op, req)
		}
	}
}

func swaggerOperations(item *spec.PathItem) map[string]*spec.Operation {
	return map[string]*spec.Operation{
		http.MethodGet:     item.Get,
		http.MethodPut:     item.Put,
		http.MethodPost:    item.Post,
		http.MethodDelete:  item.Delete,
		http.MethodOptions: item.Options,
		http.MethodHead:    item.Head,
		http.MethodPatch:   item.Patch,
	}
}

func annotateSwagger2(op *spec.Operation, req Requirement) {
	if op.Responses == nil {
		op.Responses = &spec.Responses{}
	}
	if op.Responses.StatusCodeResponses == nil {
		op.Responses.StatusCodeResponses = map[int]spec.Response{}
	}
	op.Responses.StatusCodeResponses[http.StatusUnauthorized] = *spec.NewResponse().WithDescription(UnauthorizedDescription)
	op.Responses.StatusCodeResponses[http.StatusForbidden] = *spec.NewResponse().WithDescription(ForbiddenDescription)

	op.Security = make([]map[string][]string, 0, len(req.Schemes))
	for _, scheme := range req.Schemes {
		op.Security = append(op.Security, map[string][]string{scheme: scopesOrEmpty(req.Scopes)})
	}
}

func joinBasePath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return path.Join("/", strings.TrimSuffix(base, "/"), p)
}
