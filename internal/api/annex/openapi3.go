package annex

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// ApplyOpenAPI3 annotates every operation of doc found in m. Operations not
// in m are left untouched.
func ApplyOpenAPI3(doc *openapi3.T, m Map) {
	if doc == nil || doc.Paths == nil {
		return
	}

	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			req, ok := m.Lookup(method, path)
			if !ok {
				continue
			}
			annotateOpenAPI3(op, req)
		}
	}
}

func annotateOpenAPI3(op *openapi3.Operation, req Requirement) {
	unauthorized := &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(UnauthorizedDescription)}
	forbidden := &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(ForbiddenDescription)}

	if op.Responses == nil {
		op.Responses = openapi3.NewResponses(openapi3.WithStatus(http.StatusUnauthorized, unauthorized))
	}
	op.Responses.Set("401", unauthorized)
	op.Responses.Set("403", forbidden)

	security := make(openapi3.SecurityRequirements, 0, len(req.Schemes))
	for _, scheme := range req.Schemes {
		security = append(security, openapi3.SecurityRequirement{scheme: scopesOrEmpty(req.Scopes)})
	}
	op.Security = &security
}
