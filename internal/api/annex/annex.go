// Package annex derives per-operation security metadata from the mounted
// routes and injects it into generated API descriptions: a security
// requirement plus 401 and 403 responses on every protected operation.
package annex

import (
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/api/endpoint"
	"github.com/go-chi/chi/v5"
)

// Response descriptions added to protected operations.
const (
	UnauthorizedDescription = "Unauthorized"
	ForbiddenDescription    = "Forbidden"
)

// OperationKey identifies an operation as "METHOD /path/{param}".
type OperationKey string

// Key builds the OperationKey for method and path.
func Key(method, path string) OperationKey {
	return OperationKey(strings.ToUpper(method) + " " + path)
}

// Requirement is what a protected operation demands. Each scheme is an
// alternative way to satisfy it, all with the same scopes.
type Requirement struct {
	Schemes []string
	Scopes  []string
}

// Map is the security annex of an API keyed by operation.
type Map map[OperationKey]Requirement

// Config names the security schemes protected operations reference.
type Config struct {
	Schemes []string
}

// Build walks routes once and records a Requirement for every protected
// endpoint. Routes not mounted through package endpoint are skipped.
func Build(routes chi.Routes, cfg Config) (Map, error) {
	m := Map{}
	err := chi.Walk(routes, func(method, route string, h http.Handler, _ ...func(http.Handler) http.Handler) error {
		eh, ok := h.(*endpoint.Handler)
		if !ok || !eh.Protected {
			return nil
		}
		m[Key(method, NormalizePath(route))] = Requirement{
			Schemes: slices.Clone(cfg.Schemes),
			Scopes:  scopesOrEmpty(eh.Scopes),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Lookup returns the requirement of an operation. path is normalized the
// same way the map keys are.
func (m Map) Lookup(method, path string) (Requirement, bool) {
	r, ok := m[Key(method, NormalizePath(path))]
	return r, ok
}

var paramRegexp = regexp.MustCompile(`\{([^}:]+):[^}]*\}`)

// NormalizePath turns a chi route into a documentation path template:
// regexp constraints are dropped and a trailing slash is trimmed.
func NormalizePath(route string) string {
	p := paramRegexp.ReplaceAllString(route, "{$1}")
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func scopesOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
