// Package endpoint declares the protected API as data: groups of endpoints,
// each optionally carrying an authorization marker. Mount registers them on a
// chi router, and the same declarations feed the documentation builders.
package endpoint

import (
	"net/http"
	"slices"

	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/go-chi/chi/v5"
)

// Marker requires a bearer token. Nil Scopes means the configured default
// scopes.
type Marker struct {
	Scopes []string
}

// Authorize is shorthand for a marker with the default scopes.
func Authorize(scopes ...string) *Marker {
	if len(scopes) == 0 {
		return &Marker{}
	}
	return &Marker{Scopes: scopes}
}

// Param documents a path or query parameter.
type Param struct {
	Name        string
	In          string // path or query
	Type        string // JSON schema type, string when empty
	Description string
	Required    bool
}

// Endpoint is one routable operation.
type Endpoint struct {
	Method      string
	Path        string // relative to the group prefix
	OperationID string
	Summary     string
	Description string
	Params      []Param
	Request     any // example request body, nil when the operation takes none
	Response    any // example success body, nil for no content
	Status      int // success status, 200 when zero
	Authorize   *Marker
	Handler     http.HandlerFunc
}

// Group is a set of endpoints sharing a path prefix, a tag and optionally a
// marker.
type Group struct {
	Prefix    string
	Tag       string
	Authorize *Marker
	Endpoints []Endpoint
}

// Guard builds the authentication and scope check for a marked endpoint.
type Guard func(scopes []string) func(http.Handler) http.Handler

// Handler is the routed handler of an endpoint. It carries the resolved
// metadata so route walkers can recover it without reflection.
type Handler struct {
	Method      string
	Pattern     string
	OperationID string
	Tag         string
	Protected   bool
	Scopes      []string

	next http.Handler
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.next.ServeHTTP(w, r)
}

// Resolve reports whether e requires authorization within g and which
// scopes it needs. The endpoint's own marker wins over the group's; the two
// are never merged.
func (g Group) Resolve(e Endpoint, defaults []string) (bool, []string) {
	m := e.Authorize
	if m == nil {
		m = g.Authorize
	}
	if m == nil {
		return false, nil
	}
	if m.Scopes == nil {
		return true, slices.Clone(defaults)
	}
	return true, slices.Clone(m.Scopes)
}

// Pattern is the full route pattern of e within g.
func (g Group) Pattern(e Endpoint) string {
	p := g.Prefix + e.Path
	if p == "" {
		return "/"
	}
	return p
}

// SuccessStatus is the documented success status of e.
func (e Endpoint) SuccessStatus() int {
	if e.Status == 0 {
		return http.StatusOK
	}
	return e.Status
}

// Mount registers every endpoint on r, wrapping marked ones with guard.
// Without a guard marked endpoints answer 401.
func Mount(r chi.Router, groups []Group, defaults []string, guard Guard) {
	for _, g := range groups {
		for _, e := range g.Endpoints {
			protected, scopes := g.Resolve(e, defaults)
			h := &Handler{
				Method:      e.Method,
				Pattern:     g.Pattern(e),
				OperationID: e.OperationID,
				Tag:         g.Tag,
				Protected:   protected,
				Scopes:      scopes,
				next:        e.Handler,
			}

			if !protected {
				r.Method(e.Method, h.Pattern, h)
				continue
			}
			mw := httpx.RequireScopes(scopes...)
			if guard != nil {
				mw = guard(scopes)
			}
			r.With(mw).Method(e.Method, h.Pattern, h)
		}
	}
}
