package http

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
	"github.com/go-chi/chi/v5"
)

// ValueStore is the in-memory collection behind /api/values.
type ValueStore struct {
	mu    sync.RWMutex
	next  int
	items map[int]Value
}

// NewValueStore returns a store seeded with initial.
func NewValueStore(initial ...string) *ValueStore {
	s := &ValueStore{next: 1, items: map[int]Value{}}
	for _, v := range initial {
		s.Add(v)
	}
	return s
}

// List returns every value ordered by id.
func (s *ValueStore) List() []Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Value, 0, len(s.items))
	for _, v := range s.items {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b Value) int { return a.ID - b.ID })
	return out
}

// Get returns the value with id.
func (s *ValueStore) Get(id int) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[id]
	return v, ok
}

// Add stores value under the next id.
func (s *ValueStore) Add(value string) Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := Value{ID: s.next, Value: value}
	s.items[v.ID] = v
	s.next++
	return v
}

// Delete removes id and reports whether it existed.
func (s *ValueStore) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// ValuesHandler serves the /api/values collection.
type ValuesHandler struct {
	Store *ValueStore
}

// List godoc
//
//	@Summary		List values
//	@Description	Returns every value. Requires a bearer token with the api1 scope.
//	@Tags			Values
//	@Produce		json
//	@Success		200	{array}	Value
//	@Router			/api/values [get]
func (h *ValuesHandler) List(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.Store.List())
}

// Get godoc
//
//	@Summary	Get a value
//	@Tags		Values
//	@Produce	json
//	@Param		id	path		int	true	"Value id"
//	@Success	200	{object}	Value
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/values/{id} [get]
func (h *ValuesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := valueID(w, r)
	if !ok {
		return
	}
	v, ok := h.Store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "value "+strconv.Itoa(id)+" does not exist")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

// Create godoc
//
//	@Summary	Create a value
//	@Tags		Values
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateValueRequest	true	"New value"
//	@Success	201		{object}	Value
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/values [post]
func (h *ValuesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateValueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON object")
		return
	}
	req.Value = strings.TrimSpace(req.Value)
	if req.Value == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "value is required")
		return
	}

	v := h.Store.Add(req.Value)
	slogx.FromContext(r.Context()).Info("value created", "id", v.ID)
	w.Header().Set("Location", "/api/values/"+strconv.Itoa(v.ID))
	httpx.WriteJSON(w, http.StatusCreated, v)
}

// Delete godoc
//
//	@Summary	Delete a value
//	@Tags		Values
//	@Param		id	path	int	true	"Value id"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/values/{id} [delete]
func (h *ValuesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := valueID(w, r)
	if !ok {
		return
	}
	if !h.Store.Delete(id) {
		writeError(w, http.StatusNotFound, "not_found", "value "+strconv.Itoa(id)+" does not exist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func valueID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, code int, errCode, desc string) {
	httpx.WriteJSON(w, code, ErrorResponse{Error: errCode, ErrorDescription: desc})
}
