// Package fake is an in-memory stand-in for the parts of the Datadog v1 API
// that ddops uses: key validation, dashboards, monitors, SLOs and metrics.
package fake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Collection path segments.
const (
	Dashboards = "dashboard"
	Monitors   = "monitor"
	SLOs       = "slo"
)

type collection struct {
	items map[string]map[string]any
	order []string
}

// API holds fake Datadog state. The zero value is not usable; call New.
type API struct {
	mu sync.Mutex

	apiKey string
	appKey string

	collections map[string]*collection
	nextID      int
	metrics     []string

	forbidden map[string]bool
	failures  []int
	creates   map[string]func(map[string]any) any
	requests  map[string]int
}

// New returns an empty fake accepting the given key pair.
func New(apiKey, appKey string) *API {
	a := &API{
		apiKey:      apiKey,
		appKey:      appKey,
		collections: map[string]*collection{},
		nextID:      1000,
		forbidden:   map[string]bool{},
		creates:     map[string]func(map[string]any) any{},
		requests:    map[string]int{},
	}
	for _, kind := range []string{Dashboards, Monitors, SLOs} {
		a.collections[kind] = &collection{items: map[string]map[string]any{}}
	}
	return a
}

// Handler mounts the fake under /api/v1.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(a.record, a.injectFailures)
		r.Get("/validate", a.validate)

		r.Group(func(r chi.Router) {
			r.Use(a.requireKeys)
			r.Get("/metrics", a.listMetrics)
			for _, kind := range []string{Dashboards, Monitors, SLOs} {
				r.Route("/"+kind, func(r chi.Router) {
					r.Use(a.forbid(kind))
					r.Get("/", a.list(kind))
					r.Post("/", a.create(kind))
					r.Get("/{id}", a.get(kind))
					r.Put("/{id}", a.update(kind))
				})
			}
		})
	})
	return r
}

// Seed stores obj under a fresh id and returns the id.
func (a *API) Seed(kind string, obj map[string]any) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.insert(kind, obj)
}

// Get returns a copy of the stored object.
func (a *API) Get(kind, id string) (map[string]any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	obj, ok := a.collections[kind].items[id]
	if !ok {
		return nil, false
	}
	return clone(obj), true
}

// Delete removes an object, as if someone deleted it in the UI.
func (a *API) Delete(kind, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := a.collections[kind]
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of stored objects of a kind.
func (a *API) Count(kind string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.collections[kind].items)
}

// Forbid makes every request on a collection answer 403.
func (a *API) Forbid(kind string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forbidden[kind] = true
}

// FailNext makes the next n requests answer status.
func (a *API) FailNext(status, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for range n {
		a.failures = append(a.failures, status)
	}
}

// SetCreateResponse overrides the body returned by POST on a collection.
func (a *API) SetCreateResponse(kind string, fn func(stored map[string]any) any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.creates[kind] = fn
}

// SetMetrics sets the names returned by GET /metrics.
func (a *API) SetMetrics(names ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metrics = names
}

// Requests returns how many requests matched "METHOD pattern", for example
// "PUT /api/v1/monitor/{id}" or "GET /api/v1/monitor".
func (a *API) Requests(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[key]
}

func (a *API) insert(kind string, obj map[string]any) string {
	a.nextID++
	var id string
	stored := clone(obj)
	switch kind {
	case Monitors:
		id = strconv.Itoa(a.nextID)
		stored["id"] = a.nextID
	case Dashboards:
		id = fmt.Sprintf("abc-def-%d", a.nextID)
		stored["id"] = id
	default:
		id = fmt.Sprintf("slo%d", a.nextID)
		stored["id"] = id
	}
	c := a.collections[kind]
	c.items[id] = stored
	c.order = append(c.order, id)
	return id
}

func (a *API) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		pattern := strings.TrimSuffix(chi.RouteContext(r.Context()).RoutePattern(), "/")
		a.mu.Lock()
		a.requests[r.Method+" "+pattern]++
		a.mu.Unlock()
	})
}

func (a *API) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		status := 0
		if len(a.failures) > 0 {
			status, a.failures = a.failures[0], a.failures[1:]
		}
		a.mu.Unlock()
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requireKeys(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("DD-API-KEY") != a.apiKey || r.Header.Get("DD-APPLICATION-KEY") != a.appKey {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) forbid(kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.mu.Lock()
			denied := a.forbidden[kind]
			a.mu.Unlock()
			if denied {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *API) validate(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("DD-API-KEY") != a.apiKey {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (a *API) listMetrics(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	names := append([]string{}, a.metrics...)
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": names,
		"from":    r.URL.Query().Get("from"),
	})
}

func (a *API) list(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		c := a.collections[kind]
		all := make([]any, 0, len(c.order))
		for _, id := range c.order {
			all = append(all, clone(c.items[id]))
		}
		a.mu.Unlock()

		q := r.URL.Query()
		switch kind {
		case Dashboards:
			page := window(all, atoi(q.Get("start")), atoi(q.Get("count")))
			writeJSON(w, http.StatusOK, map[string]any{"dashboards": page})
		case Monitors:
			size := atoi(q.Get("page_size"))
			writeJSON(w, http.StatusOK, window(all, atoi(q.Get("page"))*size, size))
		default:
			page := window(all, atoi(q.Get("offset")), atoi(q.Get("limit")))
			writeJSON(w, http.StatusOK, map[string]any{"data": page})
		}
	}
}

func (a *API) get(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj, ok := a.Get(kind, chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		if kind == SLOs {
			writeJSON(w, http.StatusOK, map[string]any{"data": obj})
			return
		}
		writeJSON(w, http.StatusOK, obj)
	}
}

func (a *API) create(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj, ok := decodeBody(w, r)
		if !ok {
			return
		}
		a.mu.Lock()
		id := a.insert(kind, obj)
		stored := clone(a.collections[kind].items[id])
		shape := a.creates[kind]
		a.mu.Unlock()

		switch {
		case shape != nil:
			writeJSON(w, http.StatusOK, shape(stored))
		case kind == SLOs:
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{stored}})
		default:
			writeJSON(w, http.StatusOK, stored)
		}
	}
}

func (a *API) update(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		obj, ok := decodeBody(w, r)
		if !ok {
			return
		}

		a.mu.Lock()
		c := a.collections[kind]
		existing, found := c.items[id]
		if found {
			obj["id"] = existing["id"]
			c.items[id] = obj
		}
		a.mu.Unlock()

		if !found {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		if kind == SLOs {
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{clone(obj)}})
			return
		}
		writeJSON(w, http.StatusOK, clone(obj))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if _, ok := obj["id"]; ok {
		delete(obj, "id")
	}
	return obj, true
}

func window(items []any, start, count int) []any {
	if start >= len(items) {
		return []any{}
	}
	items = items[max(start, 0):]
	if count > 0 && count < len(items) {
		items = items[:count]
	}
	return items
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clone(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"errors": []string{msg}})
}
