package core

import (
	"fmt"
	"strings"

	"github.com/searchktools/lean-server/core/http"
	"github.com/searchktools/lean-server/core/middleware"
)

// Group registers routes under a common path prefix with their own
// middlewares
type Group struct {
	engine   *Engine
	prefix   string
	pipeline *middleware.Pipeline
}

// Group creates a route group rooted at prefix
func (e *Engine) Group(prefix string, mws ...middleware.Middleware) *Group {
	return &Group{
		engine:   e,
		prefix:   joinPath("", prefix),
		pipeline: middleware.NewPipeline(mws...),
	}
}

// Group creates a nested group. Middlewares of g run before those of the
// nested group.
func (g *Group) Group(prefix string, mws ...middleware.Middleware) *Group {
	all := append([]middleware.Middleware{g.pipeline.Then}, mws...)

	return &Group{
		engine:   g.engine,
		prefix:   joinPath(g.prefix, prefix),
		pipeline: middleware.NewPipeline(all...),
	}
}

// Use adds middlewares to routes registered on g afterwards
func (g *Group) Use(mws ...middleware.Middleware) {
	g.pipeline.Use(mws...)
}

// Handle registers handler for method and the prefixed pattern
func (g *Group) Handle(method, pattern string, handler http.Handler) error {
	if handler == nil {
		return g.engine.Handle(method, joinPath(g.prefix, pattern), nil)
	}
	return g.engine.Handle(method, joinPath(g.prefix, pattern), g.pipeline.Then(handler))
}

func (g *Group) mustHandle(method, pattern string, handler http.Handler) {
	if err := g.Handle(method, pattern, handler); err != nil {
		panic(err)
	}
}

// GET registers a GET route
func (g *Group) GET(pattern string, handler http.Handler) { g.mustHandle("GET", pattern, handler) }

// POST registers a POST route
func (g *Group) POST(pattern string, handler http.Handler) { g.mustHandle("POST", pattern, handler) }

// PUT registers a PUT route
func (g *Group) PUT(pattern string, handler http.Handler) { g.mustHandle("PUT", pattern, handler) }

// DELETE registers a DELETE route
func (g *Group) DELETE(pattern string, handler http.Handler) {
	g.mustHandle("DELETE", pattern, handler)
}

// PATCH registers a PATCH route
func (g *Group) PATCH(pattern string, handler http.Handler) {
	g.mustHandle("PATCH", pattern, handler)
}

// RouteBuilder registers several methods on one pattern
type RouteBuilder struct {
	register func(method, pattern string, h http.Handler) error
	pattern  string
	methods  map[string]bool
}

// Route starts a multi-method registration for pattern
func (e *Engine) Route(pattern string) *RouteBuilder {
	return &RouteBuilder{register: e.Handle, pattern: pattern, methods: make(map[string]bool)}
}

// Route starts a multi-method registration for the prefixed pattern
func (g *Group) Route(pattern string) *RouteBuilder {
	return &RouteBuilder{register: g.Handle, pattern: pattern, methods: make(map[string]bool)}
}

// Method registers handler for method. A second handler for the same method
// panics.
func (b *RouteBuilder) Method(method string, handler http.Handler) *RouteBuilder {
	method = strings.ToUpper(method)
	if b.methods[method] {
		panic(fmt.Sprintf("route %s: duplicate handler for method %s", b.pattern, method))
	}
	b.methods[method] = true

	if err := b.register(method, b.pattern, handler); err != nil {
		panic(err)
	}
	return b
}

// GET registers a GET handler
func (b *RouteBuilder) GET(h http.Handler) *RouteBuilder { return b.Method("GET", h) }

// POST registers a POST handler
func (b *RouteBuilder) POST(h http.Handler) *RouteBuilder { return b.Method("POST", h) }

// PUT registers a PUT handler
func (b *RouteBuilder) PUT(h http.Handler) *RouteBuilder { return b.Method("PUT", h) }

// DELETE registers a DELETE handler
func (b *RouteBuilder) DELETE(h http.Handler) *RouteBuilder { return b.Method("DELETE", h) }

// PATCH registers a PATCH handler
func (b *RouteBuilder) PATCH(h http.Handler) *RouteBuilder { return b.Method("PATCH", h) }

// joinPath joins a group prefix and a pattern with exactly one slash
func joinPath(prefix, pattern string) string {
	prefix = strings.Trim(prefix, "/")
	pattern = strings.Trim(pattern, "/")

	switch {
	case prefix == "" && pattern == "":
		return "/"
	case prefix == "":
		return "/" + pattern
	case pattern == "":
		return "/" + prefix
	default:
		return "/" + prefix + "/" + pattern
	}
}
