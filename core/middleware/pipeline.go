// Package middleware decorates handlers with cross-cutting behavior such as
// compression, panic recovery and request IDs.
package middleware

import (
	"context"

	"github.com/searchktools/lean-server/core/http"
)

// Middleware wraps a handler
type Middleware func(next http.Handler) http.Handler

// Pipeline is an ordered list of middlewares. The first middleware added is
// the outermost one.
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline creates a pipeline from mws
func NewPipeline(mws ...Middleware) *Pipeline {
	p := &Pipeline{
		middlewares: make([]Middleware, 0, 8),
	}
	return p.Use(mws...)
}

// Use appends middlewares to the pipeline. Nil middlewares are skipped.
func (p *Pipeline) Use(mws ...Middleware) *Pipeline {
	for _, mw := range mws {
		if mw != nil {
			p.middlewares = append(p.middlewares, mw)
		}
	}
	return p
}

// Len returns the number of middlewares
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// Then wraps final with every middleware of the pipeline
func (p *Pipeline) Then(final http.Handler) http.Handler {
	// Fast path: no middlewares
	if len(p.middlewares) == 0 {
		return final
	}

	h := final
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		h = p.middlewares[i](h)
	}
	return h
}

// Chain composes mws into one middleware
func Chain(mws ...Middleware) Middleware {
	p := NewPipeline(mws...)
	return p.Then
}

// Resolve runs next and turns its result into a concrete response, so
// middlewares can inspect and rewrite it. Errors become error responses and
// a nil responder becomes an empty 200.
func Resolve(ctx context.Context, next http.Handler, req *http.Request, payload *http.Payload) *http.Response {
	res, err := next.Serve(ctx, req, payload)
	if err != nil {
		return http.ErrorResponse(err)
	}
	if res == nil {
		return http.Status(http.StatusOK)
	}

	resp := res.Respond(req)
	if resp == nil {
		return http.Status(http.StatusOK)
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	return resp
}
