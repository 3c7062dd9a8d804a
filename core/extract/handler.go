package extract

import (
	"context"

	"github.com/searchktools/lean-server/core/http"
)

// Handle1 builds a handler whose single argument is resolved by a
func Handle1[A any](a Extractor[A], fn func(ctx context.Context, a A) (http.Responder, error)) http.Handler {
	return http.HandlerFunc(func(ctx context.Context, req *http.Request, p *http.Payload) (http.Responder, error) {
		va, err := a.Extract(ctx, req, p)
		if err != nil {
			return nil, err
		}
		return fn(ctx, va)
	})
}

// Handle2 builds a handler whose arguments are resolved concurrently
func Handle2[A, B any](a Extractor[A], b Extractor[B], fn func(ctx context.Context, a A, b B) (http.Responder, error)) http.Handler {
	return http.HandlerFunc(func(ctx context.Context, req *http.Request, p *http.Payload) (http.Responder, error) {
		va, vb, err := Join2(ctx, bind(a, req, p), bind(b, req, p))
		if err != nil {
			return nil, err
		}
		return fn(ctx, va, vb)
	})
}

// Handle3 builds a handler whose arguments are resolved concurrently
func Handle3[A, B, C any](a Extractor[A], b Extractor[B], c Extractor[C], fn func(ctx context.Context, a A, b B, c C) (http.Responder, error)) http.Handler {
	return http.HandlerFunc(func(ctx context.Context, req *http.Request, p *http.Payload) (http.Responder, error) {
		va, vb, vc, err := Join3(ctx, bind(a, req, p), bind(b, req, p), bind(c, req, p))
		if err != nil {
			return nil, err
		}
		return fn(ctx, va, vb, vc)
	})
}

// Handle4 builds a handler whose arguments are resolved concurrently
func Handle4[A, B, C, D any](a Extractor[A], b Extractor[B], c Extractor[C], d Extractor[D], fn func(ctx context.Context, a A, b B, c C, d D) (http.Responder, error)) http.Handler {
	return http.HandlerFunc(func(ctx context.Context, req *http.Request, p *http.Payload) (http.Responder, error) {
		va, vb, vc, vd, err := Join4(ctx, bind(a, req, p), bind(b, req, p), bind(c, req, p), bind(d, req, p))
		if err != nil {
			return nil, err
		}
		return fn(ctx, va, vb, vc, vd)
	})
}

func bind[T any](e Extractor[T], req *http.Request, p *http.Payload) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return e.Extract(ctx, req, p)
	}
}
