package middleware

import (
	"context"
	"strings"

	"github.com/searchktools/lean-server/core/http"
)

// CORSConfig configures the CORS middleware
type CORSConfig struct {
	AllowedOrigins []string // "*" allows any origin
	AllowedMethods []string
	AllowedHeaders []string
}

// CORS adds CORS headers to responses of allowed origins and answers
// preflight requests with 204 No Content
func CORS(cfg CORSConfig) Middleware {
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "Authorization"}
	}
	allowMethods := strings.Join(methods, ", ")
	allowHeaders := strings.Join(headers, ", ")

	allowed := func(origin string) (string, bool) {
		for _, o := range cfg.AllowedOrigins {
			if o == "*" {
				return "*", true
			}
			if strings.EqualFold(o, origin) {
				return origin, true
			}
		}
		return "", false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(ctx context.Context, req *http.Request, payload *http.Payload) (http.Responder, error) {
			origin := req.Header.Get("Origin")
			if origin == "" {
				return next.Serve(ctx, req, payload)
			}

			allowOrigin, ok := allowed(origin)
			if !ok {
				return next.Serve(ctx, req, payload)
			}

			var resp *http.Response
			if req.Method == "OPTIONS" && req.Header.Has("Access-Control-Request-Method") {
				resp = http.Status(http.StatusNoContent)
				resp.Header.Set("Access-Control-Allow-Methods", allowMethods)
				resp.Header.Set("Access-Control-Allow-Headers", allowHeaders)
			} else {
				resp = Resolve(ctx, next, req, payload)
			}

			resp.Header.Set("Access-Control-Allow-Origin", allowOrigin)
			if allowOrigin != "*" {
				resp.Header.Add(http.HeaderVary, "Origin")
			}

			return resp, nil
		})
	}
}
