package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/searchktools/lean-server/core/http"
)

// DefaultRequestIDHeader carries the request ID
const DefaultRequestIDHeader = "X-Request-ID"

// RequestIDConfig configures the RequestID middleware
type RequestIDConfig struct {
	// HeaderName defaults to X-Request-ID
	HeaderName string

	// Generate returns a new ID. Defaults to GenerateUUIDv7.
	Generate func(req *http.Request) string

	// TrustIncoming reuses the ID sent by the client instead of the one
	// assigned by the server
	TrustIncoming bool
}

// RequestID propagates the request ID to the response header. The ID is taken
// from the incoming header when trusted, else from the ID the server already
// assigned, else generated.
func RequestID(cfg RequestIDConfig) Middleware {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = DefaultRequestIDHeader
	}

	generate := cfg.Generate
	if generate == nil {
		generate = GenerateUUIDv7
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(ctx context.Context, req *http.Request, payload *http.Payload) (http.Responder, error) {
			if cfg.TrustIncoming {
				if id := req.Header.Get(headerName); id != "" {
					req.ID = id
				}
			}
			if req.ID == "" {
				req.ID = generate(req)
			}

			resp := Resolve(ctx, next, req, payload)
			if req.ID != "" {
				resp.Header.Set(headerName, req.ID)
			}

			return resp, nil
		})
	}
}

// GenerateUUIDv4 returns a random UUID
func GenerateUUIDv4(*http.Request) string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a time-ordered UUID
func GenerateUUIDv7(*http.Request) string {
	return uuid.Must(uuid.NewV7()).String()
}
