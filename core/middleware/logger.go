package middleware

import (
	"context"
	"log"
	"time"

	"github.com/searchktools/lean-server/core/http"
)

// Logger logs one line per request with status, body size and latency. A
// nil logger uses the standard logger.
func Logger(l *log.Logger) Middleware {
	if l == nil {
		l = log.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(ctx context.Context, req *http.Request, payload *http.Payload) (http.Responder, error) {
			start := time.Now()
			resp := Resolve(ctx, next, req, payload)

			l.Printf("[%s] %s %s %d %dB %v", req.ID, req.Method, req.Target, resp.Status, len(resp.Body), time.Since(start))

			return resp, nil
		})
	}
}
