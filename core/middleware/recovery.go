package middleware

import (
	"context"
	"log"
	"runtime/debug"

	"github.com/searchktools/lean-server/core/http"
)

// RecoveryConfig configures the Recovery middleware
type RecoveryConfig struct {
	// LogFunc is called with the request and the recovered value. When nil
	// the panic and its stack are written to the standard logger.
	LogFunc func(req *http.Request, recovered any)
}

// Recovery turns a panicking handler into a 500 Internal Server Error
func Recovery(cfg RecoveryConfig) Middleware {
	logFunc := cfg.LogFunc
	if logFunc == nil {
		logFunc = func(req *http.Request, recovered any) {
			log.Printf("⚠️  Panic recovered in %s %s: %v\n%s", req.Method, req.Path, recovered, debug.Stack())
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(ctx context.Context, req *http.Request, payload *http.Payload) (res http.Responder, err error) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logFunc(req, recovered)
					res, err = nil, http.NewError(http.StatusInternalServerError, "")
				}
			}()

			return next.Serve(ctx, req, payload)
		})
	}
}
