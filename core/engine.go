package core

import (
	"context"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/searchktools/lean-server/core/http"
	"github.com/searchktools/lean-server/core/middleware"
	"github.com/searchktools/lean-server/core/observability"
	"github.com/searchktools/lean-server/core/pools"
	"github.com/searchktools/lean-server/core/router"
	"github.com/searchktools/lean-server/core/state"
)

// Engine owns the route table and shared state, and serves one request per
// accepted connection. Routes, middlewares and state are registered first;
// Serve freezes them and they stay read-only while connections run.
type Engine struct {
	registry *router.Registry
	pipeline *middleware.Pipeline
	state    *state.Store
	bytePool *pools.BytePool
	logger   *log.Logger
	monitor  *observability.Monitor

	readChunkSize   int
	maxRequestBytes int

	freezeOnce sync.Once
	frozen     atomic.Bool

	conns sync.WaitGroup
	stats engineStats
}

type engineStats struct {
	accepted atomic.Uint64
	active   atomic.Int64
	served   atomic.Uint64
	failed   atomic.Uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger for lifecycle and connection errors
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithReadChunkSize sets the size of a single socket read
func WithReadChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.readChunkSize = n
		}
	}
}

// WithMaxRequestBytes caps head plus body size. Zero disables the limit.
func WithMaxRequestBytes(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRequestBytes = n
		}
	}
}

// WithMonitor records per-route metrics in m. The monitor wraps the
// middleware pipeline, so its timings include every middleware.
func WithMonitor(m *observability.Monitor) Option {
	return func(e *Engine) {
		e.monitor = m
	}
}

// NewEngine creates a new engine instance
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		registry:        router.NewRegistry(),
		pipeline:        middleware.NewPipeline(),
		state:           state.New(),
		bytePool:        pools.NewBytePool(),
		logger:          log.Default(),
		readChunkSize:   DefaultReadChunkSize,
		maxRequestBytes: DefaultMaxRequestBytes,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Handle registers handler for method and pattern
func (e *Engine) Handle(method, pattern string, handler http.Handler) error {
	if e.frozen.Load() {
		return router.ErrFrozen
	}
	return e.registry.Insert(method, pattern, handler)
}

// mustHandle panics on registration errors; routes are fixed at startup, so
// a bad one is a programming error
func (e *Engine) mustHandle(method, pattern string, handler http.Handler) {
	if err := e.Handle(method, pattern, handler); err != nil {
		panic(err)
	}
}

// GET registers a GET route
func (e *Engine) GET(pattern string, handler http.Handler) {
	e.mustHandle("GET", pattern, handler)
}

// POST registers a POST route
func (e *Engine) POST(pattern string, handler http.Handler) {
	e.mustHandle("POST", pattern, handler)
}

// PUT registers a PUT route
func (e *Engine) PUT(pattern string, handler http.Handler) {
	e.mustHandle("PUT", pattern, handler)
}

// DELETE registers a DELETE route
func (e *Engine) DELETE(pattern string, handler http.Handler) {
	e.mustHandle("DELETE", pattern, handler)
}

// PATCH registers a PATCH route
func (e *Engine) PATCH(pattern string, handler http.Handler) {
	e.mustHandle("PATCH", pattern, handler)
}

// HEAD registers a HEAD route
func (e *Engine) HEAD(pattern string, handler http.Handler) {
	e.mustHandle("HEAD", pattern, handler)
}

// OPTIONS registers an OPTIONS route
func (e *Engine) OPTIONS(pattern string, handler http.Handler) {
	e.mustHandle("OPTIONS", pattern, handler)
}

// NotFound replaces the handler for requests no route matches
func (e *Engine) NotFound(handler http.Handler) {
	if err := e.registry.SetNotFound(handler); err != nil {
		panic(err)
	}
}

// Use adds middlewares around every route, including the not-found handler.
// They are applied when the engine is frozen.
func (e *Engine) Use(mws ...middleware.Middleware) {
	if e.frozen.Load() {
		panic(router.ErrFrozen)
	}
	e.pipeline.Use(mws...)
}

// State returns the shared state store. Values must be set before Serve.
func (e *Engine) State() *state.Store {
	return e.state
}

// Monitor returns the monitor set with WithMonitor, or nil
func (e *Engine) Monitor() *observability.Monitor {
	return e.monitor
}

// Routes lists the registered routes
func (e *Engine) Routes() []router.RouteInfo {
	return e.registry.Routes()
}

// Freeze applies the middlewares and makes routes and state read-only. Serve
// calls it; calling it again is a no-op.
func (e *Engine) Freeze() {
	e.freezeOnce.Do(func() {
		if e.pipeline.Len() > 0 {
			// cannot fail: the registry is not frozen yet
			_ = e.registry.Wrap(e.pipeline.Then)
		}
		if e.monitor != nil {
			_ = e.registry.WrapRoutes(func(route router.RouteInfo, h http.Handler) http.Handler {
				label := ""
				if route.Method != "" {
					label = route.Method + " " + route.Pattern
				}
				return e.monitor.Middleware(label)(h)
			})
		}
		e.registry.Freeze()
		e.state.Freeze()
		e.frozen.Store(true)
	})
}

// Run listens on addr and serves until ctx is cancelled
func (e *Engine) Run(ctx context.Context, addr string) error {
	lc := net.ListenConfig{Control: controlSockopts}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}

	return e.Serve(ctx, ln)
}

// Serve accepts connections on ln and serves each in its own goroutine until
// ctx is cancelled. It closes ln, waits for in-flight connections and
// returns nil on cancellation.
func (e *Engine) Serve(ctx context.Context, ln net.Listener) error {
	e.Freeze()

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()
	defer e.conns.Wait()

	e.logger.Printf("🚀 Server listening on %s (%d routes)", ln.Addr(), len(e.registry.Routes()))

	var backoff time.Duration
	for {
		rwc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				e.logger.Printf("🛑 Server on %s stopped", ln.Addr())
				return nil
			}

			if isTemporaryAcceptError(err) {
				backoff = nextBackoff(backoff)
				e.logger.Printf("Accept error: %v; retrying in %v", err, backoff)
				time.Sleep(backoff)
				continue
			}

			return errors.Wrap(err, "accept")
		}
		backoff = 0

		e.stats.accepted.Add(1)
		e.stats.active.Add(1)
		e.conns.Add(1)

		go func() {
			defer e.conns.Done()
			defer e.stats.active.Add(-1)

			// cancellation aborts connections stuck in a read or write
			stop := context.AfterFunc(ctx, func() {
				rwc.Close()
			})
			defer stop()

			newConn(e, rwc).serve(ctx)
		}()
	}
}

// isTemporaryAcceptError reports whether Accept may succeed on a later call:
// timeouts, descriptor exhaustion and connections aborted before accept
func isTemporaryAcceptError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ECONNABORTED)
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
