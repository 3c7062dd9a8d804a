/*
Package leanserver is a small HTTP/1.x server framework built around a route
trie and typed request extractors.

Each accepted connection carries exactly one request. The server reads the
request head and a Content-Length framed body, matches the path against the
route trie, runs the handler and writes the response with Content-Length and
Connection: close. Connections are served concurrently, one goroutine each.

Features

  - Route patterns with static segments, {param} captures, * single segment
    wildcards and a trailing ** that captures the rest of the path
  - A not-found handler that always resolves, 404 by default
  - Typed extractors (path params, query, headers, JSON and protobuf bodies,
    shared state) resolved concurrently and fail-fast
  - Middleware pipeline with recovery, request IDs, compression, CORS and
    access logging
  - YAML config with LEAN_* environment overrides

Quick Start

	package main

	import (
	    "context"
	    "log"

	    "github.com/searchktools/lean-server/app"
	    "github.com/searchktools/lean-server/config"
	    "github.com/searchktools/lean-server/core/extract"
	    "github.com/searchktools/lean-server/core/http"
	)

	func main() {
	    application, err := app.New(config.Default())
	    if err != nil {
	        log.Fatal(err)
	    }

	    engine := application.Engine()
	    engine.GET("/hello/{name}", extract.Handle1(extract.Param("name"),
	        func(_ context.Context, name string) (http.Responder, error) {
	            return http.Text(http.StatusOK, "Hello, "+name), nil
	        }))

	    log.Fatal(application.Run(context.Background()))
	}

Modules

  - app: Application lifecycle and default middleware stack
  - config: YAML and environment configuration
  - core: Engine, accept loop and connection pipeline
  - core/http: Request parsing, responses and handler types
  - core/router: Path parser, route trie and handler registry
  - core/extract: Extractors and the concurrent join combinator
  - core/middleware: Middleware pipeline and built-in middlewares
  - core/state: Typed shared application state
  - core/pools: Tiered byte buffer pool
  - cmd/leanserver: Demo server CLI
*/
package leanserver
