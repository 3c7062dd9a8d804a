package main

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/searchktools/lean-server/core"
	"github.com/searchktools/lean-server/core/extract"
	"github.com/searchktools/lean-server/core/http"
	"github.com/searchktools/lean-server/core/state"
)

var (
	greetingKey = state.NewKey[string]("greeting")
	counterKey  = state.NewKey[*atomic.Uint64]("counter")
	engineKey   = state.NewKey[*core.Engine]("engine")
)

type echoReply struct {
	Message string            `json:"message"`
	Query   map[string]string `json:"query,omitempty"`
}

// registerRoutes installs the demo application
func registerRoutes(e *core.Engine) {
	st := e.State()
	mustSet(state.Set(st, greetingKey, "Hello from lean-server"))
	mustSet(state.Set(st, counterKey, new(atomic.Uint64)))
	mustSet(state.Set(st, engineKey, e))

	e.GET("/", extract.Handle2(extract.State(greetingKey), extract.State(counterKey),
		func(_ context.Context, greeting string, hits *atomic.Uint64) (http.Responder, error) {
			hits.Add(1)
			return http.Text(http.StatusOK, greeting), nil
		}))

	e.GET("/hits", extract.Handle1(extract.State(counterKey),
		func(_ context.Context, hits *atomic.Uint64) (http.Responder, error) {
			return http.JSON(http.StatusOK, map[string]uint64{"hits": hits.Load()}), nil
		}))

	e.GET("/echo/{message}", extract.Handle2(extract.Param("message"), extract.Query(),
		func(_ context.Context, message string, query url.Values) (http.Responder, error) {
			reply := echoReply{Message: message}
			if len(query) > 0 {
				reply.Query = make(map[string]string, len(query))
				for k := range query {
					reply.Query[k] = query.Get(k)
				}
			}
			return http.JSON(http.StatusOK, reply), nil
		}))

	e.POST("/echo", extract.Handle1(extract.JSON[echoReply](),
		func(_ context.Context, body echoReply) (http.Responder, error) {
			if body.Message == "" {
				return nil, http.NewError(http.StatusBadRequest, "message is required")
			}
			return http.JSON(http.StatusOK, body), nil
		}))

	e.POST("/echo/proto", extract.Handle1(extract.Protobuf(newStringValue),
		func(_ context.Context, msg *wrapperspb.StringValue) (http.Responder, error) {
			return http.Proto(http.StatusOK, wrapperspb.String(strings.ToUpper(msg.GetValue()))), nil
		}))

	e.GET("/files/**", extract.Handle2(extract.Wildcard(), extract.Optional(extract.QueryValue("download")),
		func(_ context.Context, path string, download *string) (http.Responder, error) {
			if path == "" {
				return nil, http.NewError(http.StatusNotFound, "no file requested")
			}
			res := http.Text(http.StatusOK, "file: "+path)
			if download != nil {
				res.SetHeader("Content-Disposition", "attachment")
			}
			return res, nil
		}))

	debug := e.Group("/debug")
	debug.GET("/stats", extract.Handle1(extract.State(engineKey),
		func(_ context.Context, engine *core.Engine) (http.Responder, error) {
			return http.JSON(http.StatusOK, engine.Stats()), nil
		}))
	debug.GET("/routes", extract.Handle1(extract.State(engineKey),
		func(_ context.Context, engine *core.Engine) (http.Responder, error) {
			return http.JSON(http.StatusOK, engine.Routes()), nil
		}))

	if mon := e.Monitor(); mon != nil {
		debug.GET("/metrics", http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
			requests, errors := mon.Totals()
			return http.JSON(http.StatusOK, map[string]any{
				"requests":    requests,
				"errors":      errors,
				"routes":      mon.Routes(),
				"bottlenecks": mon.Bottlenecks(),
			}), nil
		}))
	}
}

func newStringValue() *wrapperspb.StringValue {
	return new(wrapperspb.StringValue)
}

func mustSet(err error) {
	if err != nil {
		panic(err)
	}
}
