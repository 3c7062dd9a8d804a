package http

import "context"

// Handler serves one request. A returned error is turned into a response by
// the server, so handlers never have to write error responses themselves.
type Handler interface {
	Serve(ctx context.Context, req *Request, payload *Payload) (Responder, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, req *Request, payload *Payload) (Responder, error)

// Serve implements Handler
func (f HandlerFunc) Serve(ctx context.Context, req *Request, payload *Payload) (Responder, error) {
	return f(ctx, req, payload)
}

// NotFound is the built-in handler for requests no route matches
var NotFound Handler = notFound{}

type notFound struct{}

func (notFound) Serve(context.Context, *Request, *Payload) (Responder, error) {
	return Text(StatusNotFound, "Not Found"), nil
}
