package http

import (
	"bytes"
	"io"
	"net/url"

	"github.com/searchktools/lean-server/core/state"
)

// Protocol versions accepted on the wire
const (
	ProtoHTTP10 = "HTTP/1.0"
	ProtoHTTP11 = "HTTP/1.1"
)

// Request is a parsed HTTP/1.x request
type Request struct {
	Method   string
	Target   string // raw request-target as sent by the client
	Path     string
	RawQuery string
	Proto    string

	Header Header

	// Params holds path parameters captured by the route match
	Params map[string]string

	// State is the process-wide shared application state
	State *state.Store

	// ID identifies the request in logs and the response
	ID string

	RemoteAddr string
}

// Param returns a path parameter
func (r *Request) Param(name string) (string, bool) {
	v, ok := r.Params[name]
	return v, ok
}

// Query parses the raw query string. Malformed pairs are skipped.
func (r *Request) Query() url.Values {
	values, _ := url.ParseQuery(r.RawQuery)
	return values
}

// SetParams merges matched path parameters into the request
func (r *Request) SetParams(params map[string]string) {
	if len(params) == 0 {
		return
	}
	if r.Params == nil {
		r.Params = make(map[string]string, len(params))
	}
	for k, v := range params {
		r.Params[k] = v
	}
}

// Payload is the request body. It is immutable, so one Payload can be shared
// by every extractor of a request and consumed any number of times.
type Payload struct {
	data []byte
}

// NewPayload wraps body bytes. The caller must not modify data afterwards.
func NewPayload(data []byte) *Payload {
	return &Payload{data: data}
}

// Bytes returns the body. The returned slice must not be modified.
func (p *Payload) Bytes() []byte {
	if p == nil {
		return nil
	}
	return p.data
}

// Len returns the body size
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.data)
}

// Reader returns a fresh reader over the body
func (p *Payload) Reader() io.Reader {
	return bytes.NewReader(p.Bytes())
}

// String returns the body as text
func (p *Payload) String() string {
	return string(p.Bytes())
}
