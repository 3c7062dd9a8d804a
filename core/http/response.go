package http

import (
	"io"
	"strconv"
)

// Response is a structured HTTP response
type Response struct {
	Status int
	Header Header
	Body   []byte
}

// NewResponse creates an empty response with the given status
func NewResponse(status int) *Response {
	return &Response{
		Status: status,
		Header: make(Header),
	}
}

// SetHeader sets a header and returns the response for chaining
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(Header)
	}
	r.Header.Set(key, value)
	return r
}

// SetBody replaces the body and returns the response for chaining
func (r *Response) SetBody(body []byte) *Response {
	r.Body = body
	return r
}

// Respond implements Responder
func (r *Response) Respond(*Request) *Response {
	return r
}

// AppendTo serializes the response onto buf. proto is echoed in the status
// line; an empty proto defaults to HTTP/1.1. Headers are written as stored,
// the caller is responsible for framing headers like Content-Length.
func (r *Response) AppendTo(buf []byte, proto string) []byte {
	if proto == "" {
		proto = ProtoHTTP11
	}

	buf = append(buf, proto...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(r.Status), 10)
	buf = append(buf, ' ')
	buf = append(buf, StatusText(r.Status)...)
	buf = append(buf, "\r\n"...)

	for _, key := range r.Header.sortedKeys() {
		for _, value := range r.Header[key] {
			buf = append(buf, key...)
			buf = append(buf, ": "...)
			buf = append(buf, value...)
			buf = append(buf, "\r\n"...)
		}
	}

	buf = append(buf, "\r\n"...)
	buf = append(buf, r.Body...)

	return buf
}

// Write serializes the response to w in a single write
func (r *Response) Write(w io.Writer, proto string) error {
	_, err := w.Write(r.AppendTo(make([]byte, 0, 256+len(r.Body)), proto))
	return err
}
