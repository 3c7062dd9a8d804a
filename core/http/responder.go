package http

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
)

// Content types set by the built-in responders
const (
	MIMETextPlain   = "text/plain; charset=utf-8"
	MIMEJSON        = "application/json"
	MIMEProtobuf    = "application/x-protobuf"
	MIMEOctetStream = "application/octet-stream"
)

// Responder converts a handler result into a response. *Response and the
// values returned by Text, Bytes, JSON, Proto and Status implement it;
// applications implement it for their own result types.
type Responder interface {
	Respond(req *Request) *Response
}

// ResponderFunc adapts a function to Responder
type ResponderFunc func(req *Request) *Response

// Respond implements Responder
func (f ResponderFunc) Respond(req *Request) *Response {
	return f(req)
}

// Text responds with a plain text body
func Text(status int, s string) *Response {
	return NewResponse(status).
		SetHeader(HeaderContentType, MIMETextPlain).
		SetBody([]byte(s))
}

// Bytes responds with a raw body of the given content type
func Bytes(status int, contentType string, data []byte) *Response {
	if contentType == "" {
		contentType = MIMEOctetStream
	}
	return NewResponse(status).
		SetHeader(HeaderContentType, contentType).
		SetBody(data)
}

// Status responds with an empty body
func Status(status int) *Response {
	return NewResponse(status)
}

type jsonResponder struct {
	status int
	value  any
}

// JSON responds with v encoded as JSON. Encoding failures produce a 500.
func JSON(status int, v any) Responder {
	return jsonResponder{status: status, value: v}
}

func (j jsonResponder) Respond(*Request) *Response {
	data, err := json.Marshal(j.value)
	if err != nil {
		return ErrorResponse(Errorf(StatusInternalServerError, "JSON marshal error: %v", err))
	}
	return Bytes(j.status, MIMEJSON, data)
}

type protoResponder struct {
	status int
	msg    proto.Message
}

// Proto responds with msg in protobuf wire format. Encoding failures produce
// a 500.
func Proto(status int, msg proto.Message) Responder {
	return protoResponder{status: status, msg: msg}
}

func (p protoResponder) Respond(*Request) *Response {
	data, err := proto.Marshal(p.msg)
	if err != nil {
		return ErrorResponse(Errorf(StatusInternalServerError, "protobuf marshal error: %v", err))
	}
	return Bytes(p.status, MIMEProtobuf, data)
}
