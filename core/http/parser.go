package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Parse errors. Every parse failure is returned as a *ParseError wrapping one
// of these.
var (
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrMalformedHeader      = errors.New("malformed header line")
	ErrUnsupportedVersion   = errors.New("unsupported HTTP version")
	ErrInvalidContentLength = errors.New("invalid Content-Length")
)

var headerTerminator = []byte("\r\n\r\n")

// ParseError reports a request that cannot be parsed
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return "parse request: " + e.Err.Error()
	}
	return fmt.Sprintf("parse request: %v: %q", e.Err, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(err error, reason string) error {
	// Keep the echoed input short in logs
	if len(reason) > 64 {
		reason = reason[:64] + "..."
	}
	return &ParseError{Reason: reason, Err: err}
}

// HeaderEnd returns the index of the blank line terminating the header block,
// or -1 when it has not arrived yet. The body starts at HeaderEnd(buf)+4.
func HeaderEnd(buf []byte) int {
	return bytes.Index(buf, headerTerminator)
}

// ScanContentLength finds the Content-Length in a raw header block (header
// names compared case-insensitively). It returns 0 when the header is absent.
func ScanContentLength(head []byte) (int, error) {
	length := -1

	for len(head) > 0 {
		var line []byte
		if i := bytes.Index(head, []byte("\r\n")); i >= 0 {
			line, head = head[:i], head[i+2:]
		} else {
			line, head = head, nil
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 || !strings.EqualFold(string(line[:colon]), HeaderContentLength) {
			continue
		}

		n, err := parseContentLength(string(bytes.TrimSpace(line[colon+1:])))
		if err != nil {
			return 0, err
		}
		if length >= 0 && length != n {
			return 0, parseErr(ErrInvalidContentLength, "conflicting values")
		}
		length = n
	}

	if length < 0 {
		return 0, nil
	}
	return length, nil
}

func parseContentLength(v string) (int, error) {
	if v == "" {
		return 0, parseErr(ErrInvalidContentLength, v)
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return 0, parseErr(ErrInvalidContentLength, v)
		}
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, parseErr(ErrInvalidContentLength, v)
	}
	return n, nil
}

// ParseRequest parses the request line and header lines. head is everything
// before the terminating blank line.
func ParseRequest(head []byte) (*Request, error) {
	lineEnd := bytes.Index(head, []byte("\r\n"))
	if lineEnd == -1 {
		lineEnd = len(head)
	}

	req, err := parseRequestLine(string(head[:lineEnd]))
	if err != nil {
		return nil, err
	}

	req.Header = make(Header)
	if lineEnd < len(head) {
		if err := parseHeaders(req.Header, head[lineEnd+2:]); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// parseRequestLine parses METHOD SP TARGET SP VERSION
func parseRequestLine(line string) (*Request, error) {
	method, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, parseErr(ErrMalformedRequestLine, line)
	}
	target, proto, ok := strings.Cut(rest, " ")
	if !ok || target == "" || strings.IndexByte(proto, ' ') >= 0 {
		return nil, parseErr(ErrMalformedRequestLine, line)
	}

	// A method is an HTTP token, the same grammar as a header field name
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, parseErr(ErrMalformedRequestLine, line)
	}

	if proto != ProtoHTTP10 && proto != ProtoHTTP11 {
		return nil, parseErr(ErrUnsupportedVersion, proto)
	}

	req := &Request{
		Method: method,
		Target: target,
		Proto:  proto,
	}

	switch {
	case target[0] == '/':
		req.Path, req.RawQuery, _ = strings.Cut(target, "?")
	case target == "*":
		req.Path = target
	default:
		// absolute-form, e.g. from a proxy
		u, err := url.ParseRequestURI(target)
		if err != nil || u.Host == "" {
			return nil, parseErr(ErrMalformedRequestLine, line)
		}
		req.Path = u.EscapedPath()
		if req.Path == "" {
			req.Path = "/"
		}
		req.RawQuery = u.RawQuery
	}

	return req, nil
}

// parseHeaders parses CRLF-separated "name: value" lines
func parseHeaders(h Header, data []byte) error {
	for len(data) > 0 {
		var line []byte
		if i := bytes.Index(data, []byte("\r\n")); i >= 0 {
			line, data = data[:i], data[i+2:]
		} else {
			line, data = data, nil
		}

		if len(line) == 0 {
			continue
		}

		// obs-fold is not supported
		if line[0] == ' ' || line[0] == '\t' {
			return parseErr(ErrMalformedHeader, string(line))
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return parseErr(ErrMalformedHeader, string(line))
		}

		name := string(line[:colon])
		value := string(bytes.Trim(line[colon+1:], " \t"))

		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return parseErr(ErrMalformedHeader, string(line))
		}

		h.Add(name, value)
	}

	return nil
}
