package extract

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"

	"github.com/searchktools/lean-server/core/http"
	"github.com/searchktools/lean-server/core/router"
	"github.com/searchktools/lean-server/core/state"
)

// Extraction errors
var (
	ErrEmptyBody       = errors.New("empty body")
	ErrMissingParam    = errors.New("missing path parameter")
	ErrMissingQuery    = errors.New("missing query parameter")
	ErrMissingHeader   = errors.New("missing header")
	ErrUnsupportedType = errors.New("unsupported content type")
)

// Extractor derives one typed value from a request and its payload
type Extractor[T any] interface {
	Extract(ctx context.Context, req *http.Request, payload *http.Payload) (T, error)
}

// ExtractorFunc adapts a function to Extractor
type ExtractorFunc[T any] func(ctx context.Context, req *http.Request, payload *http.Payload) (T, error)

// Extract implements Extractor
func (f ExtractorFunc[T]) Extract(ctx context.Context, req *http.Request, payload *http.Payload) (T, error) {
	return f(ctx, req, payload)
}

// Error is a failed extraction. It responds with 400 Bad Request.
type Error struct {
	Source string // what was being extracted, e.g. "json body" or "path parameter id"
	Err    error
}

func (e *Error) Error() string {
	return e.Source + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode implements http.StatusCoder
func (e *Error) StatusCode() int {
	return http.StatusBadRequest
}

func fail(source string, err error) error {
	return &Error{Source: source, Err: err}
}

// Request extracts the request itself
func Request() Extractor[*http.Request] {
	return ExtractorFunc[*http.Request](func(_ context.Context, req *http.Request, _ *http.Payload) (*http.Request, error) {
		return req, nil
	})
}

// Body extracts the raw body bytes
func Body() Extractor[[]byte] {
	return ExtractorFunc[[]byte](func(_ context.Context, _ *http.Request, p *http.Payload) ([]byte, error) {
		return p.Bytes(), nil
	})
}

// Text extracts the body as a string
func Text() Extractor[string] {
	return ExtractorFunc[string](func(_ context.Context, _ *http.Request, p *http.Payload) (string, error) {
		return p.String(), nil
	})
}

// JSON decodes the body as JSON into a T
func JSON[T any]() Extractor[T] {
	return ExtractorFunc[T](func(_ context.Context, req *http.Request, p *http.Payload) (T, error) {
		var v T
		if p.Len() == 0 {
			return v, fail("json body", ErrEmptyBody)
		}
		if ct := req.Header.Get(http.HeaderContentType); ct != "" && !http.HasMediaType(ct, "application/json") {
			return v, fail("json body", errors.Wrap(ErrUnsupportedType, ct))
		}
		if err := json.Unmarshal(p.Bytes(), &v); err != nil {
			return v, fail("json body", err)
		}
		return v, nil
	})
}

// Protobuf decodes the body in protobuf wire format into a message created
// by newMsg
func Protobuf[T proto.Message](newMsg func() T) Extractor[T] {
	return ExtractorFunc[T](func(_ context.Context, _ *http.Request, p *http.Payload) (T, error) {
		msg := newMsg()
		if err := proto.Unmarshal(p.Bytes(), msg); err != nil {
			return msg, fail("protobuf body", err)
		}
		return msg, nil
	})
}

// Query extracts all query parameters
func Query() Extractor[url.Values] {
	return ExtractorFunc[url.Values](func(_ context.Context, req *http.Request, _ *http.Payload) (url.Values, error) {
		values, err := url.ParseQuery(req.RawQuery)
		if err != nil {
			return nil, fail("query", err)
		}
		return values, nil
	})
}

// QueryValue extracts one required query parameter
func QueryValue(name string) Extractor[string] {
	return ExtractorFunc[string](func(ctx context.Context, req *http.Request, p *http.Payload) (string, error) {
		values, err := Query().Extract(ctx, req, p)
		if err != nil {
			return "", err
		}
		if !values.Has(name) {
			return "", fail("query parameter "+name, ErrMissingQuery)
		}
		return values.Get(name), nil
	})
}

// Param extracts one path parameter
func Param(name string) Extractor[string] {
	return ExtractorFunc[string](func(_ context.Context, req *http.Request, _ *http.Payload) (string, error) {
		v, ok := req.Param(name)
		if !ok {
			return "", fail("path parameter "+name, ErrMissingParam)
		}
		return v, nil
	})
}

// ParamInt extracts one path parameter as a base 10 integer
func ParamInt(name string) Extractor[int64] {
	return ExtractorFunc[int64](func(ctx context.Context, req *http.Request, p *http.Payload) (int64, error) {
		s, err := Param(name).Extract(ctx, req, p)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fail("path parameter "+name, err)
		}
		return n, nil
	})
}

// Params extracts every path parameter. The returned map is a copy.
func Params() Extractor[map[string]string] {
	return ExtractorFunc[map[string]string](func(_ context.Context, req *http.Request, _ *http.Payload) (map[string]string, error) {
		params := make(map[string]string, len(req.Params))
		for k, v := range req.Params {
			params[k] = v
		}
		return params, nil
	})
}

// Wildcard extracts the path remainder captured by a ** pattern
func Wildcard() Extractor[string] {
	return Param(router.DeepWildcardParam)
}

// Header extracts one required header
func Header(name string) Extractor[string] {
	return ExtractorFunc[string](func(_ context.Context, req *http.Request, _ *http.Payload) (string, error) {
		if !req.Header.Has(name) {
			return "", fail("header "+name, ErrMissingHeader)
		}
		return req.Header.Get(name), nil
	})
}

// State extracts a shared state value. A missing value is a server
// misconfiguration and responds with 500.
func State[T any](key state.Key[T]) Extractor[T] {
	return ExtractorFunc[T](func(_ context.Context, req *http.Request, _ *http.Payload) (T, error) {
		v, ok := state.Get(req.State, key)
		if !ok {
			return v, http.Errorf(http.StatusInternalServerError, "state %q is not registered", key.Name())
		}
		return v, nil
	})
}

// Optional turns a failed extraction into a nil value
func Optional[T any](e Extractor[T]) Extractor[*T] {
	return ExtractorFunc[*T](func(ctx context.Context, req *http.Request, p *http.Payload) (*T, error) {
		v, err := e.Extract(ctx, req, p)
		if err != nil {
			return nil, nil
		}
		return &v, nil
	})
}

// Result never fails: it hands the extraction error to the handler instead
func Result[T any](e Extractor[T]) Extractor[Outcome[T]] {
	return ExtractorFunc[Outcome[T]](func(ctx context.Context, req *http.Request, p *http.Payload) (Outcome[T], error) {
		v, err := e.Extract(ctx, req, p)
		return Outcome[T]{Value: v, Err: err}, nil
	})
}

// Outcome is the value or error of an extraction wrapped by Result
type Outcome[T any] struct {
	Value T
	Err   error
}
