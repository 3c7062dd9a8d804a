package middleware

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/lean-server/core/http"
)

func textHandler(body string) http.Handler {
	return http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
		return http.Text(http.StatusOK, body), nil
	})
}

func newRequest(headers map[string]string) *http.Request {
	req := &http.Request{Method: "GET", Path: "/", Target: "/", Header: make(http.Header)}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func run(t *testing.T, h http.Handler, req *http.Request) *http.Response {
	t.Helper()

	res, err := h.Serve(context.Background(), req, nil)
	if err != nil {
		return http.ErrorResponse(err)
	}
	require.NotNil(t, res)
	return res.Respond(req)
}

func TestPipelineOrder(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(ctx context.Context, req *http.Request, p *http.Payload) (http.Responder, error) {
				order = append(order, name+" in")
				res, err := next.Serve(ctx, req, p)
				order = append(order, name+" out")
				return res, err
			})
		}
	}

	p := NewPipeline(trace("a"), nil).Use(trace("b"))
	assert.Equal(t, 2, p.Len())

	run(t, p.Then(textHandler("x")), newRequest(nil))
	assert.Equal(t, []string{"a in", "b in", "b out", "a out"}, order)
}

func TestPipelineEmpty(t *testing.T) {
	final := textHandler("x")
	assert.Equal(t, "x", string(run(t, NewPipeline().Then(final), newRequest(nil)).Body))
}

func TestChainAbort(t *testing.T) {
	reached := false
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
			return nil, http.NewError(http.StatusForbidden, "")
		})
	}
	final := http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
		reached = true
		return nil, nil
	})

	resp := run(t, Chain(deny)(final), newRequest(nil))
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{"responder", func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
			return http.Text(http.StatusCreated, "ok"), nil
		}, http.StatusCreated},
		{"error", func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
			return nil, http.NewError(http.StatusConflict, "taken")
		}, http.StatusConflict},
		{"nil responder", func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
			return nil, nil
		}, http.StatusOK},
		{"nil response", func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
			return http.ResponderFunc(func(*http.Request) *http.Response { return nil }), nil
		}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Resolve(context.Background(), tt.handler, newRequest(nil), nil)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.NotNil(t, resp.Header)
		})
	}
}

func TestCompressionConfig(t *testing.T) {
	_, err := Compression(CompressionConfig{Level: -3})
	assert.ErrorIs(t, err, ErrInvalidCompressionLevel)

	_, err = Compression(CompressionConfig{Level: 10})
	assert.ErrorIs(t, err, ErrInvalidCompressionLevel)

	for _, cfg := range []CompressionConfig{{}, {Level: flate.BestSpeed}, {Level: flate.HuffmanOnly}, {MinLength: 1024}} {
		_, err := Compression(cfg)
		assert.NoError(t, err)
	}
}

func TestCompression(t *testing.T) {
	body := strings.Repeat("hello world ", 20)

	mw, err := Compression(CompressionConfig{})
	require.NoError(t, err)

	t.Run("gzip", func(t *testing.T) {
		resp := run(t, mw(textHandler(body)), newRequest(map[string]string{"Accept-Encoding": "gzip, deflate"}))
		assert.Equal(t, "gzip", resp.Header.Get(http.HeaderContentEncoding))
		assert.Equal(t, http.HeaderAcceptEncoding, resp.Header.Get(http.HeaderVary))

		zr, err := gzip.NewReader(bytes.NewReader(resp.Body))
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, body, string(plain))
	})

	t.Run("deflate", func(t *testing.T) {
		resp := run(t, mw(textHandler(body)), newRequest(map[string]string{"Accept-Encoding": "deflate"}))
		assert.Equal(t, "deflate", resp.Header.Get(http.HeaderContentEncoding))

		plain, err := io.ReadAll(flate.NewReader(bytes.NewReader(resp.Body)))
		require.NoError(t, err)
		assert.Equal(t, body, string(plain))
	})

	t.Run("no accept encoding", func(t *testing.T) {
		resp := run(t, mw(textHandler(body)), newRequest(nil))
		assert.False(t, resp.Header.Has(http.HeaderContentEncoding))
		assert.Equal(t, body, string(resp.Body))
	})

	t.Run("already compressed media type", func(t *testing.T) {
		h := http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
			return http.Bytes(http.StatusOK, "image/png", []byte(body)), nil
		})
		resp := run(t, mw(h), newRequest(map[string]string{"Accept-Encoding": "gzip"}))
		assert.False(t, resp.Header.Has(http.HeaderContentEncoding))
	})

	t.Run("below min length", func(t *testing.T) {
		small, err := Compression(CompressionConfig{MinLength: 1024})
		require.NoError(t, err)
		resp := run(t, small(textHandler(body)), newRequest(map[string]string{"Accept-Encoding": "gzip"}))
		assert.Equal(t, body, string(resp.Body))
	})

	t.Run("error responses are compressed too", func(t *testing.T) {
		h := http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
			return nil, http.NewError(http.StatusConflict, body)
		})
		resp := run(t, mw(h), newRequest(map[string]string{"Accept-Encoding": "gzip"}))
		assert.Equal(t, http.StatusConflict, resp.Status)
		assert.Equal(t, "gzip", resp.Header.Get(http.HeaderContentEncoding))
	})
}

func TestSelectEncoding(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"", ""},
		{"gzip", "gzip"},
		{"deflate", "deflate"},
		{"gzip, deflate", "gzip"},
		{"deflate;q=1.0, gzip;q=0.5", "deflate"},
		{"gzip;q=0, deflate", "deflate"},
		{"gzip;q=0, deflate;q=0", ""},
		{"*", "gzip"},
		{"br", ""},
		{"GZIP", "gzip"},
		{"gzip;q=abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			assert.Equal(t, tt.want, selectEncoding(tt.accept))
		})
	}
}

func TestRecovery(t *testing.T) {
	var recovered any
	mw := Recovery(RecoveryConfig{LogFunc: func(_ *http.Request, v any) { recovered = v }})

	h := http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
		panic("boom")
	})

	resp := run(t, mw(h), newRequest(nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Internal Server Error", string(resp.Body))
	assert.Equal(t, "boom", recovered)

	t.Run("passes through normal responses", func(t *testing.T) {
		resp := run(t, mw(textHandler("ok")), newRequest(nil))
		assert.Equal(t, "ok", string(resp.Body))
	})

	t.Run("default logger", func(t *testing.T) {
		var buf bytes.Buffer
		prev := log.Writer()
		log.SetOutput(&buf)
		defer log.SetOutput(prev)

		resp := run(t, Recovery(RecoveryConfig{})(h), newRequest(nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.Contains(t, buf.String(), "boom")
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates uuid v7", func(t *testing.T) {
		req := newRequest(nil)
		resp := run(t, RequestID(RequestIDConfig{})(textHandler("x")), req)

		id := resp.Header.Get(DefaultRequestIDHeader)
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		assert.Equal(t, id, req.ID)
	})

	t.Run("keeps server assigned id", func(t *testing.T) {
		req := newRequest(map[string]string{DefaultRequestIDHeader: "client"})
		req.ID = "server"
		resp := run(t, RequestID(RequestIDConfig{})(textHandler("x")), req)
		assert.Equal(t, "server", resp.Header.Get(DefaultRequestIDHeader))
	})

	t.Run("trusts incoming", func(t *testing.T) {
		req := newRequest(map[string]string{"X-Trace-ID": "client"})
		req.ID = "server"
		mw := RequestID(RequestIDConfig{HeaderName: "X-Trace-ID", TrustIncoming: true})
		resp := run(t, mw(textHandler("x")), req)
		assert.Equal(t, "client", resp.Header.Get("X-Trace-ID"))
		assert.Equal(t, "client", req.ID)
	})

	t.Run("custom generator", func(t *testing.T) {
		mw := RequestID(RequestIDConfig{Generate: func(*http.Request) string { return "fixed" }})
		resp := run(t, mw(textHandler("x")), newRequest(nil))
		assert.Equal(t, "fixed", resp.Header.Get(DefaultRequestIDHeader))
	})

	t.Run("uuid v4", func(t *testing.T) {
		parsed, err := uuid.Parse(GenerateUUIDv4(nil))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf, "", 0)

	req := newRequest(nil)
	req.ID = "abc"
	req.Target = "/echo?x=1"

	resp := run(t, Logger(l)(textHandler("hello")), req)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, buf.String(), "[abc] GET /echo?x=1 200 5B")
}

func TestCORS(t *testing.T) {
	mw := CORS(CORSConfig{AllowedOrigins: []string{"https://example.com"}})

	t.Run("allowed origin", func(t *testing.T) {
		resp := run(t, mw(textHandler("x")), newRequest(map[string]string{"Origin": "https://example.com"}))
		assert.Equal(t, "https://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", resp.Header.Get(http.HeaderVary))
		assert.Equal(t, "x", string(resp.Body))
	})

	t.Run("preflight", func(t *testing.T) {
		req := newRequest(map[string]string{"Origin": "https://example.com", "Access-Control-Request-Method": "POST"})
		req.Method = "OPTIONS"
		resp := run(t, mw(textHandler("x")), req)
		assert.Equal(t, http.StatusNoContent, resp.Status)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("other origin", func(t *testing.T) {
		resp := run(t, mw(textHandler("x")), newRequest(map[string]string{"Origin": "https://evil.com"}))
		assert.False(t, resp.Header.Has("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		resp := run(t, CORS(CORSConfig{AllowedOrigins: []string{"*"}})(textHandler("x")), newRequest(map[string]string{"Origin": "https://a.com"}))
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.False(t, resp.Header.Has(http.HeaderVary))
	})
}
