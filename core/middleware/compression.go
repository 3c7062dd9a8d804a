package middleware

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/searchktools/lean-server/core/http"
)

// ErrInvalidCompressionLevel is returned when CompressionConfig.Level is out
// of range
var ErrInvalidCompressionLevel = errors.New("compression: invalid compression level")

// CompressionConfig configures the Compression middleware
type CompressionConfig struct {
	// Level applies to gzip and deflate. Zero means flate.DefaultCompression.
	Level int

	// MinLength is the smallest body that gets compressed
	MinLength int
}

type compressor interface {
	io.WriteCloser
	Reset(w io.Writer)
}

// Compression compresses response bodies with gzip or deflate when the client
// accepts one of them. Bodies that already carry a Content-Encoding, are of an
// inherently compressed media type, or are shorter than MinLength are left
// alone.
func Compression(cfg CompressionConfig) (Middleware, error) {
	level := cfg.Level
	if level == 0 {
		level = flate.DefaultCompression
	}
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, ErrInvalidCompressionLevel
	}

	pools := map[string]*sync.Pool{
		"gzip": {New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, level)
			return w
		}},
		"deflate": {New: func() any {
			w, _ := flate.NewWriter(io.Discard, level)
			return w
		}},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(ctx context.Context, req *http.Request, payload *http.Payload) (http.Responder, error) {
			encoding := selectEncoding(req.Header.Get(http.HeaderAcceptEncoding))
			if encoding == "" {
				return next.Serve(ctx, req, payload)
			}

			resp := Resolve(ctx, next, req, payload)
			if len(resp.Body) == 0 || len(resp.Body) < cfg.MinLength ||
				resp.Header.Has(http.HeaderContentEncoding) ||
				isCompressedContentType(resp.Header.Get(http.HeaderContentType)) {
				return resp, nil
			}

			body, err := compress(pools[encoding], resp.Body)
			if err != nil {
				return nil, errors.Wrap(err, encoding)
			}

			resp.Header.Set(http.HeaderContentEncoding, encoding)
			resp.Header.Add(http.HeaderVary, http.HeaderAcceptEncoding)
			resp.Header.Del(http.HeaderContentLength)
			resp.Body = body

			return resp, nil
		})
	}, nil
}

func compress(pool *sync.Pool, data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := pool.Get().(compressor)
	defer pool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// selectEncoding returns "gzip", "deflate" or "" for an Accept-Encoding value.
// gzip wins ties.
func selectEncoding(accept string) string {
	var (
		gzipQ    float64 = -1
		deflateQ float64 = -1
		wildQ    float64 = -1
	)

	for _, part := range strings.Split(accept, ",") {
		name, quality := parseEncoding(strings.TrimSpace(part))
		q := parseQuality(quality)

		switch strings.ToLower(name) {
		case "gzip":
			gzipQ = q
		case "deflate":
			deflateQ = q
		case "*":
			wildQ = q
		}
	}

	if gzipQ < 0 && wildQ >= 0 {
		gzipQ = wildQ
	}
	if deflateQ < 0 && wildQ >= 0 {
		deflateQ = wildQ
	}

	if gzipQ > 0 && gzipQ >= deflateQ {
		return "gzip"
	}
	if deflateQ > 0 {
		return "deflate"
	}

	return ""
}

// parseQuality converts a q value; empty means 1
func parseQuality(s string) float64 {
	if s == "" {
		return 1.0
	}

	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return q
}

// parseEncoding splits "gzip;q=0.8" into ("gzip", "0.8")
func parseEncoding(s string) (encoding, quality string) {
	encoding, params, ok := strings.Cut(s, ";")
	if !ok {
		return strings.TrimSpace(encoding), ""
	}

	if key, val, found := strings.Cut(strings.TrimSpace(params), "="); found && strings.TrimSpace(key) == "q" {
		return strings.TrimSpace(encoding), strings.TrimSpace(val)
	}

	return strings.TrimSpace(encoding), ""
}

var compressedContentTypes = []string{
	"image/",
	"video/",
	"audio/",
	"application/zip",
	"application/gzip",
	"application/x-gzip",
	"application/x-bzip2",
	"application/x-xz",
	"application/zstd",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
}

func isCompressedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))

	for _, prefix := range compressedContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}

	return false
}
