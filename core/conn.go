package core

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/searchktools/lean-server/core/http"
)

// conn serves exactly one request on an accepted connection:
// reading -> parsed -> dispatching -> responding -> closed. Any read or parse
// failure goes straight to closed without a response.
type conn struct {
	engine *Engine
	rwc    net.Conn
	remote string
	state  atomic.Int32
}

func newConn(e *Engine, rwc net.Conn) *conn {
	c := &conn{engine: e, rwc: rwc}
	if addr := rwc.RemoteAddr(); addr != nil {
		c.remote = addr.String()
	}
	return c
}

// State returns the current pipeline state
func (c *conn) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *conn) setState(s ConnState) {
	c.state.Store(int32(s))
}

func (c *conn) serve(ctx context.Context) {
	defer c.close()

	req, payload, err := c.readRequest()
	if err != nil {
		c.engine.stats.failed.Add(1)
		c.engine.logger.Printf("❌ %s: %v", c.remote, err)
		return
	}

	c.setState(StateDispatching)
	resp := c.dispatch(ctx, req, payload)

	c.setState(StateResponding)
	if err := c.respond(req, resp); err != nil {
		c.engine.stats.failed.Add(1)
		c.engine.logger.Printf("❌ [%s] %s: %v", req.ID, c.remote, err)
		return
	}

	c.engine.stats.served.Add(1)
}

// readRequest reads until the head is complete and Content-Length body bytes
// followed it, then parses the head
func (c *conn) readRequest() (*http.Request, *http.Payload, error) {
	c.setState(StateReading)

	e := c.engine
	chunk := e.bytePool.Get(e.readChunkSize)
	defer e.bytePool.Put(chunk)

	var (
		buf           []byte
		headEnd       = -1
		scanned       int
		contentLength int
	)

	for {
		n, rerr := c.rwc.Read(chunk)
		buf = append(buf, chunk[:n]...)

		if headEnd < 0 {
			// the terminator may straddle two reads
			start := max(0, scanned-3)
			if i := http.HeaderEnd(buf[start:]); i >= 0 {
				headEnd = start + i

				var err error
				if contentLength, err = http.ScanContentLength(buf[:headEnd]); err != nil {
					return nil, nil, err
				}
			}
			scanned = len(buf)
		}

		if headEnd >= 0 && len(buf)-headEnd-4 >= contentLength {
			break
		}

		// headEnd+4+contentLength may overflow
		if e.maxRequestBytes > 0 && (len(buf) > e.maxRequestBytes || (headEnd >= 0 && contentLength > e.maxRequestBytes-headEnd-4)) {
			return nil, nil, ErrRequestTooLarge
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil, nil, ErrConnectionClosed
			}
			return nil, nil, errors.Wrap(rerr, "read request")
		}
		if n == 0 {
			return nil, nil, ErrConnectionClosed
		}
	}

	c.setState(StateParsed)

	req, err := http.ParseRequest(buf[:headEnd])
	if err != nil {
		return nil, nil, err
	}
	req.RemoteAddr = c.remote

	bodyStart := headEnd + 4
	bodyEnd := bodyStart + contentLength

	return req, http.NewPayload(buf[bodyStart:bodyEnd:bodyEnd]), nil
}

// dispatch resolves the handler and turns whatever it produces, including
// errors and panics, into a response
func (c *conn) dispatch(ctx context.Context, req *http.Request, payload *http.Payload) (resp *http.Response) {
	e := c.engine

	h, params := e.registry.Lookup(req.Method, req.Path)
	req.SetParams(params)
	req.State = e.state
	req.ID = newRequestID()

	defer func() {
		if p := recover(); p != nil {
			e.logger.Printf("⚠️  [%s] panic in %s %s: %v", req.ID, req.Method, req.Path, p)
			resp = http.ErrorResponse(http.NewError(http.StatusInternalServerError, ""))
		}
	}()

	res, err := h.Serve(ctx, req, payload)
	if err != nil {
		return http.ErrorResponse(err)
	}
	if res == nil {
		return http.Status(http.StatusOK)
	}
	if resp = res.Respond(req); resp == nil {
		return http.Status(http.StatusOK)
	}

	return resp
}

// respond frames and writes the response. HEAD responses advertise the body
// length but carry no body.
func (c *conn) respond(req *http.Request, resp *http.Response) error {
	resp.SetHeader(http.HeaderContentLength, strconv.Itoa(len(resp.Body)))
	resp.SetHeader(http.HeaderConnection, "close")
	if req.Method == "HEAD" {
		resp.Body = nil
	}

	buf := c.engine.bytePool.Get(4096)
	_, err := c.rwc.Write(resp.AppendTo(buf[:0], req.Proto))
	c.engine.bytePool.Put(buf)

	return errors.Wrap(err, "write response")
}

func (c *conn) close() {
	c.setState(StateClosed)
	c.rwc.Close()
}
