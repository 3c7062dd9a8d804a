package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/lean-server/core/http"
)

func TestMonitorRecord(t *testing.T) {
	m := NewMonitor()

	m.Record("GET /api", 10*time.Millisecond, 200)
	m.Record("GET /api", 20*time.Millisecond, 200)
	m.Record("GET /api", 30*time.Millisecond, 503)

	routes := m.Routes()
	require.Len(t, routes, 1)

	s := routes[0]
	assert.Equal(t, "GET /api", s.Route)
	assert.Equal(t, uint64(3), s.Count)
	assert.Equal(t, uint64(1), s.Errors)
	assert.Equal(t, 20*time.Millisecond, s.Avg)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 30*time.Millisecond, s.Max)
	assert.Equal(t, uint64(3), s.Buckets[3], "all three fall in [10ms, 50ms)")

	requests, errs := m.Totals()
	assert.Equal(t, uint64(3), requests)
	assert.Equal(t, uint64(1), errs)
}

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{999 * time.Microsecond, 0},
		{time.Millisecond, 1},
		{7 * time.Millisecond, 2},
		{99 * time.Millisecond, 4},
		{time.Second, 7},
		{time.Minute, 9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketIndex(tt.d), tt.d.String())
	}
}

func TestMonitorBottlenecks(t *testing.T) {
	m := NewMonitor()

	for i := 0; i < 100; i++ {
		m.Record("GET /slow", 150*time.Millisecond, 200)
		m.Record("GET /fast", time.Millisecond, 200)
	}
	for i := 0; i < 10; i++ {
		m.Record("POST /flaky", time.Millisecond, 500)
	}
	m.Record("POST /flaky", time.Millisecond, 200)

	var got []string
	for _, b := range m.Bottlenecks() {
		got = append(got, b.Type+" "+b.Route)
	}
	assert.ElementsMatch(t, []string{"latency GET /slow", "errors POST /flaky"}, got)
}

func TestMonitorMiddleware(t *testing.T) {
	m := NewMonitor()

	ok := http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
		return http.Text(http.StatusCreated, "made"), nil
	})
	failing := http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
		return nil, errors.New("boom")
	})
	empty := http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
		return nil, nil
	})
	nilResponse := http.HandlerFunc(func(context.Context, *http.Request, *http.Payload) (http.Responder, error) {
		return http.ResponderFunc(func(*http.Request) *http.Response { return nil }), nil
	})

	req := &http.Request{Method: "GET", Path: "/"}

	res, err := m.Middleware("POST /items")(ok).Serve(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Respond(req).Status)

	res, err = m.Middleware("GET /broken")(failing).Serve(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.Respond(req).Status)

	res, err = m.Middleware("")(empty).Serve(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Respond(req).Status)

	require.NotPanics(t, func() {
		res, err = m.Middleware("")(nilResponse).Serve(context.Background(), req, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Respond(req).Status)

	routes := m.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, "GET /broken", routes[0].Route)
	assert.Equal(t, uint64(1), routes[0].Errors)
	assert.Equal(t, NotFoundRoute, routes[1].Route)
	assert.Equal(t, uint64(2), routes[1].Count)
	assert.Zero(t, routes[1].Errors)
	assert.Equal(t, "POST /items", routes[2].Route)
	assert.Zero(t, routes[2].Errors)
}

func TestMonitorConcurrentRecord(t *testing.T) {
	m := NewMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Record("GET /hot", time.Duration(j)*time.Microsecond, 200)
			}
		}()
	}
	wg.Wait()

	s := m.Routes()[0]
	assert.Equal(t, uint64(8000), s.Count)
	assert.Equal(t, 999*time.Microsecond, s.Max)
}

func BenchmarkRecord(b *testing.B) {
	m := NewMonitor()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Record("GET /api", 10*time.Millisecond, 200)
	}
}
