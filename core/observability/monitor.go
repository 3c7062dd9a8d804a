// Package observability records per-route request metrics and flags routes
// that look unhealthy.
package observability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/searchktools/lean-server/core/http"
	"github.com/searchktools/lean-server/core/middleware"
)

// NotFoundRoute labels requests that matched no route
const NotFoundRoute = "NOT_FOUND"

// Thresholds used by Bottlenecks
const (
	SlowRouteThreshold  = 100 * time.Millisecond
	ErrorRateThreshold  = 0.05
	latencyBucketsCount = 10
)

// upper bounds of the latency buckets; the last bucket is unbounded
var bucketBounds = [latencyBucketsCount - 1]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
	10 * time.Second,
}

// Monitor collects request metrics per route. It is safe for concurrent use.
type Monitor struct {
	routes sync.Map // route label -> *routeMetrics

	totalRequests atomic.Uint64
	totalErrors   atomic.Uint64
}

type routeMetrics struct {
	count   atomic.Uint64
	errors  atomic.Uint64
	total   atomic.Uint64 // ns
	min     atomic.Uint64 // ns
	max     atomic.Uint64 // ns
	buckets [latencyBucketsCount]atomic.Uint64
}

// RouteStats is a snapshot of one route's metrics
type RouteStats struct {
	Route   string        `json:"route"`
	Count   uint64        `json:"count"`
	Errors  uint64        `json:"errors"`
	Avg     time.Duration `json:"avg_ns"`
	Min     time.Duration `json:"min_ns"`
	Max     time.Duration `json:"max_ns"`
	Buckets []uint64      `json:"buckets"`
}

// Bottleneck describes an unhealthy route
type Bottleneck struct {
	Type     string  `json:"type"` // "latency" or "errors"
	Route    string  `json:"route"`
	Severity int     `json:"severity"`
	Impact   float64 `json:"impact"`
	Details  string  `json:"details"`
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Record adds one request to route. Responses with a 5xx status count as
// errors.
func (m *Monitor) Record(route string, d time.Duration, status int) {
	val, ok := m.routes.Load(route)
	if !ok {
		val, _ = m.routes.LoadOrStore(route, &routeMetrics{})
	}
	rm := val.(*routeMetrics)

	ns := uint64(max(d, 0))

	rm.count.Add(1)
	rm.total.Add(ns)
	m.totalRequests.Add(1)

	if status >= 500 {
		rm.errors.Add(1)
		m.totalErrors.Add(1)
	}

	updateMin(&rm.min, ns)
	updateMax(&rm.max, ns)
	rm.buckets[bucketIndex(d)].Add(1)
}

func updateMin(v *atomic.Uint64, d uint64) {
	for {
		cur := v.Load()
		if cur != 0 && d >= cur {
			return
		}
		if v.CompareAndSwap(cur, d) {
			return
		}
	}
}

func updateMax(v *atomic.Uint64, d uint64) {
	for {
		cur := v.Load()
		if d <= cur {
			return
		}
		if v.CompareAndSwap(cur, d) {
			return
		}
	}
}

func bucketIndex(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d < bound {
			return i
		}
	}
	return len(bucketBounds)
}

// Middleware times every request passing through it and records it under
// route. Errors are converted to responses here so their status is known.
func (m *Monitor) Middleware(route string) middleware.Middleware {
	if route == "" {
		route = NotFoundRoute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(ctx context.Context, req *http.Request, p *http.Payload) (http.Responder, error) {
			start := time.Now()
			resp := middleware.Resolve(ctx, next, req, p)
			m.Record(route, time.Since(start), resp.Status)
			return resp, nil
		})
	}
}

// Totals returns the number of requests and 5xx responses recorded
func (m *Monitor) Totals() (requests, errors uint64) {
	return m.totalRequests.Load(), m.totalErrors.Load()
}

// Routes returns a snapshot of every route, sorted by label
func (m *Monitor) Routes() []RouteStats {
	var stats []RouteStats

	m.routes.Range(func(key, value any) bool {
		rm := value.(*routeMetrics)

		s := RouteStats{
			Route:   key.(string),
			Count:   rm.count.Load(),
			Errors:  rm.errors.Load(),
			Min:     time.Duration(rm.min.Load()),
			Max:     time.Duration(rm.max.Load()),
			Buckets: make([]uint64, latencyBucketsCount),
		}
		if s.Count > 0 {
			s.Avg = time.Duration(rm.total.Load() / s.Count)
		}
		for i := range rm.buckets {
			s.Buckets[i] = rm.buckets[i].Load()
		}

		stats = append(stats, s)
		return true
	})

	sort.Slice(stats, func(i, j int) bool { return stats[i].Route < stats[j].Route })
	return stats
}

// Bottlenecks lists routes whose average latency exceeds SlowRouteThreshold
// or whose error rate exceeds ErrorRateThreshold
func (m *Monitor) Bottlenecks() []Bottleneck {
	bottlenecks := make([]Bottleneck, 0)

	for _, s := range m.Routes() {
		if s.Count == 0 {
			continue
		}

		if s.Avg > SlowRouteThreshold {
			bottlenecks = append(bottlenecks, Bottleneck{
				Type:     "latency",
				Route:    s.Route,
				Severity: 8,
				Impact:   float64(s.Avg) / float64(SlowRouteThreshold) * 100,
				Details:  fmt.Sprintf("High latency (%v avg)", s.Avg),
			})
		}

		rate := float64(s.Errors) / float64(s.Count)
		if rate > ErrorRateThreshold {
			bottlenecks = append(bottlenecks, Bottleneck{
				Type:     "errors",
				Route:    s.Route,
				Severity: 10,
				Impact:   rate * 100,
				Details:  fmt.Sprintf("%.1f%% error rate", rate*100),
			})
		}
	}

	return bottlenecks
}
