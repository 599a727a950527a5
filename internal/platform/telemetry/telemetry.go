// Package telemetry collects request and domain metrics and serves them in
// the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram is a thread-safe histogram with configurable bucket boundaries.
// Bucket counts are non-cumulative in storage; cumulative counts are computed
// at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64 // one per boundary, non-cumulative
	count        int64
	sum          uint64     // stored as math.Float64bits for atomic add
	mu           sync.Mutex // protects bucketCounts
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

// Observe records a single value.
func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
	// Above every boundary: only the +Inf bucket, derived from count.
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	raw := make([]int64, len(h.bucketCounts))
	copy(raw, h.bucketCounts)
	h.mu.Unlock()

	cum := make([]int64, len(raw))
	var running int64
	for i, c := range raw {
		running += c
		cum[i] = running
	}
	return cum
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		newVal := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(newVal)) {
			return
		}
	}
}

// LabelsKey builds the map key for a request histogram.
func LabelsKey(method, route, statusCode string) string {
	return method + "|" + route + "|" + statusCode
}

// defaultDurationBuckets are request duration boundaries in seconds.
var defaultDurationBuckets = []float64{
	0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0,
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// GaugeFunc reports a current value at scrape time.
type GaugeFunc func() int64

type gauge struct {
	name string
	help string
	fn   GaugeFunc
}

// Provider holds every metric the server exports.
type Provider struct {
	mu       sync.RWMutex
	requests map[string]*histogram
	ops      map[string]int64
	gauges   []gauge
	active   int64
}

func NewProvider() *Provider {
	return &Provider{
		requests: make(map[string]*histogram),
		ops:      make(map[string]int64),
	}
}

// RegisterGauge adds a gauge evaluated on every scrape. name must be a valid
// Prometheus metric name.
func (p *Provider) RegisterGauge(name, help string, fn GaugeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gauges = append(p.gauges, gauge{name: name, help: help, fn: fn})
}

// CountOperation increments the committed operation counter for op.
func (p *Provider) CountOperation(op string) {
	p.mu.Lock()
	p.ops[op]++
	p.mu.Unlock()
}

// OperationCount returns how often op has been counted.
func (p *Provider) OperationCount(op string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ops[op]
}

// RequestHistogram returns the histogram for the given labels, or nil.
func (p *Provider) RequestHistogram(method, route, status string) *histogram {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.requests[LabelsKey(method, route, status)]
}

func (p *Provider) observeRequest(key string, seconds float64) {
	p.mu.RLock()
	h, ok := p.requests[key]
	p.mu.RUnlock()
	if !ok {
		p.mu.Lock()
		if h, ok = p.requests[key]; !ok {
			h = newHistogram(defaultDurationBuckets)
			p.requests[key] = h
		}
		p.mu.Unlock()
	}
	h.Observe(seconds)
}

// MetricsMiddleware records the duration of every request labeled by method,
// route pattern and status code.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&p.active, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&p.active, -1)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			code := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
			} else if err != nil && !c.Response().Committed {
				code = http.StatusInternalServerError
			}
			p.observeRequest(LabelsKey(c.Request().Method, route, fmt.Sprintf("%d", code)), time.Since(start).Seconds())
			return err
		}
	}
}

// ---------------------------------------------------------------------------
// Prometheus exposition
// ---------------------------------------------------------------------------

// PrometheusHandler serves every metric in text exposition format.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, p.Render())
	}
}

// Render writes all metrics. Series are sorted so output is stable.
func (p *Provider) Render() string {
	var b strings.Builder

	p.mu.RLock()
	reqKeys := sortedKeys(p.requests)
	requests := make(map[string]*histogram, len(p.requests))
	for k, v := range p.requests {
		requests[k] = v
	}
	opKeys := sortedKeys(p.ops)
	ops := make(map[string]int64, len(p.ops))
	for k, v := range p.ops {
		ops[k] = v
	}
	gauges := append([]gauge(nil), p.gauges...)
	p.mu.RUnlock()

	const reqName = "http_server_request_duration_seconds"
	fmt.Fprintf(&b, "# HELP %s Duration of HTTP requests in seconds.\n", reqName)
	fmt.Fprintf(&b, "# TYPE %s histogram\n", reqName)
	for _, key := range reqKeys {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 {
			continue
		}
		labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
		writeHistogram(&b, reqName, labels, requests[key])
	}
	b.WriteByte('\n')

	b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
	b.WriteString("# TYPE http_server_active_requests gauge\n")
	fmt.Fprintf(&b, "http_server_active_requests %d\n\n", atomic.LoadInt64(&p.active))

	b.WriteString("# HELP hqrms_operations_total Committed orchestrator operations.\n")
	b.WriteString("# TYPE hqrms_operations_total counter\n")
	for _, op := range opKeys {
		fmt.Fprintf(&b, "hqrms_operations_total{op=%q} %d\n", op, ops[op])
	}
	b.WriteByte('\n')

	for _, g := range gauges {
		fmt.Fprintf(&b, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(&b, "# TYPE %s gauge\n", g.name)
		fmt.Fprintf(&b, "%s %d\n\n", g.name, g.fn())
	}

	return b.String()
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	total := h.Count()

	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
