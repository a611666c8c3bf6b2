package observability

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates a new metrics registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

// NewCounter creates and registers a counter.
func (r *MetricsRegistry) NewCounter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

// NewGauge creates and registers a gauge.
func (r *MetricsRegistry) NewGauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := &Gauge{name: name, help: help}
	r.gauges[name] = g
	return g
}

// NewHistogram creates and registers a histogram.
func (r *MetricsRegistry) NewHistogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if buckets == nil {
		buckets = DefaultBuckets()
	}
	h := &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[name] = h
	return h
}

// DefaultBuckets returns default histogram buckets for latency in seconds.
func DefaultBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() { c.Add(1) }

// Add adds a value to the counter.
func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.Add(-1) }

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// ObserveDuration records a duration in the histogram.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler returns an HTTP handler serving Prometheus text format.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes all metrics in Prometheus text format, sorted by
// name for stable output.
func (r *MetricsRegistry) WritePrometheus(w http.ResponseWriter) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		c.mu.Lock()
		writeHeader(w, c.name, "counter", c.help)
		w.Write([]byte(c.name + " " + formatFloat(c.value) + "\n"))
		c.mu.Unlock()
	}
	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		g.mu.Lock()
		writeHeader(w, g.name, "gauge", g.help)
		w.Write([]byte(g.name + " " + formatFloat(g.value) + "\n"))
		g.mu.Unlock()
	}
	for _, name := range sortedKeys(r.histos) {
		h := r.histos[name]
		h.mu.Lock()
		writeHeader(w, h.name, "histogram", h.help)
		var cumulative uint64
		for i, bound := range h.buckets {
			cumulative += h.counts[i]
			w.Write([]byte(h.name + `_bucket{le="` + formatFloat(bound) + `"} ` + strconv.FormatUint(cumulative, 10) + "\n"))
		}
		w.Write([]byte(h.name + `_bucket{le="+Inf"} ` + strconv.FormatUint(h.count, 10) + "\n"))
		w.Write([]byte(h.name + "_sum " + formatFloat(h.sum) + "\n"))
		w.Write([]byte(h.name + "_count " + strconv.FormatUint(h.count, 10) + "\n"))
		h.mu.Unlock()
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeHeader(w http.ResponseWriter, name, metricType, help string) {
	w.Write([]byte("# HELP " + name + " " + help + "\n"))
	w.Write([]byte("# TYPE " + name + " " + metricType + "\n"))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Dedup-specific metrics

// DedupMetrics contains all pipeline metrics.
type DedupMetrics struct {
	Registry *MetricsRegistry

	// Range query metrics
	RangeQueriesTotal  *Counter
	RangeQueryDuration *Histogram
	RangeQueryErrors   *Counter
	NeighborsTotal     *Counter

	// Grouping metrics
	EdgesGauge      *Gauge
	GroupsGauge     *Gauge
	SingletonsGauge *Gauge

	// Run metrics
	RunsTotal      *Counter
	RunErrorsTotal *Counter
	RunDuration    *Histogram

	// Active workers gauge
	ActiveWorkers *Gauge
}

// NewDedupMetrics creates the pipeline metric set.
func NewDedupMetrics() *DedupMetrics {
	r := NewMetricsRegistry()

	return &DedupMetrics{
		Registry: r,

		RangeQueriesTotal:  r.NewCounter("dedup_range_queries_total", "Total range similarity queries"),
		RangeQueryDuration: r.NewHistogram("dedup_range_query_duration_seconds", "Range query duration", nil),
		RangeQueryErrors:   r.NewCounter("dedup_range_query_errors_total", "Total range query errors"),
		NeighborsTotal:     r.NewCounter("dedup_neighbors_total", "Total neighbors returned by range queries"),

		EdgesGauge:      r.NewGauge("dedup_graph_edges", "Edges in the latest duplicate graph"),
		GroupsGauge:     r.NewGauge("dedup_groups", "Groups in the latest run"),
		SingletonsGauge: r.NewGauge("dedup_singleton_groups", "Singleton groups in the latest run"),

		RunsTotal:      r.NewCounter("dedup_runs_total", "Total grouping runs"),
		RunErrorsTotal: r.NewCounter("dedup_run_errors_total", "Total failed grouping runs"),
		RunDuration:    r.NewHistogram("dedup_run_duration_seconds", "Grouping run duration", nil),

		ActiveWorkers: r.NewGauge("dedup_active_workers", "Number of active retrieval workers"),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *DedupMetrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RecordRangeQuery records one range similarity query.
func (m *DedupMetrics) RecordRangeQuery(duration time.Duration, neighbors int, err error) {
	m.RangeQueriesTotal.Inc()
	m.RangeQueryDuration.Observe(duration.Seconds())
	m.NeighborsTotal.Add(float64(neighbors))
	if err != nil {
		m.RangeQueryErrors.Inc()
	}
}

// RecordGrouping records the outcome of graph grouping.
func (m *DedupMetrics) RecordGrouping(edges, groups, singletons int) {
	m.EdgesGauge.Set(float64(edges))
	m.GroupsGauge.Set(float64(groups))
	m.SingletonsGauge.Set(float64(singletons))
}

// RecordRun records one full grouping run.
func (m *DedupMetrics) RecordRun(duration time.Duration, err error) {
	m.RunsTotal.Inc()
	m.RunDuration.Observe(duration.Seconds())
	if err != nil {
		m.RunErrorsTotal.Inc()
	}
}

// Global metrics instance
var globalMetrics *DedupMetrics
var metricsOnce sync.Once

// Metrics returns the global metrics instance.
func Metrics() *DedupMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewDedupMetrics()
	})
	return globalMetrics
}
