package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for Level1 block production.
// All observe helpers are nil-safe so library callers that do not care
// about metrics can pass a nil *Metrics straight through.
type Metrics struct {
	SourcesOpen prometheus.Gauge
	BlocksRead  *prometheus.CounterVec   // labels: format={netcdf,ascii}
	ReadErrors  *prometheus.CounterVec   // labels: format
	BlockRead   *prometheus.HistogramVec // labels: format
	PixelsRead  prometheus.Counter
	Flagged     *prometheus.CounterVec // labels: flag={land,invalid}
}

// NewMetrics creates and registers all reader metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourcesOpen,
		m.BlocksRead,
		m.ReadErrors,
		m.BlockRead,
		m.PixelsRead,
		m.Flagged,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourcesOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oceancolor_l1",
			Name:      "sources_open",
			Help:      "Number of currently open Level1 sources.",
		}),
		BlocksRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oceancolor_l1",
			Name:      "blocks_read_total",
			Help:      "Total blocks produced, by source format.",
		}, []string{"format"}),
		ReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oceancolor_l1",
			Name:      "read_errors_total",
			Help:      "Total failed block reads, by source format.",
		}, []string{"format"}),
		BlockRead: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oceancolor_l1",
			Name:      "block_read_duration_seconds",
			Help:      "Duration of a single block read.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"format"}),
		PixelsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oceancolor_l1",
			Name:      "pixels_read_total",
			Help:      "Total pixels delivered in produced blocks.",
		}),
		Flagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oceancolor_l1",
			Name:      "pixels_flagged_total",
			Help:      "Pixels carrying a quality flag, by flag name.",
		}, []string{"flag"}),
	}
}

// SourceOpened records a successful source construction.
func (m *Metrics) SourceOpened() {
	if m == nil {
		return
	}
	m.SourcesOpen.Inc()
}

// SourceClosed records a source release.
func (m *Metrics) SourceClosed() {
	if m == nil {
		return
	}
	m.SourcesOpen.Dec()
}

// ObserveBlock records a successful block read of the given pixel count.
func (m *Metrics) ObserveBlock(format string, pixels int, d time.Duration) {
	if m == nil {
		return
	}
	m.BlocksRead.WithLabelValues(format).Inc()
	m.PixelsRead.Add(float64(pixels))
	m.BlockRead.WithLabelValues(format).Observe(d.Seconds())
}

// ObserveReadError records a failed block read.
func (m *Metrics) ObserveReadError(format string) {
	if m == nil {
		return
	}
	m.ReadErrors.WithLabelValues(format).Inc()
}

// ObserveFlagged records flagged pixel counts for a produced block.
func (m *Metrics) ObserveFlagged(flag string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Flagged.WithLabelValues(flag).Add(float64(n))
}
