package engine

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricBuildsTotal   = "crosstab_builds_total"
	metricBuildDuration = "crosstab_build_duration_seconds"
	metricPatternsTotal = "crosstab_patterns_total"
	metricGridCells     = "crosstab_grid_cells"

	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics holds Prometheus collectors for cube builds.
type Metrics struct {
	builds   *prometheus.CounterVec
	duration prometheus.Histogram
	patterns prometheus.Counter
	cells    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricBuildsTotal,
			Help: "Cube builds by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricBuildDuration,
			Help:    "Wall time of a full cube build.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		patterns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPatternsTotal,
			Help: "Inclusion patterns run to completion.",
		}),
		cells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricGridCells,
			Help:    "Cells per successful build.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.builds, m.duration, m.patterns, m.cells} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register build metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observe(start time.Time, patterns, cells int, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(time.Since(start).Seconds())
	m.patterns.Add(float64(patterns))
	if err != nil {
		m.builds.WithLabelValues(outcomeError).Inc()
		return
	}
	m.builds.WithLabelValues(outcomeOK).Inc()
	m.cells.Observe(float64(cells))
}
