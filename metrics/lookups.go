package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Lookups counts lookup outcomes and live widget sessions.
type Lookups struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sessions prometheus.Gauge
}

func NewLookups(collector Collector) *Lookups {
	l := &Lookups{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: "lookup",
				Name:      "total",
				Help:      "Counts settled lookups by source and status",
			},
			[]string{"source", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: "lookup",
				Name:      "duration_seconds",
				Help:      "Histogram of lookup durations in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Subsystem: "widget",
				Name:      "sessions",
				Help:      "Number of connected widget sessions",
			},
		),
	}

	collector.RegisterMetric(l.total)
	collector.RegisterMetric(l.duration)
	collector.RegisterMetric(l.sessions)
	log.Info().Str("name", "lookup_total").Str("type", "counter_vec").Msg("registered new metric")
	log.Info().Str("name", "lookup_duration_seconds").Str("type", "histogram_vec").Msg("registered new metric")
	log.Info().Str("name", "widget_sessions").Str("type", "gauge").Msg("registered new metric")

	return l
}

func (l *Lookups) Observe(source, status string, elapsed time.Duration) {
	l.total.WithLabelValues(source, status).Inc()
	l.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (l *Lookups) SessionOpened() { l.sessions.Inc() }

func (l *Lookups) SessionClosed() { l.sessions.Dec() }
