package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the venue service collectors. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry setup.
type Metrics struct {
	writes          *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	availDays       prometheus.Counter
	availDuration   prometheus.Histogram
	consumedCommand *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on duplicate
// registration, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "bookings_writes_total",
			Help:      "Booking write attempts by operation and outcome.",
		}, []string{"op", "result"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "conflicts_total",
			Help:      "Detected slot conflicts by source (gate or probe).",
		}, []string{"source"}),
		availDays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "availability_days_total",
			Help:      "Calendar days computed by availability queries.",
		}),
		availDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "venue",
			Name:      "availability_duration_seconds",
			Help:      "Time spent answering availability queries.",
			Buckets:   prometheus.DefBuckets,
		}),
		consumedCommand: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "commands_consumed_total",
			Help:      "Booking commands read from Kafka by type and outcome.",
		}, []string{"type", "result"}),
	}
	reg.MustRegister(m.writes, m.conflicts, m.availDays, m.availDuration, m.consumedCommand)
	return m
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) Write(op, result string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Conflict(source string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(source).Inc()
}

func (m *Metrics) Availability(days int, took time.Duration) {
	if m == nil {
		return
	}
	m.availDays.Add(float64(days))
	m.availDuration.Observe(took.Seconds())
}

func (m *Metrics) Command(cmdType, result string) {
	if m == nil {
		return
	}
	m.consumedCommand.WithLabelValues(cmdType, result).Inc()
}
