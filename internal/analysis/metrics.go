package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes recorded in the cycles counter.
const (
	OutcomeSuccess      = "success"
	OutcomeStartFailure = "start_failure"
	OutcomeExitFailure  = "exit_failure"
	OutcomeMalformed    = "malformed"
)

// Metrics are the dispatcher's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	queue    prometheus.Gauge
	dropped  prometheus.Counter
	faults   prometheus.Counter
}

// NewMetrics registers the dispatcher collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gramcheck",
			Subsystem: "analysis",
			Name:      "cycles_total",
			Help:      "Analysis cycles by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gramcheck",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Wall time of analyzer processes.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		queue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "gramcheck",
			Subsystem: "analysis",
			Name:      "queue_depth",
			Help:      "Requests waiting for the analyzer.",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gramcheck",
			Subsystem: "analysis",
			Name:      "dropped_total",
			Help:      "Requests dropped by shutdown.",
		}),
		faults: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gramcheck",
			Subsystem: "analysis",
			Name:      "faults_total",
			Help:      "Internal faults that terminated a dispatcher.",
		}),
	}
}

func (m *Metrics) cycle(outcome string) {
	if m != nil {
		m.cycles.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observe(d time.Duration) {
	if m != nil {
		m.duration.Observe(d.Seconds())
	}
}

func (m *Metrics) queueDepth(n int) {
	if m != nil {
		m.queue.Set(float64(n))
	}
}

func (m *Metrics) drop(n int) {
	if m != nil && n > 0 {
		m.dropped.Add(float64(n))
	}
}

func (m *Metrics) fault() {
	if m != nil {
		m.faults.Inc()
	}
}
