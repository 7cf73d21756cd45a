package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder publishes scheduling counters and latencies to Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	operations    *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	cascaded      prometheus.Counter
	notifications *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility",
			Name:      "operations_total",
			Help:      "Scheduling operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		durations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "facility",
			Name:      "operation_duration_seconds",
			Help:      "Latency of scheduling operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cascaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "facility",
			Name:      "reservations_cascaded_total",
			Help:      "Reservations cancelled by newly committed maintenance windows.",
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility",
			Name:      "notifications_total",
			Help:      "Notification requests handed to the sink by outcome.",
		}, []string{"outcome"}),
	}
}

// Observe records one finished operation.
func (r *Recorder) Observe(operation, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.durations.WithLabelValues(operation).Observe(d.Seconds())
}

// Cascaded adds n cancelled reservations.
func (r *Recorder) Cascaded(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.cascaded.Add(float64(n))
}

// Notification counts one sink hand-off.
func (r *Recorder) Notification(outcome string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(outcome).Inc()
}
