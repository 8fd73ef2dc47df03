package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the moderation stage.
type Metrics struct {
	Approved         prometheus.Counter
	Rejected         prometheus.Counter
	FailOpen         prometheus.Counter
	ClassifyDuration prometheus.Histogram
}

// New registers all moderation metrics.
func New() *Metrics {
	return &Metrics{
		Approved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_moderation_approved_total",
			Help: "Images approved by the moderation policy",
		}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_moderation_rejected_total",
			Help: "Images rejected by the moderation policy",
		}),
		FailOpen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_moderation_fail_open_total",
			Help: "Classifier failures converted to auto-approvals",
		}),
		ClassifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "avatar_gateway_classify_duration_seconds",
			Help:    "Duration of classifier inference calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// ObserveClassify records the duration of one classifier call.
func (m *Metrics) ObserveClassify(start time.Time) {
	m.ClassifyDuration.Observe(time.Since(start).Seconds())
}
