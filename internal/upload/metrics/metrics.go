package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the upload pipeline.
type Metrics struct {
	UploadsApproved  prometheus.Counter
	UploadsRejected  prometheus.Counter
	UploadsFailed    prometheus.Counter
	PipelineDuration prometheus.Histogram
	ProfilesMigrated prometheus.Counter
}

// New registers all upload pipeline metrics.
func New() *Metrics {
	return &Metrics{
		UploadsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_uploads_approved_total",
			Help: "Uploads that passed moderation and were stored",
		}),
		UploadsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_uploads_rejected_total",
			Help: "Uploads rejected by moderation or validation",
		}),
		UploadsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_uploads_failed_total",
			Help: "Uploads aborted by a dependency failure",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "avatar_gateway_upload_pipeline_duration_seconds",
			Help:    "End-to-end duration of upload pipeline runs",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ProfilesMigrated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_profiles_migrated_total",
			Help: "Legacy avatars migrated into the blob store",
		}),
	}
}

// ObservePipeline records the duration of one pipeline run.
func (m *Metrics) ObservePipeline(start time.Time) {
	m.PipelineDuration.Observe(time.Since(start).Seconds())
}
