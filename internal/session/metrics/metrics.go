package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the session cache. Hit rate is the
// number that matters operationally: misses pay the identity-provider
// round trip.
type Metrics struct {
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheErrors     prometheus.Counter
	ValidateFailed  prometheus.Counter
	RefreshFailures prometheus.Counter
}

// New registers all session cache metrics.
func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_session_cache_hits_total",
			Help: "Session validations served from the cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_session_cache_misses_total",
			Help: "Session validations that fell through to the identity provider",
		}),
		CacheErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_session_cache_errors_total",
			Help: "Cache read/write failures treated as misses",
		}),
		ValidateFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_session_validate_failed_total",
			Help: "Validations that returned no session",
		}),
		RefreshFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_gateway_session_refresh_failures_total",
			Help: "Sliding-window refresh writes that failed",
		}),
	}
}
