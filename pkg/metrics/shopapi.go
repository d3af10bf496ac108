package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopAPIMetrics tracks calls to the remote shop REST API.
type ShopAPIMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

func NewShopAPIMetrics(reg prometheus.Registerer) *ShopAPIMetrics {
	if reg == nil {
		return &ShopAPIMetrics{}
	}
	m := &ShopAPIMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shop_api_request_duration_seconds",
			Help:    "Latency of shop API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_api_requests_total",
			Help: "Shop API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(m.duration, m.requests)
	return m
}

// Observe records one finished request.
func (m *ShopAPIMetrics) Observe(operation, outcome string, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(elapsed.Seconds())
	m.requests.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}
