package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records provider calls and dashboard refreshes.
type Collector struct {
	providerLatency *prometheus.HistogramVec
	providerCalls   *prometheus.CounterVec
	refreshLatency  *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "weather_dashboard",
				Name:      "provider_request_duration_seconds",
				Help:      "Weather provider request latencies",
			},
			[]string{"operation"},
		),
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "weather_dashboard",
				Name:      "provider_requests_total",
				Help:      "Weather provider request counts",
			},
			[]string{"operation", "outcome"},
		),
		refreshLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "weather_dashboard",
				Name:      "view_refresh_duration_seconds",
				Help:      "Fetch-and-render cycle latencies",
			},
			[]string{"outcome"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "weather_dashboard",
				Name:      "view_refreshes_total",
				Help:      "Fetch-and-render cycles by outcome",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(c.providerLatency, c.providerCalls, c.refreshLatency, c.refreshes)
	return c
}

func (c *Collector) ObserveProviderRequest(operation, outcome string, d time.Duration) {
	c.providerLatency.WithLabelValues(operation).Observe(d.Seconds())
	c.providerCalls.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) ObserveRefresh(outcome string, d time.Duration) {
	c.refreshLatency.WithLabelValues(outcome).Observe(d.Seconds())
	c.refreshes.WithLabelValues(outcome).Inc()
}
