package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the service's Prometheus instruments. They are created once
// in main and injected; handlers and services never register metrics
// themselves.
type Metrics struct {
	CheckoutRequests    *prometheus.CounterVec
	CheckoutDuration    prometheus.Histogram
	PaymentWebhooks     *prometheus.CounterVec
	ReservationFailures prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates and registers the instrument set on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_requests_total",
				Help: "Total number of checkout attempts.",
			},
			[]string{"outcome"},
		),
		CheckoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "checkout_duration_seconds",
				Help:    "Duration of checkout execution in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		PaymentWebhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhooks_total",
				Help: "Total number of processor confirmation callbacks.",
			},
			[]string{"outcome"},
		),
		ReservationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inventory_reservation_failures_total",
				Help: "Count of checkout attempts rejected for insufficient stock.",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.CheckoutRequests, m.CheckoutDuration, m.PaymentWebhooks,
		m.ReservationFailures, m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// NewNop returns an unregistered instrument set for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
