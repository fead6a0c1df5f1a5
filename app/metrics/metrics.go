package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sponsorships"

// Metrics holds the service's Prometheus collectors. It satisfies the
// observer interfaces of the service and provider packages.
type Metrics struct {
	ordersCreated    *prometheus.CounterVec
	orderAmount      *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	callbacks        *prometheus.CounterVec
	providerRequests *prometheus.HistogramVec
	jobRuns          *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ordersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Orders created, by provider and method.",
			},
			[]string{"provider", "method"},
		),
		orderAmount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_amount_total",
				Help:      "Sum of created order amounts, by provider and currency.",
			},
			[]string{"provider", "currency"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_transitions_total",
				Help:      "Applied order status transitions, by provider and target status.",
			},
			[]string{"provider", "status"},
		),
		callbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "callbacks_total",
				Help:      "Provider callbacks handled, by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		providerRequests: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Outbound provider request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "operation", "outcome"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Background job runs, by job and result.",
			},
			[]string{"job", "result"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Background job run latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}
}

func (m *Metrics) ObserveOrderCreated(provider, method, currency string, amount float64) {
	m.ordersCreated.WithLabelValues(provider, method).Inc()
	m.orderAmount.WithLabelValues(provider, currency).Add(amount)
}

func (m *Metrics) ObserveTransition(provider, status string) {
	m.transitions.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) ObserveCallback(provider, outcome string) {
	m.callbacks.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveProviderRequest(provider, operation, outcome string, elapsed time.Duration) {
	m.providerRequests.WithLabelValues(provider, operation, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveJob(job string, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}
