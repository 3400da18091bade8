package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinic"

// HTTPMetrics instruments the backend's REST surface.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.inFlight)
	return m
}

func (m *HTTPMetrics) Start() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// Done records a finished request. route is the router pattern, never the raw
// path, since paths carry tokens.
func (m *HTTPMetrics) Done(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

// DashboardMetrics tracks the appointment view controller.
type DashboardMetrics struct {
	issued    prometheus.Counter
	discarded prometheus.Counter
	outcomes  *prometheus.CounterVec
	latency   prometheus.Histogram
}

func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	m := &DashboardMetrics{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "requests_issued_total",
			Help:      "Appointment queries sent to the fetch client.",
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "stale_results_discarded_total",
			Help:      "Resolved queries dropped because a newer trigger superseded them.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "outcomes_total",
			Help:      "Applied view states by kind.",
		}, []string{"state"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "fetch_latency_seconds",
			Help:      "Latency of appointment fetches, stale or not.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.issued, m.discarded, m.outcomes, m.latency)
	return m
}

func (m *DashboardMetrics) ObserveIssued() {
	if m == nil {
		return
	}
	m.issued.Inc()
}

func (m *DashboardMetrics) ObserveDiscarded() {
	if m == nil {
		return
	}
	m.discarded.Inc()
}

func (m *DashboardMetrics) ObserveOutcome(state string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(state).Inc()
}

func (m *DashboardMetrics) ObserveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.latency.Observe(seconds)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
