// Package metrics holds the Prometheus instruments of the request layer.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resmap"

// Metrics holds the request and mapping instruments.
type Metrics struct {
	requests        *prometheus.CounterVec   // By scope, endpoint, method and status
	requestDuration *prometheus.HistogramVec // By scope, endpoint and method

	encoded  *prometheus.CounterVec   // By endpoint
	included *prometheus.HistogramVec // By endpoint
	decoded  *prometheus.CounterVec   // By endpoint

	errors *prometheus.CounterVec // By status
}

// New creates the instruments and registers them with reg. A nil reg
// disables metrics and returns nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of handled requests",
		}, []string{"scope", "endpoint", "method", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request handling duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"scope", "endpoint", "method"}),

		encoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mapping",
			Name:      "documents_encoded_total",
			Help:      "Total number of response documents built",
		}, []string{"endpoint"}),

		included: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mapping",
			Name:      "included_resources",
			Help:      "Distribution of included resources per document",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"endpoint"}),

		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mapping",
			Name:      "resources_decoded_total",
			Help:      "Total number of incoming resource objects decoded",
		}, []string{"endpoint"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of error responses",
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.requestDuration, m.encoded, m.included, m.decoded, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(scope, endpoint, method string, status int, d time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(scope, endpoint, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(scope, endpoint, method).Observe(d.Seconds())
}

// RecordEncode records a built document and its included count.
func (m *Metrics) RecordEncode(endpoint string, included int) {
	if m == nil {
		return
	}

	m.encoded.WithLabelValues(endpoint).Inc()
	m.included.WithLabelValues(endpoint).Observe(float64(included))
}

// RecordDecode records a decoded resource object.
func (m *Metrics) RecordDecode(endpoint string) {
	if m == nil {
		return
	}

	m.decoded.WithLabelValues(endpoint).Inc()
}

// RecordError records an error response.
func (m *Metrics) RecordError(status int) {
	if m == nil {
		return
	}

	m.errors.WithLabelValues(strconv.Itoa(status)).Inc()
}
