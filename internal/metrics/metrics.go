// Package metrics collects and exposes Prometheus metrics for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the server's metrics.
type Collector struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	loginFailures  prometheus.Counter
	authRejections prometheus.Counter
	validation     *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vehicle_stats_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vehicle_stats_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vehicle_stats_login_failures_total",
			Help: "Rejected login attempts.",
		}),
		authRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vehicle_stats_token_rejections_total",
			Help: "Requests rejected for a missing or invalid bearer token.",
		}),
		validation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vehicle_stats_validation_failures_total",
			Help: "Rejected write payloads by resource and reason.",
		}, []string{"resource", "reason"}),
	}

	reg.MustRegister(c.requests, c.latency, c.loginFailures, c.authRejections, c.validation)
	return c
}

// ObserveRequest records one served request.
func (c *Collector) ObserveRequest(route, method string, status int, d time.Duration) {
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(route, method).Observe(d.Seconds())
}

func (c *Collector) RecordLoginFailure() { c.loginFailures.Inc() }

func (c *Collector) RecordTokenRejection() { c.authRejections.Inc() }

// RecordValidationFailure counts a payload rejected by the validator.
func (c *Collector) RecordValidationFailure(resource, reason string) {
	c.validation.WithLabelValues(resource, reason).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
