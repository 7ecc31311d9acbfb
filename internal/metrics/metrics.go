// Package metrics exposes Prometheus metrics for pipeline runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tibber_refiner"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics bundles the service metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	RunAttempts   prometheus.Counter
	LastSuccess   prometheus.Gauge
	PointsWritten *prometheus.CounterVec
	TibberTotal   *prometheus.CounterVec
	CurrentPrice  prometheus.Gauge
}

// New constructs the metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total pipeline runs by result",
			},
			[]string{"result"},
		),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds, retries included",
			Buckets:   prometheus.DefBuckets,
		}),
		RunAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_attempts_total",
			Help:      "Total pipeline attempts",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
		PointsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_written_total",
				Help:      "Points written to InfluxDB by measurement",
			},
			[]string{"measurement"},
		),
		TibberTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tibber_requests_total",
				Help:      "Tibber API requests by result",
			},
			[]string{"result"},
		),
		CurrentPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_price",
			Help:      "Price of the current hour",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RunsTotal,
		m.RunDuration,
		m.RunAttempts,
		m.LastSuccess,
		m.PointsWritten,
		m.TibberTotal,
		m.CurrentPrice,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(err error, duration time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(duration.Seconds())
	if err != nil {
		m.RunsTotal.WithLabelValues(ResultError).Inc()
		return
	}
	m.RunsTotal.WithLabelValues(ResultSuccess).Inc()
	m.LastSuccess.Set(float64(finished.Unix()))
}

// Attempt counts one pipeline attempt.
func (m *Metrics) Attempt() {
	if m == nil {
		return
	}
	m.RunAttempts.Inc()
}

// PointsAdded counts points written to a measurement.
func (m *Metrics) PointsAdded(measurement string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PointsWritten.WithLabelValues(measurement).Add(float64(n))
}

// TibberRequest counts a Tibber API request.
func (m *Metrics) TibberRequest(err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.TibberTotal.WithLabelValues(result).Inc()
}

// SetCurrentPrice sets the price of the current hour.
func (m *Metrics) SetCurrentPrice(price float64) {
	if m == nil {
		return
	}
	m.CurrentPrice.Set(price)
}
