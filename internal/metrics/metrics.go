// Package metrics exposes Prometheus instruments for dose logging, reminder
// delivery and assistant calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application instruments. All methods are safe on a nil
// receiver so components can run without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	DosesTotal        *prometheus.CounterVec
	PointsTotal       prometheus.Counter
	RemindersTotal    *prometheus.CounterVec
	AssistantCalls    *prometheus.CounterVec
	AssistantLatency  *prometheus.HistogramVec
	MedicationsActive prometheus.Gauge
	LowStock          prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates and registers the instruments on a fresh registry.
//
// Metrics:
//   - medireminder_doses_total{status} - doses logged as taken or skipped
//   - medireminder_points_awarded_total - reward points credited
//   - medireminder_reminders_total{sink,result} - reminder deliveries
//   - medireminder_assistant_calls_total{operation,result} - model calls
//   - medireminder_assistant_duration_seconds{operation} - model call latency
//   - medireminder_medications - tracked medications
//   - medireminder_medications_low_stock - medications at or below the low stock threshold
//   - medireminder_http_requests_total{method,route,status} - handled API requests
//   - medireminder_http_request_duration_seconds{method,route} - API request latency
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DosesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medireminder_doses_total",
				Help: "Total number of doses logged",
			},
			[]string{"status"}, // "taken" or "skipped"
		),
		PointsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "medireminder_points_awarded_total",
			Help: "Total reward points awarded",
		}),
		RemindersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medireminder_reminders_total",
				Help: "Total number of reminder deliveries by sink",
			},
			[]string{"sink", "result"},
		),
		AssistantCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medireminder_assistant_calls_total",
				Help: "Total number of assistant calls",
			},
			[]string{"operation", "result"},
		),
		AssistantLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medireminder_assistant_duration_seconds",
				Help:    "Duration of assistant calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"operation"},
		),
		MedicationsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medireminder_medications",
			Help: "Number of tracked medications",
		}),
		LowStock: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medireminder_medications_low_stock",
			Help: "Number of medications with low or no stock",
		}),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medireminder_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medireminder_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDose counts a logged dose and its points
func (m *Metrics) ObserveDose(status string, points int) {
	if m == nil {
		return
	}
	m.DosesTotal.WithLabelValues(status).Inc()
	if points > 0 {
		m.PointsTotal.Add(float64(points))
	}
}

// ObserveReminder counts a reminder delivery attempt
func (m *Metrics) ObserveReminder(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RemindersTotal.WithLabelValues(sink, result).Inc()
}

// ObserveAssistant records an assistant call outcome and latency
func (m *Metrics) ObserveAssistant(operation, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AssistantCalls.WithLabelValues(operation, result).Inc()
	m.AssistantLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// SetInventory updates the medication gauges
func (m *Metrics) SetInventory(total, lowStock int) {
	if m == nil {
		return
	}
	m.MedicationsActive.Set(float64(total))
	m.LowStock.Set(float64(lowStock))
}

// ObserveRequest records one handled HTTP request. route is the matched
// route template, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
