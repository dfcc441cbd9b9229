// Package metrics exposes Prometheus collectors for HTTP traffic, order
// transitions and stock units of work. A nil *Metrics records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	transitions       *prometheus.CounterVec
	unitOfWork        *prometheus.HistogramVec
	retries           *prometheus.CounterVec
	insufficientStock prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockledger_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockledger_order_transitions_total",
			Help: "Order lifecycle transitions by kind, action and outcome.",
		}, []string{"kind", "action", "outcome"}),
		unitOfWork: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockledger_unit_of_work_duration_seconds",
			Help:    "Duration of stock units of work, including retries.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockledger_unit_of_work_retries_total",
			Help: "Units of work rolled back by a transient conflict and attempted again.",
		}, []string{"operation"}),
		insufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockledger_insufficient_stock_total",
			Help: "Debits rejected because the stock row could not cover them.",
		}),
	}
	registry.MustRegister(
		m.requestsTotal, m.requestDuration, m.transitions,
		m.unitOfWork, m.retries, m.insufficientStock,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	if m == nil {
		return func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records one sample per request, labelled by route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

func (m *Metrics) ObserveTransition(kind, action string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, action, outcome(err)).Inc()
}

func (m *Metrics) ObserveUnitOfWork(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.unitOfWork.WithLabelValues(operation, outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) IncRetry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncInsufficientStock() {
	if m == nil {
		return
	}
	m.insufficientStock.Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
