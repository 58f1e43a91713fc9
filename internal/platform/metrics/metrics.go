// Package metrics exposes the hub's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ambulance_hub"

// Metrics groups every collector the service registers. It satisfies the
// observer interfaces of the reactor, the websocket gateway and the
// write-behind pool.
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal   *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec
	Sessions      *prometheus.GaugeVec
	OutboundTotal *prometheus.CounterVec
	Connections   prometheus.Gauge
	StoreWrites   *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// New builds a Metrics on a private registry so tests can create as many as
// they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "events_total",
			Help:      "Inbound events handled, by event name and outcome.",
		}, []string{"event", "outcome"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one inbound event.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}, []string{"event"}),
		Sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sessions",
			Help:      "Live sessions by participant kind.",
		}, []string{"kind"}),
		OutboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "outbound_total",
			Help:      "Outbound frames by result (queued, dropped, closed).",
		}, []string{"result"}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		StoreWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Best-effort document writes by kind and result.",
		}, []string{"name", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}

	m.registry.MustRegister(
		m.EventsTotal, m.EventDuration, m.Sessions,
		m.OutboundTotal, m.Connections, m.StoreWrites,
		m.HTTPRequests, m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveEvent(event, outcome string, d time.Duration) {
	m.EventsTotal.WithLabelValues(event, outcome).Inc()
	m.EventDuration.WithLabelValues(event).Observe(d.Seconds())
}

func (m *Metrics) SetSessions(kind string, n int) {
	m.Sessions.WithLabelValues(kind).Set(float64(n))
}

func (m *Metrics) ObserveOutbound(result string) {
	m.OutboundTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ConnectionOpened() { m.Connections.Inc() }

func (m *Metrics) ConnectionClosed() { m.Connections.Dec() }

func (m *Metrics) ObserveStoreWrite(name, result string) {
	m.StoreWrites.WithLabelValues(name, result).Inc()
}

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(path, c.Request().Method, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(path, c.Request().Method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
