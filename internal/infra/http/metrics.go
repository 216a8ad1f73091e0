package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can run servers side by side
// without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	AuthFailures    *prometheus.CounterVec
	SecurityEvents  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vendtrustd_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendtrustd_auth_failures_total",
			Help: "Rejected requests by error code.",
		}, []string{"code"}),
		SecurityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendtrustd_security_events_total",
			Help: "Security events recorded by type.",
		}, []string{"type"}),
	}
	registry.MustRegister(m.RequestDuration, m.AuthFailures, m.SecurityEvents)
	return m
}

// RegisterAuditDropped exposes the audit trail's drop counter. Registered
// lazily because the trail is constructed by the caller.
func (m *Metrics) RegisterAuditDropped(dropped func() int64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "vendtrustd_audit_entries_dropped",
		Help: "Audit entries dropped because the buffer was full.",
	}, func() float64 { return float64(dropped()) }))
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func (m *Metrics) observe(route, method string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
