package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "superman_links"

// Collector owns the service metrics on a dedicated registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	bulkItems           *prometheus.CounterVec
	templateApplies     *prometheus.CounterVec
	webhookDeliveries   *prometheus.CounterVec
	buildInfo           *prometheus.GaugeVec
}

func NewCollector(version string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	c.bulkItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_items_total",
			Help:      "Bulk operation items by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	c.templateApplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_applies_total",
			Help:      "Builder templates applied, by mode",
		},
		[]string{"mode"},
	)

	c.webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	c.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version"},
	)

	c.registry.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.bulkItems,
		c.templateApplies,
		c.webhookDeliveries,
		c.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.buildInfo.WithLabelValues(version).Set(1)

	return c
}

// Middleware records request count and latency per route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil {
			ctx.Next()
			return
		}

		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method

		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

func (c *Collector) BulkItems(operation string, updated, failed int) {
	if c == nil {
		return
	}
	c.bulkItems.WithLabelValues(operation, "updated").Add(float64(updated))
	c.bulkItems.WithLabelValues(operation, "failed").Add(float64(failed))
}

// TemplateApplied counts an import ("import") or update ("update").
func (c *Collector) TemplateApplied(mode string) {
	if c == nil {
		return
	}
	c.templateApplies.WithLabelValues(mode).Inc()
}

func (c *Collector) WebhookDelivered(outcome string) {
	if c == nil {
		return
	}
	c.webhookDeliveries.WithLabelValues(outcome).Inc()
}
