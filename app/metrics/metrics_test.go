package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	c := NewCollector("1.0.0")

	c.BulkItems("focus_keyword", 3, 1)
	c.BulkItems("focus_keyword", 1, 0)
	c.TemplateApplied("import")
	c.WebhookDelivered("delivered")
	c.WebhookDelivered("delivered")
	c.WebhookDelivered("failed")

	assert.Equal(t, 4.0, testutil.ToFloat64(c.bulkItems.WithLabelValues("focus_keyword", "updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bulkItems.WithLabelValues("focus_keyword", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.templateApplies.WithLabelValues("import")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.webhookDeliveries.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.webhookDeliveries.WithLabelValues("failed")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.BulkItems("title", 1, 1)
		c.TemplateApplied("update")
		c.WebhookDelivered("skipped")
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCollector("1.2.3")

	router := gin.New()
	router.Use(c.Middleware())
	router.GET("/things/:id", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	router.GET("/metrics", c.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/7", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/things/:id", "204")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `superman_links_build_info{version="1.2.3"} 1`))
	assert.True(t, strings.Contains(body, "superman_links_http_requests_total"))
}
