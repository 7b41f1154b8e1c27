package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/superman-links/links-bridge/app/database"
	"github.com/superman-links/links-bridge/app/metrics"
)

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = KeyHeader + ", Content-Type, Authorization"
	preflightMaxAge  = "86400"
)

// NewServer creates a new HTTP server with all routes configured.
// apiPrefix is the mount point of the REST namespace, e.g. "/wp-json".
func NewServer(handler *Handler, collector *metrics.Collector, apiPrefix string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))
	r.Use(gin.Recovery())
	r.Use(collector.Middleware())

	namespace := strings.TrimSuffix(apiPrefix, "/") + "/" + Namespace
	r.Use(corsMiddleware(namespace))

	r.GET("/metrics", collector.Handler())

	setupRoutes(r.Group(namespace), handler)

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, errNoRoute)
	})

	return r
}

func setupRoutes(api *gin.RouterGroup, handler *Handler) {
	api.GET("/ping", handler.Ping)

	authed := api.Group("")
	authed.Use(accessGate(handler.options))
	{
		authed.GET("/pages", handler.ListPages)
		authed.POST("/pages/bulk-focus-keyword", handler.BulkFocusKeyword)
		authed.POST("/pages/bulk-title", handler.BulkTitle)
		authed.GET("/pages/:id", handler.GetPage)
		authed.DELETE("/pages/:id", handler.TrashPage)
		authed.POST("/pages/:id/focus-keyword", handler.UpdateFocusKeyword)

		authed.GET("/elementor/pages", handler.ElementorPages)
		authed.POST("/elementor/import", handler.ImportTemplate)
		authed.GET("/elementor/:id", handler.ExportTemplate)
		authed.POST("/elementor/:id", handler.UpdateTemplate)
	}
}

// corsMiddleware adds permissive CORS headers to every response and answers
// preflight requests to the namespace before routing.
func corsMiddleware(namespace string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", corsAllowMethods)
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)

		if c.Request.Method == http.MethodOptions && strings.HasPrefix(c.Request.URL.Path, namespace) {
			c.Header("Access-Control-Max-Age", preflightMaxAge)
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// accessGate compares the key header with the stored API key.
func accessGate(options database.OptionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		stored, err := options.GetOption(c.Request.Context(), database.OptionAPIKey)
		if err != nil {
			slog.Error("Database error", "operation", "get_api_key", "error", err)
			abortWithError(c, errInternal)
			return
		}
		if stored == "" {
			abortWithError(c, errMissingAPIKey)
			return
		}

		provided := c.GetHeader(KeyHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) != 1 {
			abortWithError(c, errInvalidAPIKey)
			return
		}

		c.Next()
	}
}
