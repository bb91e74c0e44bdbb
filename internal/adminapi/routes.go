package adminapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/jroosing/dnsforward/internal/adminapi/docs"
)

// RegisterRoutes wires the read-only admin surface: swagger UI, the
// versioned stats API, and an optional prometheus scrape endpoint
// (§11 DOMAIN STACK).
func RegisterRoutes(r *gin.Engine, h *Handler, metrics *Metrics) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Gatherer, promhttp.HandlerOpts{})))
	}
}
