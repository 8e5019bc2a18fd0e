package handler

import (
	"wastewatch/backend/internal/config"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with every route.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), CORS())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/images"})))
	r.SetHTMLTemplate(Templates())

	create := []gin.HandlerFunc{}
	if cfg.RateLimit.RPS > 0 {
		create = append(create, h.RateLimit(NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	}
	create = append(create, h.CreateComplaint)

	// Citizen app
	r.POST("/complaints", create...)
	r.GET("/complaints", h.ListComplaints)
	r.GET("/complaints/locations", h.Locations)
	r.GET("/complaints/geojson", h.OpenGeoJSON)
	r.PUT("/complaints/resolve/:image_id", h.ResolveComplaint)
	r.GET("/map-embed", h.MapEmbed)

	// Authority dashboard
	r.GET("/", h.Index)
	r.POST("/resolve", h.DashboardResolve)
	r.GET("/heatmap", h.Heatmap)
	r.GET("/heatmap_data", h.HeatmapData)
	r.GET("/heatmap_cells", h.HeatmapCells)
	r.GET("/images/:kind/:image_id", h.ServeImage)
	r.GET("/ws", h.ServeWebSocket)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
