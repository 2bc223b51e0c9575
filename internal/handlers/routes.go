package handlers

import (
	"net/http"

	"github.com/alimgiray/devfolio/internal/middleware"
	"github.com/alimgiray/devfolio/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers middleware and every endpoint on router
func SetupRoutes(router *gin.Engine, profileService *services.ProfileService, exportService *services.ExportService, db Pinger) {
	router.Use(middleware.RequestLogger(), middleware.Recovery(), middleware.CORS())

	profileHandler := NewProfileHandler(profileService)
	exportHandler := NewExportHandler(exportService)
	healthHandler := NewHealthHandler(db)
	notFoundHandler := NewNotFoundHandler()

	api := router.Group("/api")
	{
		api.GET("/profiles", profileHandler.Profiles)
		api.GET("/profiles/:username/avatar", profileHandler.Avatar)
		api.GET("/export/profiles.xlsx", exportHandler.Profiles)
	}

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.NoRoute(notFoundHandler.NotFound)
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
	})
}
