package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stocklens/internal/api/handlers"
	"github.com/andresuchdata/stocklens/internal/api/middleware"
	"github.com/andresuchdata/stocklens/internal/service"
)

type Services struct {
	Inventory      *service.InventoryService
	MaxUploadBytes int64
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.Inventory != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.Inventory, services.MaxUploadBytes)
		apiGroup.POST("/upload", inventoryHandler.Upload)
		apiGroup.GET("/analytics", inventoryHandler.GetAnalytics)
		apiGroup.GET("/charts", inventoryHandler.GetCharts)

		demandGroup := apiGroup.Group("/demand")
		{
			demandGroup.GET("", inventoryHandler.GetDemand)
			demandGroup.GET("/export", inventoryHandler.ExportDemand)
		}

		brandGroup := apiGroup.Group("/brands")
		{
			brandGroup.GET("", inventoryHandler.GetBrands)
			brandGroup.GET("/details", inventoryHandler.GetDetails)
		}

		if services.Inventory.ArchiveEnabled() {
			archiveHandler := handlers.NewArchiveHandler(services.Inventory)
			uploadsGroup := apiGroup.Group("/uploads")
			{
				uploadsGroup.GET("", archiveHandler.ListUploads)
				uploadsGroup.POST("/restore", archiveHandler.Restore)
			}
		}

		if services.Inventory.DriveEnabled() {
			driveHandler := handlers.NewDriveHandler(services.Inventory)
			driveGroup := apiGroup.Group("/drive")
			{
				driveGroup.GET("/files", driveHandler.ListFiles)
				driveGroup.POST("/import", driveHandler.Import)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
