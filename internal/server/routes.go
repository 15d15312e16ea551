package server

import (
	"github.com/gin-gonic/gin"
	"github.com/loopapp/loop-vision/internal/config"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(cfg config.ServerConfig, handler *Handler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())

	router.GET("/health", handler.HealthCheck)
	if handler.metrics != nil {
		router.GET("/metrics", gin.WrapH(handler.metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", handler.Analyze)

		items := v1.Group("/items")
		{
			items.GET("", handler.ListItems)
			items.GET("/:id", handler.GetItem)
		}
	}

	return router
}
