package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/planforge/planforge-backend/internal/handlers"
	"github.com/planforge/planforge-backend/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins  []string
	OwnerMiddleware *middleware.OwnerMiddleware
	DocumentHandler *handlers.DocumentHandler
	SSEHandler      *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With", middleware.OwnerHeader},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Everything else requires an owner session id.
	api := router.Group("/api")
	api.Use(cfg.OwnerMiddleware.RequireOwner())
	{
		api.GET("/document", cfg.DocumentHandler.GetDocument)
		api.DELETE("/document", cfg.DocumentHandler.DiscardDocument)
		api.POST("/document/ingest", cfg.DocumentHandler.IngestConversation)

		api.POST("/document/sections/:id/edit", cfg.DocumentHandler.BeginEdit)
		api.DELETE("/document/sections/:id/edit", cfg.DocumentHandler.CancelEdit)
		api.PUT("/document/sections/:id", cfg.DocumentHandler.SaveEdit)

		api.GET("/sse/stream", cfg.SSEHandler.SSEStream)
	}

	return router
}
