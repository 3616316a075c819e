package app

import (
	"github.com/gin-gonic/gin"

	"github.com/planforge/planforge-backend/internal/handlers"
	"github.com/planforge/planforge-backend/internal/middleware"
	"github.com/planforge/planforge-backend/internal/platform/logger"
	"github.com/planforge/planforge-backend/internal/realtime"
	"github.com/planforge/planforge-backend/internal/server"
)

type Handlers struct {
	Document *handlers.DocumentHandler
	SSE      *handlers.SSEHandler
}

type Middleware struct {
	Owner *middleware.OwnerMiddleware
}

func wireHandlers(log *logger.Logger, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Document: handlers.NewDocumentHandler(services.Document),
		SSE:      handlers.NewSSEHandler(log, sseHub, services.Document),
	}
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Owner: middleware.NewOwnerMiddleware(log),
	}
}

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AllowedOrigins:  cfg.AllowedOrigins,
		OwnerMiddleware: middleware.Owner,
		DocumentHandler: handlers.Document,
		SSEHandler:      handlers.SSE,
	})
}
