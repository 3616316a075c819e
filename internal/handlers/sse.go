package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/planforge/planforge-backend/internal/middleware"
	"github.com/planforge/planforge-backend/internal/platform/logger"
	"github.com/planforge/planforge-backend/internal/realtime"
	"github.com/planforge/planforge-backend/internal/services"
)

type SSEHandler struct {
	log  *logger.Logger
	hub  *realtime.SSEHub
	docs services.DocumentService

	mu      sync.Mutex
	clients map[string]*realtime.SSEClient // key: owner session id
}

func NewSSEHandler(log *logger.Logger, hub *realtime.SSEHub, docs services.DocumentService) *SSEHandler {
	return &SSEHandler{
		log:     log,
		hub:     hub,
		docs:    docs,
		clients: make(map[string]*realtime.SSEClient),
	}
}

// GET /api/sse/stream
//
// Opens the event stream and subscribes it to the owner's document channel.
// A second connection for the same owner replaces the first.
func (h *SSEHandler) SSEStream(c *gin.Context) {
	owner := middleware.OwnerSessionID(c)

	channel, err := h.docs.Channel(c.Request.Context(), owner)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "document_load_failed", err)
		return
	}

	h.mu.Lock()
	if existing, ok := h.clients[owner]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, owner)
	}
	client := h.hub.NewSSEClient(owner)
	client.Logger = h.log.With("sse_client_id", client.ID)
	h.clients[owner] = client
	h.mu.Unlock()

	h.hub.AddChannel(client, channel)
	h.log.Info("SSE stream open", "owner_session_id", owner, "channel", channel)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[owner] == client {
		delete(h.clients, owner)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
}
