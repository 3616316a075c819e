package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planforge/planforge-backend/internal/domain/plan"
	"github.com/planforge/planforge-backend/internal/middleware"
	"github.com/planforge/planforge-backend/internal/services"
	"github.com/planforge/planforge-backend/internal/session"
)

type DocumentHandler struct {
	docs services.DocumentService
}

func NewDocumentHandler(docs services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// GET /api/document
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	owner := middleware.OwnerSessionID(c)
	view, err := h.docs.Get(c.Request.Context(), owner)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "document_load_failed", err)
		return
	}
	RespondOK(c, gin.H{"document": view})
}

// POST /api/document/ingest
//
// The body carries the full ordered conversation; the engine re-scans it and
// resolves every extracted candidate against current section state.
func (h *DocumentHandler) IngestConversation(c *gin.Context) {
	owner := middleware.OwnerSessionID(c)

	var req struct {
		Messages []plan.ConversationMessage `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.docs.Ingest(c.Request.Context(), owner, req.Messages)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "ingest_failed", err)
		return
	}
	RespondOK(c, gin.H{"document": view})
}

// POST /api/document/sections/:id/edit
func (h *DocumentHandler) BeginEdit(c *gin.Context) {
	owner := middleware.OwnerSessionID(c)
	sectionID := c.Param("id")

	var req struct {
		CurrentContent string `json:"current_content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.docs.BeginEdit(c.Request.Context(), owner, sectionID, req.CurrentContent); err != nil {
		respondSectionError(c, err)
		return
	}
	RespondOK(c, gin.H{"editing": sectionID})
}

// PUT /api/document/sections/:id
func (h *DocumentHandler) SaveEdit(c *gin.Context) {
	owner := middleware.OwnerSessionID(c)
	sectionID := c.Param("id")

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.docs.SaveEdit(c.Request.Context(), owner, sectionID, req.Content)
	if err != nil {
		respondSectionError(c, err)
		return
	}
	RespondOK(c, gin.H{"document": view})
}

// DELETE /api/document/sections/:id/edit
func (h *DocumentHandler) CancelEdit(c *gin.Context) {
	owner := middleware.OwnerSessionID(c)
	sectionID := c.Param("id")

	if err := h.docs.CancelEdit(c.Request.Context(), owner, sectionID); err != nil {
		respondSectionError(c, err)
		return
	}
	RespondOK(c, gin.H{"cancelled": sectionID})
}

// DELETE /api/document
func (h *DocumentHandler) DiscardDocument(c *gin.Context) {
	owner := middleware.OwnerSessionID(c)
	if err := h.docs.Discard(c.Request.Context(), owner); err != nil {
		RespondError(c, http.StatusInternalServerError, "discard_failed", err)
		return
	}
	RespondOK(c, gin.H{"discarded": true})
}

func respondSectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownSection):
		RespondError(c, http.StatusNotFound, "unknown_section", err)
	case errors.Is(err, session.ErrNotEditing):
		RespondError(c, http.StatusConflict, "save_conflict", err)
	case errors.Is(err, session.ErrDisposed):
		RespondError(c, http.StatusConflict, "session_closed", err)
	default:
		RespondError(c, http.StatusInternalServerError, "document_error", err)
	}
}
