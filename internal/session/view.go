package session

import (
	"time"

	"github.com/planforge/planforge-backend/internal/domain/plan"
)

// SectionView is one section as exposed to the document-view layer.
type SectionView struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	Origin      plan.SectionOrigin `json:"origin"`
	Completed   bool               `json:"completed"`
	LastUpdated time.Time          `json:"last_updated"`
}

// DocumentView is a consistent snapshot of the reactive document state.
type DocumentView struct {
	ID                   string        `json:"id"`
	OwnerSessionID       string        `json:"owner_session_id"`
	Title                string        `json:"title"`
	DetectedEntityName   string        `json:"detected_entity_name,omitempty"`
	Sections             []SectionView `json:"sections"`
	CompletedCount       int           `json:"completed_count"`
	CompletionPercentage int           `json:"completion_percentage"`
	EditingSectionID     string        `json:"editing_section_id,omitempty"`
	IsAutoSaving         bool          `json:"is_auto_saving"`
	LastSavedAt          *time.Time    `json:"last_saved_at,omitempty"`
}
