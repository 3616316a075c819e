package plan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PlanDocument is the aggregate root for one user's co-authored business
// plan. Exactly one document exists per owner session; it is created lazily
// on first access and lives until the owner discards it.
type PlanDocument struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerSessionID string    `gorm:"type:text;not null;uniqueIndex" json:"owner_session_id"`

	Title              string `gorm:"type:text;not null" json:"title"`
	DetectedEntityName string `gorm:"type:text;not null;default:''" json:"detected_entity_name"`

	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (PlanDocument) TableName() string { return "plan_document" }
