package plan

import (
	"time"

	"github.com/google/uuid"
)

type SectionOrigin string

const (
	OriginManual SectionOrigin = "manual"
	OriginAI     SectionOrigin = "ai"
)

// CompletionThreshold is the character count past which a section counts as
// complete. A proxy metric, kept as a documented heuristic rather than
// anything smarter.
const CompletionThreshold = 100

// PlanSection is one named slot of a document. The row set is fixed at
// document creation (one row per catalog section id); only Content, Origin
// and LastUpdated mutate afterwards.
type PlanSection struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_plan_section_doc_slug,priority:1" json:"document_id"`

	SectionID string        `gorm:"type:text;not null;uniqueIndex:idx_plan_section_doc_slug,priority:2" json:"section_id"`
	Content   string        `gorm:"type:text;not null;default:''" json:"content"`
	Origin    SectionOrigin `gorm:"type:text;not null;default:'ai'" json:"origin"`

	LastUpdated time.Time `gorm:"not null" json:"last_updated"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (PlanSection) TableName() string { return "plan_section" }

// Completed is always derived from Content; it is never stored or set
// independently.
func (s *PlanSection) Completed() bool {
	return len(s.Content) > CompletionThreshold
}
