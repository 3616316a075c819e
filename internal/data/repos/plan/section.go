package plan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/planforge/planforge-backend/internal/domain/plan"
	"github.com/planforge/planforge-backend/internal/platform/logger"
)

type PlanSectionRepo interface {
	CreateAll(ctx context.Context, tx *gorm.DB, rows []*domain.PlanSection) error
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*domain.PlanSection, error)
	UpsertContents(ctx context.Context, tx *gorm.DB, rows []*domain.PlanSection) error
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
}

type planSectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanSectionRepo(db *gorm.DB, baseLog *logger.Logger) PlanSectionRepo {
	return &planSectionRepo{db: db, log: baseLog.With("repo", "PlanSectionRepo")}
}

func (r *planSectionRepo) CreateAll(ctx context.Context, tx *gorm.DB, rows []*domain.PlanSection) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		if row.LastUpdated.IsZero() {
			row.LastUpdated = now
		}
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *planSectionRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*domain.PlanSection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.PlanSection
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertContents commits the full section map of a document. Conflicts on
// (document_id, section_id) overwrite content, origin and timestamps only;
// the row identity never changes.
func (r *planSectionRepo) UpsertContents(ctx context.Context, tx *gorm.DB, rows []*domain.PlanSection) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
	}
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}, {Name: "section_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content",
			"origin",
			"last_updated",
			"updated_at",
		}),
	}).Create(&rows).Error
}

func (r *planSectionRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&domain.PlanSection{}).Error
}
