package plan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/planforge/planforge-backend/internal/domain/plan"
	"github.com/planforge/planforge-backend/internal/platform/logger"
)

type PlanDocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, doc *domain.PlanDocument) error
	GetByOwnerSessionID(ctx context.Context, tx *gorm.DB, ownerSessionID string) (*domain.PlanDocument, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.PlanDocument, error)
	UpdateTitleAndEntity(ctx context.Context, tx *gorm.DB, id uuid.UUID, title, entityName string) error
	TouchLastSavedAt(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type planDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanDocumentRepo(db *gorm.DB, baseLog *logger.Logger) PlanDocumentRepo {
	return &planDocumentRepo{db: db, log: baseLog.With("repo", "PlanDocumentRepo")}
}

func (r *planDocumentRepo) Create(ctx context.Context, tx *gorm.DB, doc *domain.PlanDocument) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return transaction.WithContext(ctx).Create(doc).Error
}

func (r *planDocumentRepo) GetByOwnerSessionID(ctx context.Context, tx *gorm.DB, ownerSessionID string) (*domain.PlanDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var doc domain.PlanDocument
	err := transaction.WithContext(ctx).
		Where("owner_session_id = ?", ownerSessionID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *planDocumentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.PlanDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var doc domain.PlanDocument
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *planDocumentRepo) UpdateTitleAndEntity(ctx context.Context, tx *gorm.DB, id uuid.UUID, title, entityName string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&domain.PlanDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":                title,
			"detected_entity_name": entityName,
			"updated_at":           time.Now().UTC(),
		}).Error
}

func (r *planDocumentRepo) TouchLastSavedAt(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&domain.PlanDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_saved_at": at,
			"updated_at":    at,
		}).Error
}

func (r *planDocumentRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.PlanDocument{}).Error
}
