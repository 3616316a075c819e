package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	domain "github.com/planforge/planforge-backend/internal/domain/plan"
	"github.com/planforge/planforge-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a fresh in-memory sqlite database per test so repo tests always
// run without external infrastructure.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&domain.PlanDocument{}, &domain.PlanSection{}); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func SeedDocument(tb testing.TB, db *gorm.DB, ownerSessionID string) *domain.PlanDocument {
	tb.Helper()
	now := time.Now().UTC()
	doc := &domain.PlanDocument{
		ID:             uuid.New(),
		OwnerSessionID: ownerSessionID,
		Title:          "Business Plan",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(doc).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return doc
}

func SeedSection(tb testing.TB, db *gorm.DB, documentID uuid.UUID, sectionID, content string, origin domain.SectionOrigin) *domain.PlanSection {
	tb.Helper()
	now := time.Now().UTC()
	row := &domain.PlanSection{
		ID:          uuid.New(),
		DocumentID:  documentID,
		SectionID:   sectionID,
		Content:     content,
		Origin:      origin,
		LastUpdated: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return row
}
