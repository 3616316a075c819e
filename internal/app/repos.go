package app

import (
	"gorm.io/gorm"

	planrepo "github.com/planforge/planforge-backend/internal/data/repos/plan"
	"github.com/planforge/planforge-backend/internal/platform/logger"
)

type Repos struct {
	PlanDocument planrepo.PlanDocumentRepo
	PlanSection  planrepo.PlanSectionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		PlanDocument: planrepo.NewPlanDocumentRepo(db, log),
		PlanSection:  planrepo.NewPlanSectionRepo(db, log),
	}
}
