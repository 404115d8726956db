package repos

import (
	"github.com/yungbote/blockstore/internal/data/repos/content"
	"github.com/yungbote/blockstore/internal/data/repos/learner"
	"github.com/yungbote/blockstore/internal/data/repos/overview"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"gorm.io/gorm"
)

type DefinitionRepo = content.DefinitionRepo
type StructureRepo = content.StructureRepo
type ActiveVersionsRepo = content.ActiveVersionsRepo

type LearnerStateRepo = learner.StateRepo
type LearnerPreferenceRepo = learner.PreferenceRepo
type LearnerInfoRepo = learner.InfoRepo

type OverviewRepo = overview.OverviewRepo

func NewDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) DefinitionRepo {
	return content.NewDefinitionRepo(db, baseLog)
}
func NewStructureRepo(db *gorm.DB, baseLog *logger.Logger) StructureRepo {
	return content.NewStructureRepo(db, baseLog)
}
func NewActiveVersionsRepo(db *gorm.DB, baseLog *logger.Logger) ActiveVersionsRepo {
	return content.NewActiveVersionsRepo(db, baseLog)
}

func NewLearnerStateRepo(db *gorm.DB, baseLog *logger.Logger) LearnerStateRepo {
	return learner.NewStateRepo(db, baseLog)
}
func NewLearnerPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) LearnerPreferenceRepo {
	return learner.NewPreferenceRepo(db, baseLog)
}
func NewLearnerInfoRepo(db *gorm.DB, baseLog *logger.Logger) LearnerInfoRepo {
	return learner.NewInfoRepo(db, baseLog)
}

func NewOverviewRepo(db *gorm.DB, baseLog *logger.Logger) OverviewRepo {
	return overview.NewOverviewRepo(db, baseLog)
}
