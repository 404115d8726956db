package db

import (
	types "github.com/yungbote/blockstore/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Split store documents
		&types.DefinitionDoc{},
		&types.StructureDoc{},
		&types.ActiveVersions{},

		// Per-learner state
		&types.LearnerState{},
		&types.LearnerPreference{},
		&types.LearnerInfo{},

		// Denormalized projections
		&types.CourseOverview{},
	)
}
