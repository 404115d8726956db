package content

import (
	"context"

	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StructureRepo interface {
	Create(ctx context.Context, tx *gorm.DB, docs []*types.StructureDoc) ([]*types.StructureDoc, error)
	GetByVersionIDs(ctx context.Context, tx *gorm.DB, versionIDs []string) ([]*types.StructureDoc, error)
	GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) ([]*types.StructureDoc, error)
	FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) error
}

type structureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStructureRepo(db *gorm.DB, baseLog *logger.Logger) StructureRepo {
	repoLog := baseLog.With("repo", "StructureRepo")
	return &structureRepo{db: db, log: repoLog}
}

func (r *structureRepo) Create(ctx context.Context, tx *gorm.DB, docs []*types.StructureDoc) ([]*types.StructureDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(docs) == 0 {
		return []*types.StructureDoc{}, nil
	}

	// Version ids are content addresses: re-saving an identical structure is
	// a no-op, not a conflict.
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *structureRepo) GetByVersionIDs(ctx context.Context, tx *gorm.DB, versionIDs []string) ([]*types.StructureDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StructureDoc
	if len(versionIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("version_id IN ?", versionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *structureRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) ([]*types.StructureDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StructureDoc
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *structureRepo) FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Delete(&types.StructureDoc{}).Error; err != nil {
		return err
	}
	return nil
}
