package content

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"gorm.io/gorm"
)

type DefinitionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, docs []*types.DefinitionDoc) ([]*types.DefinitionDoc, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.DefinitionDoc, error)
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type definitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) DefinitionRepo {
	repoLog := baseLog.With("repo", "DefinitionRepo")
	return &definitionRepo{db: db, log: repoLog}
}

func (r *definitionRepo) Create(ctx context.Context, tx *gorm.DB, docs []*types.DefinitionDoc) ([]*types.DefinitionDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(docs) == 0 {
		return []*types.DefinitionDoc{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *definitionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.DefinitionDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.DefinitionDoc
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *definitionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.DefinitionDoc{}).Error; err != nil {
		return err
	}
	return nil
}
