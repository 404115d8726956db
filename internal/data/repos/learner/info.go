package learner

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InfoRepo interface {
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.LearnerInfo, error)
	Upsert(ctx context.Context, tx *gorm.DB, info *types.LearnerInfo) error
	FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type infoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInfoRepo(db *gorm.DB, baseLog *logger.Logger) InfoRepo {
	repoLog := baseLog.With("repo", "LearnerInfoRepo")
	return &infoRepo{db: db, log: repoLog}
}

func (r *infoRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.LearnerInfo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LearnerInfo
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *infoRepo) Upsert(ctx context.Context, tx *gorm.DB, info *types.LearnerInfo) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	info.UpdatedAt = time.Now().UTC()
	if info.CreatedAt.IsZero() {
		info.CreatedAt = info.UpdatedAt
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"info", "updated_at"}),
		}).
		Create(info).Error; err != nil {
		return err
	}
	return nil
}

func (r *infoRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(userIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Delete(&types.LearnerInfo{}).Error; err != nil {
		return err
	}
	return nil
}
