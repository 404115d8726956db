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

type StateRepo interface {
	GetByUserAndUsages(ctx context.Context, tx *gorm.DB, userID uuid.UUID, usageIDs []string) ([]*types.LearnerState, error)
	Upsert(ctx context.Context, tx *gorm.DB, state *types.LearnerState) error
	FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
	FullDeleteByUsageIDs(ctx context.Context, tx *gorm.DB, usageIDs []string) error
}

type stateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStateRepo(db *gorm.DB, baseLog *logger.Logger) StateRepo {
	repoLog := baseLog.With("repo", "LearnerStateRepo")
	return &stateRepo{db: db, log: repoLog}
}

func (r *stateRepo) GetByUserAndUsages(ctx context.Context, tx *gorm.DB, userID uuid.UUID, usageIDs []string) ([]*types.LearnerState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LearnerState
	if len(usageIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND usage_id IN ?", userID, usageIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *stateRepo) Upsert(ctx context.Context, tx *gorm.DB, state *types.LearnerState) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	state.UpdatedAt = time.Now().UTC()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = state.UpdatedAt
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "usage_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
		}).
		Create(state).Error; err != nil {
		return err
	}
	return nil
}

func (r *stateRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(userIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Delete(&types.LearnerState{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *stateRepo) FullDeleteByUsageIDs(ctx context.Context, tx *gorm.DB, usageIDs []string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(usageIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("usage_id IN ?", usageIDs).
		Delete(&types.LearnerState{}).Error; err != nil {
		return err
	}
	return nil
}
