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

type PreferenceRepo interface {
	GetByUserAndTypes(ctx context.Context, tx *gorm.DB, userID uuid.UUID, blockTypes []string) ([]*types.LearnerPreference, error)
	Upsert(ctx context.Context, tx *gorm.DB, pref *types.LearnerPreference) error
	FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type preferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) PreferenceRepo {
	repoLog := baseLog.With("repo", "LearnerPreferenceRepo")
	return &preferenceRepo{db: db, log: repoLog}
}

func (r *preferenceRepo) GetByUserAndTypes(ctx context.Context, tx *gorm.DB, userID uuid.UUID, blockTypes []string) ([]*types.LearnerPreference, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LearnerPreference
	if len(blockTypes) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND block_type IN ?", userID, blockTypes).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *preferenceRepo) Upsert(ctx context.Context, tx *gorm.DB, pref *types.LearnerPreference) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	pref.UpdatedAt = time.Now().UTC()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = pref.UpdatedAt
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "block_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"prefs", "updated_at"}),
		}).
		Create(pref).Error; err != nil {
		return err
	}
	return nil
}

func (r *preferenceRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(userIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Delete(&types.LearnerPreference{}).Error; err != nil {
		return err
	}
	return nil
}
