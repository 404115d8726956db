package overview

import (
	"context"
	"time"

	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OverviewRepo interface {
	GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) ([]*types.CourseOverview, error)
	GetByOrgs(ctx context.Context, tx *gorm.DB, orgs []string) ([]*types.CourseOverview, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.CourseOverview) error
	FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) error
}

type overviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOverviewRepo(db *gorm.DB, baseLog *logger.Logger) OverviewRepo {
	repoLog := baseLog.With("repo", "OverviewRepo")
	return &overviewRepo{db: db, log: repoLog}
}

func (r *overviewRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) ([]*types.CourseOverview, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CourseOverview
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

func (r *overviewRepo) GetByOrgs(ctx context.Context, tx *gorm.DB, orgs []string) ([]*types.CourseOverview, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CourseOverview
	if len(orgs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("org IN ?", orgs).
		Order("course_id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *overviewRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.CourseOverview) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row.UpdatedAt = time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = row.UpdatedAt
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"org", "number", "run", "display_name",
				"start", "end", "advertised_start", "enrollment_start", "enrollment_end",
				"course_image_url", "banner_image_url",
				"self_paced", "lowest_passing_grade", "has_proctored_exams",
				"published_version", "extra", "updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return err
	}
	return nil
}

func (r *overviewRepo) FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Delete(&types.CourseOverview{}).Error; err != nil {
		return err
	}
	return nil
}
