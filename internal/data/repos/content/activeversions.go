package content

import (
	"context"
	"time"

	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"gorm.io/gorm"
)

// Branch column names accepted by CompareAndSetHead.
const (
	DraftColumn     = "draft_version"
	PublishedColumn = "published_version"
)

type ActiveVersionsRepo interface {
	Create(ctx context.Context, tx *gorm.DB, av *types.ActiveVersions) error
	GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) ([]*types.ActiveVersions, error)
	// CompareAndSetHead atomically moves one branch pointer from expected to
	// next. Returns false without error when the head moved underneath the
	// caller; the caller maps that to a version conflict.
	CompareAndSetHead(ctx context.Context, tx *gorm.DB, courseID, column, expected, next string) (bool, error)
	FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) error
}

type activeVersionsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActiveVersionsRepo(db *gorm.DB, baseLog *logger.Logger) ActiveVersionsRepo {
	repoLog := baseLog.With("repo", "ActiveVersionsRepo")
	return &activeVersionsRepo{db: db, log: repoLog}
}

func (r *activeVersionsRepo) Create(ctx context.Context, tx *gorm.DB, av *types.ActiveVersions) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(av).Error; err != nil {
		return err
	}
	return nil
}

func (r *activeVersionsRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) ([]*types.ActiveVersions, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ActiveVersions
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

func (r *activeVersionsRepo) CompareAndSetHead(ctx context.Context, tx *gorm.DB, courseID, column, expected, next string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if column != DraftColumn && column != PublishedColumn {
		return false, gorm.ErrInvalidField
	}

	res := transaction.WithContext(ctx).
		Model(&types.ActiveVersions{}).
		Where("course_id = ? AND "+column+" = ?", courseID, expected).
		Updates(map[string]interface{}{
			column:       next,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *activeVersionsRepo) FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Delete(&types.ActiveVersions{}).Error; err != nil {
		return err
	}
	return nil
}
