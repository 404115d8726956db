package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/blockstore/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedDefinition(tb testing.TB, ctx context.Context, tx *gorm.DB, blockType string) *types.DefinitionDoc {
	tb.Helper()
	d := &types.DefinitionDoc{
		ID:        uuid.New(),
		BlockType: blockType,
		Fields:    datatypes.JSON([]byte(`{}`)),
		EditedBy:  uuid.New(),
		EditedOn:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed definition: %v", err)
	}
	return d
}

func SeedStructure(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID, versionID string) *types.StructureDoc {
	tb.Helper()
	s := &types.StructureDoc{
		VersionID: versionID,
		CourseID:  courseID,
		RootKey:   "course",
		Blocks:    datatypes.JSON([]byte(`{}`)),
		EditedBy:  uuid.New(),
		EditedOn:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed structure: %v", err)
	}
	return s
}

func SeedActiveVersions(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID, draft, published string) *types.ActiveVersions {
	tb.Helper()
	av := &types.ActiveVersions{
		CourseID:         courseID,
		DraftVersion:     draft,
		PublishedVersion: published,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(av).Error; err != nil {
		tb.Fatalf("seed active versions: %v", err)
	}
	return av
}

func SeedLearnerState(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, usageID string) *types.LearnerState {
	tb.Helper()
	s := &types.LearnerState{
		ID:      uuid.New(),
		UserID:  userID,
		UsageID: usageID,
		State:   datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed learner state: %v", err)
	}
	return s
}

func SeedOverview(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID, org, displayName string) *types.CourseOverview {
	tb.Helper()
	o := &types.CourseOverview{
		CourseID:    courseID,
		Org:         org,
		Number:      "DEMO",
		Run:         "2024",
		DisplayName: displayName,
		Extra:       datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed overview: %v", err)
	}
	return o
}
