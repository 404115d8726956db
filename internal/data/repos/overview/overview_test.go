package overview

import (
	"context"
	"testing"

	"github.com/yungbote/blockstore/internal/data/repos/testutil"
	types "github.com/yungbote/blockstore/internal/domain"
	"gorm.io/datatypes"
)

func TestOverviewRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewOverviewRepo(db, testutil.Logger(t))

	courseID := "course-v1:EDX+OVR+2024"
	row := &types.CourseOverview{
		CourseID:    courseID,
		Org:         "EDX",
		Number:      "OVR",
		Run:         "2024",
		DisplayName: "Overview Course",
		Extra:       datatypes.JSON([]byte(`{}`)),
	}
	if err := repo.Upsert(ctx, tx, row); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	row.DisplayName = "Renamed"
	if err := repo.Upsert(ctx, tx, row); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	rows, err := repo.GetByCourseIDs(ctx, tx, []string{courseID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByCourseIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].DisplayName != "Renamed" {
		t.Fatalf("display name not updated: %q", rows[0].DisplayName)
	}

	if rows, err := repo.GetByOrgs(ctx, tx, []string{"EDX"}); err != nil || len(rows) == 0 {
		t.Fatalf("GetByOrgs: err=%v len=%d", err, len(rows))
	}

	if err := repo.FullDeleteByCourseIDs(ctx, tx, []string{courseID}); err != nil {
		t.Fatalf("FullDeleteByCourseIDs: %v", err)
	}
	if rows, err := repo.GetByCourseIDs(ctx, tx, []string{courseID}); err != nil || len(rows) != 0 {
		t.Fatalf("after delete: err=%v len=%d", err, len(rows))
	}
}
