package userstate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/blockstore/internal/data/repos/learner"
	"github.com/yungbote/blockstore/internal/data/repos/testutil"
	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/keys"
)

func testTx(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.Tx(t, testutil.DB(t))
}

func TestStateStoreRoundTripAndBranchSharing(t *testing.T) {
	tx := testTx(t)
	ctx := context.Background()
	repo := learner.NewStateRepo(tx, testutil.Logger(t))
	user := uuid.New()

	course := keys.MakeCourseKey("EDX", "US", "2024")
	draft := keys.MakeUsageKey(course.ForBranch(keys.BranchDraft), "problem", "p1")
	published := keys.MakeUsageKey(course.ForBranch(keys.BranchPublished), "problem", "p1")

	s := NewStateStore(repo, user, draft)
	if err := s.SetMany(ctx, map[string]interface{}{"attempts": 2, "done": true}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	// Learner state keys off the undecorated usage: both branch views of the
	// block read the same row.
	s2 := NewStateStore(repo, user, published)
	if v, ok, err := s2.Get(ctx, "done"); err != nil || !ok || v != true {
		t.Fatalf("Get via published key = %v %v %v", v, ok, err)
	}

	if err := s.SetMany(ctx, map[string]interface{}{"attempts": 3}); err != nil {
		t.Fatalf("second SetMany: %v", err)
	}
	if v, ok, err := s.Get(ctx, "done"); err != nil || !ok || v != true {
		t.Fatalf("partial update clobbered sibling field: %v %v %v", v, ok, err)
	}
	if v, _, _ := s.Get(ctx, "attempts"); v != float64(3) {
		t.Fatalf("attempts = %v (%T)", v, v)
	}

	if err := s.DeleteMany(ctx, []string{"done"}); err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "done"); ok {
		t.Fatalf("deleted field still present")
	}
}

func TestStateStoreIsolatesUsersAndUsages(t *testing.T) {
	tx := testTx(t)
	ctx := context.Background()
	repo := learner.NewStateRepo(tx, testutil.Logger(t))
	course := keys.MakeCourseKey("EDX", "ISO", "2024")
	usage := keys.MakeUsageKey(course, "video", "v1")

	alice := uuid.New()
	bob := uuid.New()
	if err := NewStateStore(repo, alice, usage).SetMany(ctx, map[string]interface{}{"position_seconds": 30}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	if _, ok, err := NewStateStore(repo, bob, usage).Get(ctx, "position_seconds"); err != nil || ok {
		t.Fatalf("state leaked across users: ok=%v err=%v", ok, err)
	}
	other := keys.MakeUsageKey(course, "video", "v2")
	if _, ok, err := NewStateStore(repo, alice, other).Get(ctx, "position_seconds"); err != nil || ok {
		t.Fatalf("state leaked across usages: ok=%v err=%v", ok, err)
	}
}

func TestPreferenceStoreSharedAcrossUsagesOfType(t *testing.T) {
	tx := testTx(t)
	ctx := context.Background()
	repo := learner.NewPreferenceRepo(tx, testutil.Logger(t))
	user := uuid.New()

	s := NewPreferenceStore(repo, user, "video")
	if err := s.SetMany(ctx, map[string]interface{}{"playback_speed": 1.5}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	// A second store for the same (user, type) sees the value regardless of
	// which usage triggered the write.
	if v, ok, err := NewPreferenceStore(repo, user, "video").Get(ctx, "playback_speed"); err != nil || !ok || v != 1.5 {
		t.Fatalf("Get = %v %v %v", v, ok, err)
	}
	if _, ok, _ := NewPreferenceStore(repo, user, "problem").Get(ctx, "playback_speed"); ok {
		t.Fatalf("preference leaked across block types")
	}
}

func TestInfoStoreReadsProfileAndRejectsWrites(t *testing.T) {
	tx := testTx(t)
	ctx := context.Background()
	repo := learner.NewInfoRepo(tx, testutil.Logger(t))
	user := uuid.New()

	if err := repo.Upsert(ctx, nil, &types.LearnerInfo{
		UserID: user,
		Info:   datatypes.JSON([]byte(`{"username":"ada","timezone":"UTC"}`)),
	}); err != nil {
		t.Fatalf("seed info: %v", err)
	}

	s := NewInfoStore(repo, user)
	if v, ok, err := s.Get(ctx, "username"); err != nil || !ok || v != "ada" {
		t.Fatalf("Get = %v %v %v", v, ok, err)
	}
	if err := s.SetMany(ctx, map[string]interface{}{"username": "eve"}); err == nil {
		t.Fatalf("user_info write should be rejected")
	}
	if err := s.DeleteMany(ctx, []string{"username"}); err == nil {
		t.Fatalf("user_info delete should be rejected")
	}
}
