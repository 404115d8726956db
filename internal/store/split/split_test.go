package split

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/blockstore/internal/block"
	"github.com/yungbote/blockstore/internal/block/basic"
	"github.com/yungbote/blockstore/internal/cache"
	"github.com/yungbote/blockstore/internal/data/repos/content"
	"github.com/yungbote/blockstore/internal/data/repos/learner"
	"github.com/yungbote/blockstore/internal/data/repos/testutil"
	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/keys"
	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"github.com/yungbote/blockstore/internal/pubsub"
	"github.com/yungbote/blockstore/internal/store"
)

type testEnv struct {
	store  *Store
	hub    *pubsub.Hub
	states learner.StateRepo
	user   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	reg := block.NewRegistry()
	if err := basic.RegisterAll(reg); err != nil {
		t.Fatalf("register blocks: %v", err)
	}

	hub := pubsub.NewHub(log)
	states := learner.NewStateRepo(tx, log)
	s := New(
		content.NewDefinitionRepo(tx, log),
		content.NewStructureRepo(tx, log),
		content.NewActiveVersionsRepo(tx, log),
		states,
		reg,
		hub,
		cache.NewStructureCache(logger.NewNop(), nil, 0),
		log,
	)
	return &testEnv{store: s, hub: hub, states: states, user: uuid.New()}
}

func (e *testEnv) mustCreateCourse(t *testing.T, org, course, run string) *store.Item {
	t.Helper()
	root, err := e.store.CreateCourse(context.Background(), e.user, org, course, run)
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	return root
}

func (e *testEnv) mustCreateItem(t *testing.T, parent keys.UsageKey, blockType, blockID string, fv map[string]interface{}) *store.Item {
	t.Helper()
	it, err := e.store.CreateItem(context.Background(), e.user, parent, blockType, blockID, fv)
	if err != nil {
		t.Fatalf("CreateItem %s/%s: %v", blockType, blockID, err)
	}
	return it
}

func TestCreateCourseInitializesBothBranches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "SPLIT", "2024")
	if root.BlockType != "course" {
		t.Fatalf("root type = %q", root.BlockType)
	}

	course := keys.MakeCourseKey("EDX", "SPLIT", "2024")
	draft, err := env.store.GetCourse(ctx, course.ForBranch(keys.BranchDraft), 0)
	if err != nil {
		t.Fatalf("GetCourse draft: %v", err)
	}
	published, err := env.store.GetCourse(ctx, course.ForBranch(keys.BranchPublished), 0)
	if err != nil {
		t.Fatalf("GetCourse published: %v", err)
	}
	if draft.Version != published.Version {
		t.Fatalf("fresh branches diverged: %s vs %s", draft.Version, published.Version)
	}

	if _, err := env.store.CreateCourse(ctx, env.user, "EDX", "SPLIT", "2024"); !apperr.Is(err, apperr.ErrDuplicateItem) {
		t.Fatalf("duplicate CreateCourse err = %v", err)
	}
}

func TestCreateItemScopesAndDraftOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "SCOPES", "2024")
	chapter := env.mustCreateItem(t, root.Usage, "chapter", "ch1", map[string]interface{}{
		"display_name": "Week 1",
	})
	html := env.mustCreateItem(t, chapter.Usage, "html", "intro", map[string]interface{}{
		"display_name": "Intro",
		"data":         "<p>hello</p>",
		"custom_attr":  "kept",
	})

	got, err := env.store.GetItem(ctx, html.Usage)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Content["data"] != "<p>hello</p>" {
		t.Fatalf("content data = %v", got.Content["data"])
	}
	if got.Settings["display_name"] != "Intro" || got.Settings["custom_attr"] != "kept" {
		t.Fatalf("settings = %v", got.Settings)
	}
	if _, ok := got.Settings["data"]; ok {
		t.Fatalf("content field leaked into settings")
	}
	if !got.HasParent || got.Parent != chapter.Usage {
		t.Fatalf("parent = %v (has=%v)", got.Parent, got.HasParent)
	}

	// New blocks live on draft only until published.
	if _, err := env.store.GetItem(ctx, html.Usage.ForBranch(keys.BranchPublished)); !apperr.Is(err, apperr.ErrItemNotFound) {
		t.Fatalf("published read of unpublished block err = %v", err)
	}

	if _, err := env.store.CreateItem(ctx, env.user, chapter.Usage, "html", "intro", nil); !apperr.Is(err, apperr.ErrDuplicateItem) {
		t.Fatalf("duplicate CreateItem err = %v", err)
	}
	if _, err := env.store.CreateItem(ctx, env.user, html.Usage, "video", "v1", nil); err == nil {
		t.Fatalf("CreateItem under childless block should fail")
	}
}

func TestPublishCopiesSubtreeAndIsolatesDraftEdits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var signals int
	env.hub.Subscribe(pubsub.CoursePublished, "test-counter", func(context.Context, keys.CourseKey) error {
		signals++
		return nil
	})

	root := env.mustCreateCourse(t, "EDX", "PUB", "2024")
	chapter := env.mustCreateItem(t, root.Usage, "chapter", "ch1", nil)
	html := env.mustCreateItem(t, chapter.Usage, "html", "intro", map[string]interface{}{"data": "v1"})

	// The chapter's parent is the root, which is already on the published
	// branch, so a subtree publish lands in place.
	if err := env.store.Publish(ctx, chapter.Usage, env.user); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if signals != 1 {
		t.Fatalf("course_published fired %d times", signals)
	}

	pubHTML, err := env.store.GetItem(ctx, html.Usage.ForBranch(keys.BranchPublished))
	if err != nil {
		t.Fatalf("published GetItem: %v", err)
	}
	if pubHTML.Content["data"] != "v1" {
		t.Fatalf("published content = %v", pubHTML.Content["data"])
	}

	// Draft edits stay invisible on published until the next publish.
	draftHTML, err := env.store.GetItem(ctx, html.Usage)
	if err != nil {
		t.Fatalf("draft GetItem: %v", err)
	}
	draftHTML.Content["data"] = "v2"
	if _, err := env.store.UpdateItem(ctx, draftHTML, env.user); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	pubHTML, err = env.store.GetItem(ctx, html.Usage.ForBranch(keys.BranchPublished))
	if err != nil {
		t.Fatalf("published GetItem after draft edit: %v", err)
	}
	if pubHTML.Content["data"] != "v1" {
		t.Fatalf("draft edit leaked to published: %v", pubHTML.Content["data"])
	}

	if err := env.store.Publish(ctx, chapter.Usage, env.user); err != nil {
		t.Fatalf("re-publish: %v", err)
	}
	pubHTML, err = env.store.GetItem(ctx, html.Usage.ForBranch(keys.BranchPublished))
	if err != nil {
		t.Fatalf("published GetItem after re-publish: %v", err)
	}
	if pubHTML.Content["data"] != "v2" {
		t.Fatalf("re-publish did not carry the edit: %v", pubHTML.Content["data"])
	}
}

func TestUnpublishRemovesFromPublishedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "UNPUB", "2024")
	chapter := env.mustCreateItem(t, root.Usage, "chapter", "ch1", nil)
	if err := env.store.Publish(ctx, chapter.Usage, env.user); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if err := env.store.Unpublish(ctx, chapter.Usage, env.user); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	if _, err := env.store.GetItem(ctx, chapter.Usage.ForBranch(keys.BranchPublished)); !apperr.Is(err, apperr.ErrItemNotFound) {
		t.Fatalf("published read after unpublish err = %v", err)
	}
	if _, err := env.store.GetItem(ctx, chapter.Usage); err != nil {
		t.Fatalf("draft copy should survive unpublish: %v", err)
	}
}

func TestUpdateItemStaleVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "CONFLICT", "2024")
	html := env.mustCreateItem(t, root.Usage, "html", "h1", map[string]interface{}{"data": "a"})

	stale, err := env.store.GetItem(ctx, html.Usage)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}

	fresh, err := env.store.GetItem(ctx, html.Usage)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	fresh.Content["data"] = "b"
	if _, err := env.store.UpdateItem(ctx, fresh, env.user); err != nil {
		t.Fatalf("first UpdateItem: %v", err)
	}

	stale.Content["data"] = "c"
	_, err = env.store.UpdateItem(ctx, stale, env.user)
	var conflict *apperr.VersionConflictError
	if !apperr.As(err, &conflict) {
		t.Fatalf("stale UpdateItem err = %v", err)
	}
	if conflict.ExpectedVersion != stale.Version || conflict.CurrentVersion == stale.Version {
		t.Fatalf("conflict detail = %+v", conflict)
	}

	// Rebase on the current head and retry.
	retry, err := env.store.GetItem(ctx, html.Usage)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	retry.Content["data"] = "c"
	if _, err := env.store.UpdateItem(ctx, retry, env.user); err != nil {
		t.Fatalf("rebased UpdateItem: %v", err)
	}
}

func TestContentAddressedVersions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "ADDR", "2024")
	before := root.Version

	html := env.mustCreateItem(t, root.Usage, "html", "h1", nil)
	if err := env.store.DeleteItem(ctx, html.Usage, env.user); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	after, err := env.store.GetCourse(ctx, root.Usage.Course, 0)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if after.Version != before {
		t.Fatalf("identical trees got distinct versions: %s vs %s", before, after.Version)
	}
}

func TestDeleteItemCascadesSubtreeAndLearnerState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "DEL", "2024")
	chapter := env.mustCreateItem(t, root.Usage, "chapter", "ch1", nil)
	html := env.mustCreateItem(t, chapter.Usage, "html", "h1", nil)

	userID := uuid.New()
	usageID := keys.MakeUsageKey(root.Usage.Course.Base(), "html", "h1").String()
	if err := env.states.Upsert(ctx, nil, &types.LearnerState{
		ID:      uuid.New(),
		UserID:  userID,
		UsageID: usageID,
		State:   datatypes.JSON([]byte(`{"done":true}`)),
	}); err != nil {
		t.Fatalf("seed learner state: %v", err)
	}

	if err := env.store.DeleteItem(ctx, root.Usage, env.user); err == nil {
		t.Fatalf("deleting the root should fail")
	}
	if err := env.store.DeleteItem(ctx, chapter.Usage, env.user); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if _, err := env.store.GetItem(ctx, html.Usage); !apperr.Is(err, apperr.ErrItemNotFound) {
		t.Fatalf("descendant survived delete: %v", err)
	}
	if ok, err := env.store.HasItem(ctx, chapter.Usage); err != nil || ok {
		t.Fatalf("HasItem after delete = %v, %v", ok, err)
	}

	rows, err := env.states.GetByUserAndUsages(ctx, nil, userID, []string{usageID})
	if err != nil {
		t.Fatalf("learner state read: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("learner state survived delete: %d rows", len(rows))
	}
}

func TestGetItemsQualifiersAndOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "QUERY", "2024")
	chapter := env.mustCreateItem(t, root.Usage, "chapter", "ch1", nil)
	env.mustCreateItem(t, chapter.Usage, "html", "h1", map[string]interface{}{"display_name": "One"})
	env.mustCreateItem(t, chapter.Usage, "video", "v1", nil)
	env.mustCreateItem(t, chapter.Usage, "html", "h2", map[string]interface{}{"display_name": "Two"})

	htmls, err := env.store.GetItems(ctx, root.Usage.Course, store.Qualifiers{BlockType: "html"})
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(htmls) != 2 || htmls[0].Usage.BlockID != "h1" || htmls[1].Usage.BlockID != "h2" {
		t.Fatalf("html query = %v", htmls)
	}

	named, err := env.store.GetItems(ctx, root.Usage.Course, store.Qualifiers{
		Settings: map[string]interface{}{"display_name": "Two"},
	})
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(named) != 1 || named[0].Usage.BlockID != "h2" {
		t.Fatalf("settings query = %v", named)
	}
}

func TestGetCourseDepth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "DEPTH", "2024")
	chapter := env.mustCreateItem(t, root.Usage, "chapter", "ch1", nil)
	env.mustCreateItem(t, chapter.Usage, "html", "h1", nil)

	shallow, err := env.store.GetCourse(ctx, root.Usage.Course, 0)
	if err != nil {
		t.Fatalf("GetCourse depth 0: %v", err)
	}
	if len(shallow.ChildItems) != 0 || len(shallow.Children) != 1 {
		t.Fatalf("depth 0 inflation = %d child items, %d children", len(shallow.ChildItems), len(shallow.Children))
	}

	deep, err := env.store.GetCourse(ctx, root.Usage.Course, -1)
	if err != nil {
		t.Fatalf("GetCourse full depth: %v", err)
	}
	if len(deep.ChildItems) != 1 || len(deep.ChildItems[0].ChildItems) != 1 {
		t.Fatalf("full inflation missed levels: %+v", deep.ChildItems)
	}
	if deep.ChildItems[0].ChildItems[0].Usage.BlockID != "h1" {
		t.Fatalf("wrong leaf: %v", deep.ChildItems[0].ChildItems[0].Usage)
	}
}

func TestUpdateItemReordersChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "ORDER", "2024")
	chapter := env.mustCreateItem(t, root.Usage, "chapter", "ch1", nil)
	a := env.mustCreateItem(t, chapter.Usage, "html", "a", nil)
	b := env.mustCreateItem(t, chapter.Usage, "html", "b", nil)

	ch, err := env.store.GetItem(ctx, chapter.Usage)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	ch.Children = []keys.UsageKey{b.Usage, a.Usage}
	updated, err := env.store.UpdateItem(ctx, ch, env.user)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if updated.Children[0].BlockID != "b" || updated.Children[1].BlockID != "a" {
		t.Fatalf("order = %v", updated.Children)
	}

	ch, err = env.store.GetItem(ctx, chapter.Usage)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	ch.Children = []keys.UsageKey{a.Usage}
	if _, err := env.store.UpdateItem(ctx, ch, env.user); err == nil {
		t.Fatalf("dropping a child via UpdateItem should fail")
	}
}

func TestBulkOperationsBatchesHeadsAndSignal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var signals int
	env.hub.Subscribe(pubsub.CoursePublished, "test-counter", func(context.Context, keys.CourseKey) error {
		signals++
		return nil
	})

	root := env.mustCreateCourse(t, "EDX", "BULK", "2024")
	course := root.Usage.Course
	entry := root.Version

	err := env.store.BulkOperations(ctx, course, func(bctx context.Context) error {
		chapter, err := env.store.CreateItem(bctx, env.user, root.Usage, "chapter", "ch1", nil)
		if err != nil {
			return err
		}
		if _, err := env.store.CreateItem(bctx, env.user, chapter.Usage, "html", "h1", nil); err != nil {
			return err
		}
		if err := env.store.Publish(bctx, chapter.Usage, env.user); err != nil {
			return err
		}
		if signals != 0 {
			t.Fatalf("signal fired inside bulk scope")
		}

		// Readers outside the scope still see the entry head.
		outside, err := env.store.GetCourse(context.Background(), course, 0)
		if err != nil {
			return err
		}
		if outside.Version != entry {
			t.Fatalf("bulk mutations visible outside scope: %s", outside.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("BulkOperations: %v", err)
	}

	if signals != 1 {
		t.Fatalf("course_published fired %d times after bulk", signals)
	}
	after, err := env.store.GetCourse(ctx, course, -1)
	if err != nil {
		t.Fatalf("GetCourse after bulk: %v", err)
	}
	if after.Version == entry {
		t.Fatalf("bulk commit did not move the draft head")
	}
	if len(after.ChildItems) != 1 || len(after.ChildItems[0].ChildItems) != 1 {
		t.Fatalf("bulk tree incomplete: %+v", after.ChildItems)
	}
}

func TestPublishedReadsAreVersionAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateCourse(t, "EDX", "SNAP", "2024")
	chapter := env.mustCreateItem(t, root.Usage, "chapter", "ch1", nil)
	env.mustCreateItem(t, chapter.Usage, "html", "intro", map[string]interface{}{"data": "old"})
	if err := env.store.Publish(ctx, root.Usage, env.user); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	published := root.Usage.Course.ForBranch(keys.BranchPublished)
	before, err := env.store.GetCourse(ctx, published, -1)
	if err != nil {
		t.Fatalf("GetCourse published: %v", err)
	}
	oldVersion := before.Version

	var versions func(it *store.Item, seen map[string]bool)
	versions = func(it *store.Item, seen map[string]bool) {
		seen[it.Version] = true
		for _, c := range it.ChildItems {
			versions(c, seen)
		}
	}
	var find func(it *store.Item, blockType, blockID string) *store.Item
	find = func(it *store.Item, blockType, blockID string) *store.Item {
		if it.BlockType == blockType && it.Usage.BlockID == blockID {
			return it
		}
		for _, c := range it.ChildItems {
			if got := find(c, blockType, blockID); got != nil {
				return got
			}
		}
		return nil
	}

	// New draft content lands and republishes while a reader holds the old
	// version.
	env.mustCreateItem(t, chapter.Usage, "html", "extra", map[string]interface{}{"data": "new"})
	if err := env.store.Publish(ctx, root.Usage, env.user); err != nil {
		t.Fatalf("republish: %v", err)
	}

	pinned, err := env.store.GetCourse(ctx, published.ForVersion(oldVersion), -1)
	if err != nil {
		t.Fatalf("GetCourse pinned: %v", err)
	}
	seen := map[string]bool{}
	versions(pinned, seen)
	if len(seen) != 1 || !seen[oldVersion] {
		t.Fatalf("pinned read mixed versions: %v", seen)
	}
	if find(pinned, "html", "extra") != nil {
		t.Fatalf("pinned read saw post-publish content")
	}
	if find(pinned, "html", "intro") == nil {
		t.Fatalf("pinned read lost pre-publish content")
	}

	fresh, err := env.store.GetCourse(ctx, published, -1)
	if err != nil {
		t.Fatalf("GetCourse fresh: %v", err)
	}
	if fresh.Version == oldVersion {
		t.Fatalf("head did not advance on republish")
	}
	seen = map[string]bool{}
	versions(fresh, seen)
	if len(seen) != 1 || !seen[fresh.Version] {
		t.Fatalf("fresh read mixed versions: %v", seen)
	}
	if find(fresh, "html", "extra") == nil {
		t.Fatalf("fresh read missing post-publish content")
	}
}
