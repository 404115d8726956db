// Package store defines the modulestore contract: the persistence facade for
// course structure and block field values. A Router fronts the concrete
// backends, picking one per course key shape: legacy slash-style keys that
// were imported from disk go to the XML store, everything else to the split
// store.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/platform/logger"
)

// Item is the storage-level view of one block usage: its placement, its
// definition reference, and its content- and settings-scope field values.
// The runtime turns Items into live block instances.
type Item struct {
	Usage        keys.UsageKey
	BlockType    string
	DefinitionID uuid.UUID

	Parent    keys.UsageKey
	HasParent bool
	Children  []keys.UsageKey

	// Content holds definition (content-scope) fields, Settings the
	// per-usage overrides. Both maps are owned by the caller after a read.
	Content  map[string]interface{}
	Settings map[string]interface{}

	// ChildItems is populated to the depth requested on GetCourse.
	ChildItems []*Item

	// Version is the structure version this item was read from; writes
	// based on it conflict-detect against the branch head.
	Version string
}

// SettingString reads a settings field with a fallback, saving callers the
// two-level type assertion.
func (it *Item) SettingString(name, fallback string) string {
	if v, ok := it.Settings[name]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// Qualifiers filter GetItems results. Zero values match everything.
type Qualifiers struct {
	BlockType string
	BlockIDs  []string
	// Settings matches blocks whose settings fields equal every given value.
	Settings map[string]interface{}
}

func (q Qualifiers) matches(it *Item) bool {
	if q.BlockType != "" && it.BlockType != q.BlockType {
		return false
	}
	if len(q.BlockIDs) > 0 {
		found := false
		for _, id := range q.BlockIDs {
			if it.Usage.BlockID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for name, want := range q.Settings {
		if it.Settings[name] != want {
			return false
		}
	}
	return true
}

// Matches reports whether the item satisfies the qualifiers. Exported for
// backends living in their own packages.
func (q Qualifiers) Matches(it *Item) bool { return q.matches(it) }

// Modulestore is the persistence contract. All operations are idempotent on
// retry unless noted. Branch selection comes from the course key: an empty
// branch means draft.
type Modulestore interface {
	// GetCourse returns the course root. depth bounds eager child
	// inflation: 0 loads just the root, negative loads the whole tree.
	GetCourse(ctx context.Context, course keys.CourseKey, depth int) (*Item, error)
	GetItem(ctx context.Context, usage keys.UsageKey) (*Item, error)
	// GetItems returns matching blocks in structure (depth-first) order.
	GetItems(ctx context.Context, course keys.CourseKey, q Qualifiers) ([]*Item, error)
	HasItem(ctx context.Context, usage keys.UsageKey) (bool, error)

	// CreateCourse initializes both branches to an empty root structure.
	CreateCourse(ctx context.Context, userID uuid.UUID, org, course, run string) (*Item, error)
	// CreateItem places a new block under parent. An empty blockID mints a
	// fresh unique one; initial fields merge over the type's defaults.
	CreateItem(ctx context.Context, userID uuid.UUID, parent keys.UsageKey, blockType, blockID string, fieldValues map[string]interface{}) (*Item, error)
	// UpdateItem persists the item's Content and Settings under a new
	// version. A stale Item.Version raises VersionConflictError.
	UpdateItem(ctx context.Context, item *Item, userID uuid.UUID) (*Item, error)
	// DeleteItem removes the usage (and its subtree) from its parent and
	// drops learner state for the removed usages.
	DeleteItem(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error
	DeleteCourse(ctx context.Context, course keys.CourseKey, userID uuid.UUID) error

	// Publish copies the draft subtree rooted at usage to the published
	// branch atomically and emits course_published.
	Publish(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error
	// Unpublish removes the subtree from the published branch, leaving
	// draft intact.
	Unpublish(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error

	// BulkOperations defers version bumps and signal emission: all
	// mutations inside fn land as one version per touched branch and at
	// most one course_published signal.
	BulkOperations(ctx context.Context, course keys.CourseKey, fn func(ctx context.Context) error) error
}

// XMLBackend is the read-only store for disk-imported courses.
type XMLBackend interface {
	Modulestore
	HasCourse(course keys.CourseKey) bool
}

// Router is the single facade callers hold.
type Router struct {
	split Modulestore
	xml   XMLBackend
	log   *logger.Logger
}

func NewRouter(split Modulestore, xml XMLBackend, baseLog *logger.Logger) *Router {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &Router{split: split, xml: xml, log: baseLog.With("service", "ModulestoreRouter")}
}

func (r *Router) forCourse(course keys.CourseKey) Modulestore {
	if r.xml != nil && course.IsDeprecated() && r.xml.HasCourse(course) {
		return r.xml
	}
	return r.split
}

func (r *Router) GetCourse(ctx context.Context, course keys.CourseKey, depth int) (*Item, error) {
	return r.forCourse(course).GetCourse(ctx, course, depth)
}

func (r *Router) GetItem(ctx context.Context, usage keys.UsageKey) (*Item, error) {
	return r.forCourse(usage.Course).GetItem(ctx, usage)
}

func (r *Router) GetItems(ctx context.Context, course keys.CourseKey, q Qualifiers) ([]*Item, error) {
	return r.forCourse(course).GetItems(ctx, course, q)
}

func (r *Router) HasItem(ctx context.Context, usage keys.UsageKey) (bool, error) {
	return r.forCourse(usage.Course).HasItem(ctx, usage)
}

func (r *Router) CreateCourse(ctx context.Context, userID uuid.UUID, org, course, run string) (*Item, error) {
	return r.split.CreateCourse(ctx, userID, org, course, run)
}

func (r *Router) CreateItem(ctx context.Context, userID uuid.UUID, parent keys.UsageKey, blockType, blockID string, fieldValues map[string]interface{}) (*Item, error) {
	return r.forCourse(parent.Course).CreateItem(ctx, userID, parent, blockType, blockID, fieldValues)
}

func (r *Router) UpdateItem(ctx context.Context, item *Item, userID uuid.UUID) (*Item, error) {
	return r.forCourse(item.Usage.Course).UpdateItem(ctx, item, userID)
}

func (r *Router) DeleteItem(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error {
	return r.forCourse(usage.Course).DeleteItem(ctx, usage, userID)
}

func (r *Router) DeleteCourse(ctx context.Context, course keys.CourseKey, userID uuid.UUID) error {
	return r.forCourse(course).DeleteCourse(ctx, course, userID)
}

func (r *Router) Publish(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error {
	return r.forCourse(usage.Course).Publish(ctx, usage, userID)
}

func (r *Router) Unpublish(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error {
	return r.forCourse(usage.Course).Unpublish(ctx, usage, userID)
}

func (r *Router) BulkOperations(ctx context.Context, course keys.CourseKey, fn func(ctx context.Context) error) error {
	return r.forCourse(course).BulkOperations(ctx, course, fn)
}

var _ Modulestore = (*Router)(nil)
