// Package split implements the versioned, draft/published modulestore backend.
// Course trees live as immutable content-addressed structure documents; each
// course carries one active-versions row whose branch pointers move by
// compare-and-swap. Writers never block readers: a read resolves a branch head
// once and works against that frozen version.
package split

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/blockstore/internal/block"
	"github.com/yungbote/blockstore/internal/cache"
	"github.com/yungbote/blockstore/internal/data/repos/content"
	"github.com/yungbote/blockstore/internal/data/repos/learner"
	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"github.com/yungbote/blockstore/internal/pubsub"
	"github.com/yungbote/blockstore/internal/store"
)

// Store is the split modulestore.
type Store struct {
	defs     content.DefinitionRepo
	structs  content.StructureRepo
	actives  content.ActiveVersionsRepo
	states   learner.StateRepo
	registry *block.Registry
	hub      *pubsub.Hub
	cache    *cache.StructureCache
	log      *logger.Logger
}

func New(
	defs content.DefinitionRepo,
	structs content.StructureRepo,
	actives content.ActiveVersionsRepo,
	states learner.StateRepo,
	registry *block.Registry,
	hub *pubsub.Hub,
	structCache *cache.StructureCache,
	baseLog *logger.Logger,
) *Store {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &Store{
		defs:     defs,
		structs:  structs,
		actives:  actives,
		states:   states,
		registry: registry,
		hub:      hub,
		cache:    structCache,
		log:      baseLog.With("service", "SplitModulestore"),
	}
}

const rootBlockType = "course"

func branchOf(course keys.CourseKey) string {
	if course.Branch != "" {
		return course.Branch
	}
	return keys.BranchDraft
}

func branchColumn(branch string) string {
	if branch == keys.BranchPublished {
		return content.PublishedColumn
	}
	return content.DraftColumn
}

// headVersion resolves the current version id of one branch, honoring a bulk
// scope's working heads when one is active for the course.
func (s *Store) headVersion(ctx context.Context, course keys.CourseKey, branch string) (string, error) {
	id := course.ID()
	if bs := bulkFrom(ctx, id); bs != nil {
		draft, published := bs.heads()
		if branch == keys.BranchPublished {
			return published, nil
		}
		return draft, nil
	}

	rows, err := s.actives.GetByCourseIDs(ctx, nil, []string{id})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", apperr.ErrCourseNotFound
	}
	if branch == keys.BranchPublished {
		return rows[0].PublishedVersion, nil
	}
	return rows[0].DraftVersion, nil
}

// loadStructure inflates one structure version through the read-through cache.
func (s *Store) loadStructure(ctx context.Context, course keys.CourseKey, branch, version string) (*structure, error) {
	if version == "" {
		return nil, apperr.ErrCourseNotFound
	}
	raw, err := s.cache.Get(ctx, course.Base(), branch, version, func(ctx context.Context) ([]byte, error) {
		docs, err := s.structs.GetByVersionIDs(ctx, nil, []string{version})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("structure %s missing for course %s", version, course.ID())
		}
		return []byte(docs[0].Blocks), nil
	})
	if err != nil {
		return nil, err
	}
	return decodeStructure(raw)
}

// loadHead resolves the branch head, or the pinned version when the key
// carries one. A pinned read never touches the head pointer, so it stays on
// one immutable structure no matter what publishes land meanwhile.
func (s *Store) loadHead(ctx context.Context, course keys.CourseKey, branch string) (*structure, string, error) {
	version := course.Version
	if version == "" {
		var err error
		version, err = s.headVersion(ctx, course, branch)
		if err != nil {
			return nil, "", err
		}
	}
	st, err := s.loadStructure(ctx, course, branch, version)
	if err != nil {
		return nil, "", err
	}
	return st, version, nil
}

// commit persists st as a new structure version and moves the branch head from
// expected to it. Inside a bulk scope the head move is deferred to the bulk
// commit; otherwise a lost compare-and-swap surfaces as VersionConflictError.
func (s *Store) commit(ctx context.Context, course keys.CourseKey, branch string, st *structure, expected string, userID uuid.UUID) (string, error) {
	encoded, err := encodeStructure(st)
	if err != nil {
		return "", err
	}
	id := course.ID()
	next := versionID(id, encoded)
	if next == expected {
		return expected, nil
	}

	doc := &types.StructureDoc{
		VersionID:       next,
		CourseID:        id,
		RootKey:         st.Root.String(),
		Blocks:          datatypes.JSON(encoded),
		EditedBy:        userID,
		EditedOn:        time.Now().UTC(),
		PreviousVersion: expected,
	}
	if _, err := s.structs.Create(ctx, nil, []*types.StructureDoc{doc}); err != nil {
		return "", err
	}

	if bs := bulkFrom(ctx, id); bs != nil {
		bs.setHead(branchColumn(branch), next)
		return next, nil
	}

	ok, err := s.actives.CompareAndSetHead(ctx, nil, id, branchColumn(branch), expected, next)
	if err != nil {
		return "", err
	}
	if !ok {
		current, herr := s.headVersion(ctx, course, branch)
		if herr != nil {
			current = "unknown"
		}
		return "", &apperr.VersionConflictError{
			CourseID:        id,
			Branch:          branch,
			ExpectedVersion: expected,
			CurrentVersion:  current,
		}
	}
	return next, nil
}

func (s *Store) emitPublished(ctx context.Context, course keys.CourseKey) {
	if bs := bulkFrom(ctx, course.ID()); bs != nil {
		bs.markPublished()
		return
	}
	s.hub.Emit(ctx, pubsub.CoursePublished, course.Base())
}

// Reads

func (s *Store) GetCourse(ctx context.Context, course keys.CourseKey, depth int) (*store.Item, error) {
	branch := branchOf(course)
	st, version, err := s.loadHead(ctx, course, branch)
	if err != nil {
		return nil, err
	}
	return s.inflate(ctx, course, st, version, st.Root, depth)
}

func (s *Store) GetItem(ctx context.Context, usage keys.UsageKey) (*store.Item, error) {
	branch := branchOf(usage.Course)
	st, version, err := s.loadHead(ctx, usage.Course, branch)
	if err != nil {
		return nil, err
	}
	k := localKeyOf(usage)
	if _, ok := st.Blocks[k]; !ok {
		return nil, apperr.ErrItemNotFound
	}
	return s.inflate(ctx, usage.Course, st, version, k, 0)
}

func (s *Store) GetItems(ctx context.Context, course keys.CourseKey, q store.Qualifiers) ([]*store.Item, error) {
	branch := branchOf(course)
	st, version, err := s.loadHead(ctx, course, branch)
	if err != nil {
		return nil, err
	}

	order := st.order()
	defFields, err := s.definitionFields(ctx, st, order)
	if err != nil {
		return nil, err
	}

	var out []*store.Item
	for _, k := range order {
		it := s.buildItem(course, st, version, k, defFields[st.Blocks[k].Definition])
		if q.Matches(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) HasItem(ctx context.Context, usage keys.UsageKey) (bool, error) {
	branch := branchOf(usage.Course)
	st, _, err := s.loadHead(ctx, usage.Course, branch)
	if err != nil {
		if apperr.Is(err, apperr.ErrCourseNotFound) {
			return false, nil
		}
		return false, err
	}
	_, ok := st.Blocks[localKeyOf(usage)]
	return ok, nil
}

// inflate builds the item for k, eagerly materializing ChildItems to depth.
// depth 0 stops at k itself; a negative depth loads the whole subtree.
func (s *Store) inflate(ctx context.Context, course keys.CourseKey, st *structure, version string, k localKey, depth int) (*store.Item, error) {
	wanted := map[localKey]struct{}{}
	var collect func(cur localKey, remaining int)
	collect = func(cur localKey, remaining int) {
		n, ok := st.Blocks[cur]
		if !ok {
			return
		}
		wanted[cur] = struct{}{}
		if remaining == 0 {
			return
		}
		for _, c := range n.Children {
			collect(c, remaining-1)
		}
	}
	collect(k, depth)

	order := make([]localKey, 0, len(wanted))
	for wk := range wanted {
		order = append(order, wk)
	}
	defFields, err := s.definitionFields(ctx, st, order)
	if err != nil {
		return nil, err
	}

	var build func(cur localKey, remaining int) *store.Item
	build = func(cur localKey, remaining int) *store.Item {
		n := st.Blocks[cur]
		it := s.buildItem(course, st, version, cur, defFields[n.Definition])
		if remaining == 0 {
			return it
		}
		for _, c := range n.Children {
			if _, ok := st.Blocks[c]; !ok {
				continue
			}
			it.ChildItems = append(it.ChildItems, build(c, remaining-1))
		}
		return it
	}
	return build(k, depth), nil
}

// definitionFields batch-loads and decodes the definitions behind the given
// block keys.
func (s *Store) definitionFields(ctx context.Context, st *structure, ks []localKey) (map[uuid.UUID]map[string]interface{}, error) {
	idSet := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(ks))
	for _, k := range ks {
		n, ok := st.Blocks[k]
		if !ok {
			continue
		}
		if _, seen := idSet[n.Definition]; seen {
			continue
		}
		idSet[n.Definition] = struct{}{}
		ids = append(ids, n.Definition)
	}

	docs, err := s.defs.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]map[string]interface{}, len(docs))
	for _, doc := range docs {
		decoded := map[string]interface{}{}
		if len(doc.Fields) > 0 {
			if err := json.Unmarshal(doc.Fields, &decoded); err != nil {
				return nil, fmt.Errorf("decode definition %s: %w", doc.ID, err)
			}
		}
		out[doc.ID] = decoded
	}
	return out, nil
}

func (s *Store) buildItem(course keys.CourseKey, st *structure, version string, k localKey, defFields map[string]interface{}) *store.Item {
	n := st.Blocks[k]

	it := &store.Item{
		Usage:        keys.MakeUsageKey(course, k.Type, k.ID),
		BlockType:    k.Type,
		DefinitionID: n.Definition,
		Version:      version,
		Content:      map[string]interface{}{},
		Settings:     map[string]interface{}{},
	}
	for name, v := range defFields {
		it.Content[name] = v
	}
	for name, v := range n.Fields {
		it.Settings[name] = v
	}
	for _, c := range n.Children {
		it.Children = append(it.Children, keys.MakeUsageKey(course, c.Type, c.ID))
	}
	if pk, ok := st.parentOf(k); ok {
		it.Parent = keys.MakeUsageKey(course, pk.Type, pk.ID)
		it.HasParent = true
	}
	return it
}

// Writes

func (s *Store) CreateCourse(ctx context.Context, userID uuid.UUID, org, course, run string) (*store.Item, error) {
	key := keys.MakeCourseKey(org, course, run)
	id := key.ID()

	existing, err := s.actives.GetByCourseIDs(ctx, nil, []string{id})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("course %s: %w", id, apperr.ErrDuplicateItem)
	}

	now := time.Now().UTC()
	def := &types.DefinitionDoc{
		ID:        uuid.New(),
		BlockType: rootBlockType,
		Fields:    datatypes.JSON([]byte("{}")),
		EditedBy:  userID,
		EditedOn:  now,
	}
	if _, err := s.defs.Create(ctx, nil, []*types.DefinitionDoc{def}); err != nil {
		return nil, err
	}

	root := localKey{Type: rootBlockType, ID: rootBlockType}
	st := newStructure(root)
	st.Blocks[root] = &blockNode{Definition: def.ID, Fields: map[string]interface{}{}}

	encoded, err := encodeStructure(st)
	if err != nil {
		return nil, err
	}
	version := versionID(id, encoded)
	doc := &types.StructureDoc{
		VersionID: version,
		CourseID:  id,
		RootKey:   root.String(),
		Blocks:    datatypes.JSON(encoded),
		EditedBy:  userID,
		EditedOn:  now,
	}
	if _, err := s.structs.Create(ctx, nil, []*types.StructureDoc{doc}); err != nil {
		return nil, err
	}

	// Both branches start at the same empty root.
	if err := s.actives.Create(ctx, nil, &types.ActiveVersions{
		CourseID:         id,
		DraftVersion:     version,
		PublishedVersion: version,
		UpdatedAt:        now,
	}); err != nil {
		return nil, err
	}

	s.log.Info("course created", "course", id, "version", version)
	return s.buildItem(key, st, version, root, map[string]interface{}{}), nil
}

func (s *Store) CreateItem(ctx context.Context, userID uuid.UUID, parent keys.UsageKey, blockType, blockID string, fieldValues map[string]interface{}) (*store.Item, error) {
	spec, err := s.registry.Load(blockType)
	if err != nil {
		return nil, err
	}

	course := parent.Course
	branch := branchOf(course)
	st, head, err := s.loadHead(ctx, course, branch)
	if err != nil {
		return nil, err
	}

	pk := localKeyOf(parent)
	if _, ok := st.Blocks[pk]; !ok {
		return nil, fmt.Errorf("parent %s: %w", parent, apperr.ErrItemNotFound)
	}
	if parentSpec, perr := s.registry.Load(pk.Type); perr == nil && !parentSpec.HasChildren {
		return nil, fmt.Errorf("block type %q does not hold children", pk.Type)
	}

	if blockID == "" {
		blockID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	k := localKey{Type: blockType, ID: blockID}
	if _, dup := st.Blocks[k]; dup {
		return nil, fmt.Errorf("block %s: %w", k, apperr.ErrDuplicateItem)
	}

	contentFields, settingsFields, err := partitionFields(spec, fieldValues)
	if err != nil {
		return nil, err
	}

	rawContent, err := json.Marshal(contentFields)
	if err != nil {
		return nil, err
	}
	def := &types.DefinitionDoc{
		ID:        uuid.New(),
		BlockType: blockType,
		Fields:    datatypes.JSON(rawContent),
		EditedBy:  userID,
		EditedOn:  time.Now().UTC(),
	}
	if _, err := s.defs.Create(ctx, nil, []*types.DefinitionDoc{def}); err != nil {
		return nil, err
	}

	next := st.clone()
	next.Blocks[k] = &blockNode{Definition: def.ID, Fields: settingsFields}
	next.Blocks[pk].Children = append(next.Blocks[pk].Children, k)

	version, err := s.commit(ctx, course, branch, next, head, userID)
	if err != nil {
		return nil, err
	}
	return s.buildItem(course, next, version, k, contentFields), nil
}

func (s *Store) UpdateItem(ctx context.Context, item *store.Item, userID uuid.UUID) (*store.Item, error) {
	course := item.Usage.Course
	branch := branchOf(course)
	st, head, err := s.loadHead(ctx, course, branch)
	if err != nil {
		return nil, err
	}
	if item.Version != "" && item.Version != head {
		return nil, &apperr.VersionConflictError{
			CourseID:        course.ID(),
			Branch:          branch,
			ExpectedVersion: item.Version,
			CurrentVersion:  head,
		}
	}

	k := localKeyOf(item.Usage)
	old, ok := st.Blocks[k]
	if !ok {
		return nil, apperr.ErrItemNotFound
	}

	next := st.clone()
	n := next.Blocks[k]
	changed := false

	if item.Settings != nil && !reflect.DeepEqual(item.Settings, old.Fields) {
		n.Fields = make(map[string]interface{}, len(item.Settings))
		for name, v := range item.Settings {
			n.Fields[name] = v
		}
		changed = true
	}

	contentFields := item.Content
	if item.Content != nil {
		oldFields, err := s.definitionFields(ctx, st, []localKey{k})
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(item.Content, oldFields[old.Definition]) {
			raw, err := json.Marshal(item.Content)
			if err != nil {
				return nil, err
			}
			prev := old.Definition
			def := &types.DefinitionDoc{
				ID:              uuid.New(),
				BlockType:       k.Type,
				Fields:          datatypes.JSON(raw),
				EditedBy:        userID,
				EditedOn:        time.Now().UTC(),
				PreviousVersion: &prev,
			}
			if _, err := s.defs.Create(ctx, nil, []*types.DefinitionDoc{def}); err != nil {
				return nil, err
			}
			n.Definition = def.ID
			changed = true
		}
	}

	if item.Children != nil {
		reordered, err := reorderChildren(old.Children, item.Children)
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(reordered, old.Children) {
			n.Children = reordered
			changed = true
		}
	}

	if !changed {
		return s.inflate(ctx, course, st, head, k, 0)
	}

	version, err := s.commit(ctx, course, branch, next, head, userID)
	if err != nil {
		return nil, err
	}
	if contentFields == nil {
		fieldsByDef, err := s.definitionFields(ctx, next, []localKey{k})
		if err != nil {
			return nil, err
		}
		contentFields = fieldsByDef[n.Definition]
	}
	return s.buildItem(course, next, version, k, contentFields), nil
}

func (s *Store) DeleteItem(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error {
	course := usage.Course
	branch := branchOf(course)
	st, head, err := s.loadHead(ctx, course, branch)
	if err != nil {
		return err
	}

	k := localKeyOf(usage)
	if k == st.Root {
		return fmt.Errorf("cannot delete the course root; delete the course")
	}
	if _, ok := st.Blocks[k]; !ok {
		return apperr.ErrItemNotFound
	}

	next := st.clone()
	removed := next.subtree(k)
	next.removeSubtree(k)

	if _, err := s.commit(ctx, course, branch, next, head, userID); err != nil {
		return err
	}

	// Learner state follows the block: drop it once no branch holds the usage.
	other := keys.BranchPublished
	if branch == keys.BranchPublished {
		other = keys.BranchDraft
	}
	otherStruct, _, err := s.loadHead(ctx, course, other)
	if err != nil && !apperr.Is(err, apperr.ErrCourseNotFound) {
		return err
	}
	var gone []string
	for _, rk := range removed {
		if otherStruct != nil {
			if _, stillThere := otherStruct.Blocks[rk]; stillThere {
				continue
			}
		}
		gone = append(gone, keys.MakeUsageKey(course.Base(), rk.Type, rk.ID).String())
	}
	return s.states.FullDeleteByUsageIDs(ctx, nil, gone)
}

func (s *Store) DeleteCourse(ctx context.Context, course keys.CourseKey, userID uuid.UUID) error {
	id := course.ID()
	rows, err := s.actives.GetByCourseIDs(ctx, nil, []string{id})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.ErrCourseNotFound
	}

	// Collect every usage either branch still references for state cleanup.
	usageSet := map[string]struct{}{}
	for _, version := range []string{rows[0].DraftVersion, rows[0].PublishedVersion} {
		if version == "" {
			continue
		}
		st, err := s.loadStructure(ctx, course, keys.BranchDraft, version)
		if err != nil {
			return err
		}
		for k := range st.Blocks {
			usageSet[keys.MakeUsageKey(course.Base(), k.Type, k.ID).String()] = struct{}{}
		}
	}
	usageIDs := make([]string, 0, len(usageSet))
	for u := range usageSet {
		usageIDs = append(usageIDs, u)
	}

	// Definitions stay: they may be referenced from historical versions of
	// other courses and are garbage-collected offline.
	if err := s.structs.FullDeleteByCourseIDs(ctx, nil, []string{id}); err != nil {
		return err
	}
	if err := s.actives.FullDeleteByCourseIDs(ctx, nil, []string{id}); err != nil {
		return err
	}
	if err := s.states.FullDeleteByUsageIDs(ctx, nil, usageIDs); err != nil {
		return err
	}
	if err := s.cache.EvictCourse(ctx, course.Base()); err != nil {
		s.log.Warn("cache eviction failed on course delete", "course", id, "error", err)
	}

	s.log.Info("course deleted", "course", id)
	s.hub.Emit(ctx, pubsub.CourseDeleted, course.Base())
	return nil
}

// Publish copies the draft subtree rooted at usage onto the published branch.
// The subtree replaces whatever the published branch previously held at that
// block, keeping the block's position under its published parent.
func (s *Store) Publish(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error {
	course := usage.Course
	draft, _, err := s.loadHead(ctx, course, keys.BranchDraft)
	if err != nil {
		return err
	}
	k := localKeyOf(usage)
	if _, ok := draft.Blocks[k]; !ok {
		return apperr.ErrItemNotFound
	}

	pub, pubHead, err := s.loadHead(ctx, course, keys.BranchPublished)
	if err != nil {
		return err
	}

	var next *structure
	if k == draft.Root {
		next = draft.clone()
	} else {
		next = pub.clone()

		insertAt := -1
		if _, existed := next.Blocks[k]; existed {
			if opk, ok := next.parentOf(k); ok {
				for i, c := range next.Blocks[opk].Children {
					if c == k {
						insertAt = i
						break
					}
				}
			}
			next.removeSubtree(k)
		}

		dpk, ok := draft.parentOf(k)
		if !ok {
			return fmt.Errorf("block %s is detached on draft", usage)
		}
		parent, ok := next.Blocks[dpk]
		if !ok {
			return fmt.Errorf("cannot publish %s: parent %s is not published", usage, dpk)
		}

		for _, sub := range draft.subtree(k) {
			next.Blocks[sub] = draft.Blocks[sub].clone()
		}
		if insertAt < 0 || insertAt > len(parent.Children) {
			insertAt = len(parent.Children)
		}
		parent.Children = append(parent.Children, localKey{})
		copy(parent.Children[insertAt+1:], parent.Children[insertAt:])
		parent.Children[insertAt] = k
	}

	if _, err := s.commit(ctx, course, keys.BranchPublished, next, pubHead, userID); err != nil {
		return err
	}
	s.emitPublished(ctx, course)
	return nil
}

func (s *Store) Unpublish(ctx context.Context, usage keys.UsageKey, userID uuid.UUID) error {
	course := usage.Course
	pub, pubHead, err := s.loadHead(ctx, course, keys.BranchPublished)
	if err != nil {
		return err
	}

	k := localKeyOf(usage)
	if k == pub.Root {
		return fmt.Errorf("cannot unpublish the course root; delete the course")
	}
	if _, ok := pub.Blocks[k]; !ok {
		return apperr.ErrItemNotFound
	}

	next := pub.clone()
	next.removeSubtree(k)
	if _, err := s.commit(ctx, course, keys.BranchPublished, next, pubHead, userID); err != nil {
		return err
	}
	// The published tree changed shape, so downstream projections rebuild.
	s.emitPublished(ctx, course)
	return nil
}

// BulkOperations runs fn with deferred head moves: every mutation inside the
// scope lands on working heads, and the database pointers move once per
// touched branch when fn returns. At most one course_published signal fires.
func (s *Store) BulkOperations(ctx context.Context, course keys.CourseKey, fn func(ctx context.Context) error) error {
	id := course.ID()
	if bulkFrom(ctx, id) != nil {
		// Nested scope for the same course joins the outer one.
		return fn(ctx)
	}

	rows, err := s.actives.GetByCourseIDs(ctx, nil, []string{id})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.ErrCourseNotFound
	}

	bs := &bulkState{
		courseID:       id,
		entryDraft:     rows[0].DraftVersion,
		entryPublished: rows[0].PublishedVersion,
		draft:          rows[0].DraftVersion,
		published:      rows[0].PublishedVersion,
	}
	if err := fn(withBulk(ctx, bs)); err != nil {
		return err
	}

	for _, move := range []struct {
		column   string
		branch   string
		expected string
		next     string
	}{
		{content.DraftColumn, keys.BranchDraft, bs.entryDraft, bs.draft},
		{content.PublishedColumn, keys.BranchPublished, bs.entryPublished, bs.published},
	} {
		if move.next == move.expected {
			continue
		}
		ok, err := s.actives.CompareAndSetHead(ctx, nil, id, move.column, move.expected, move.next)
		if err != nil {
			return err
		}
		if !ok {
			current, herr := s.headVersion(ctx, course, move.branch)
			if herr != nil {
				current = "unknown"
			}
			return &apperr.VersionConflictError{
				CourseID:        id,
				Branch:          move.branch,
				ExpectedVersion: move.expected,
				CurrentVersion:  current,
			}
		}
	}

	if bs.publishPending {
		s.hub.Emit(ctx, pubsub.CoursePublished, course.Base())
	}
	return nil
}

// partitionFields routes provided values to content or settings scope by the
// type's declared fields, coercing each to its declared type. Undeclared
// names land in settings untouched so imported attributes survive round trips.
func partitionFields(spec block.Spec, values map[string]interface{}) (contentFields, settingsFields map[string]interface{}, err error) {
	contentFields = map[string]interface{}{}
	settingsFields = map[string]interface{}{}
	declared := make(map[string]int, len(spec.Fields))
	for i, f := range spec.Fields {
		declared[f.Name] = i
	}

	for name, v := range values {
		i, ok := declared[name]
		if !ok {
			settingsFields[name] = v
			continue
		}
		f := spec.Fields[i]
		coerced, cerr := f.Type.Coerce(name, v)
		if cerr != nil {
			return nil, nil, cerr
		}
		switch f.Scope {
		case fields.Content:
			contentFields[name] = coerced
		case fields.Settings:
			settingsFields[name] = coerced
		default:
			return nil, nil, fmt.Errorf("field %q is %s-scoped and cannot be authored", name, f.Scope)
		}
	}
	return contentFields, settingsFields, nil
}

// reorderChildren validates that want is a permutation of have and returns it
// as local keys. Adding or removing children goes through CreateItem and
// DeleteItem so the tree never grows orphans.
func reorderChildren(have []localKey, want []keys.UsageKey) ([]localKey, error) {
	if len(want) != len(have) {
		return nil, fmt.Errorf("children can only be reordered: have %d, got %d", len(have), len(want))
	}
	haveSet := make(map[localKey]struct{}, len(have))
	for _, c := range have {
		haveSet[c] = struct{}{}
	}
	out := make([]localKey, 0, len(want))
	for _, u := range want {
		k := localKeyOf(u)
		if _, ok := haveSet[k]; !ok {
			return nil, fmt.Errorf("children can only be reordered: %s is not a child", u)
		}
		delete(haveSet, k)
		out = append(out, k)
	}
	return out, nil
}

var _ store.Modulestore = (*Store)(nil)
