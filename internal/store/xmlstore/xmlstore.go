// Package xmlstore is the read-only modulestore backend for courses imported
// from disk. Course trees are parsed once at startup from their OLX
// directories and served from memory under legacy slash-form keys; every
// write returns ErrReadOnlyStore.
package xmlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/blockstore/internal/block"
	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/olx"
	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"github.com/yungbote/blockstore/internal/store"
)

// xmlVersion marks every item served from disk. XML courses have no version
// history, so the marker only has to be stable and non-empty.
const xmlVersion = "xml"

type blockKey struct {
	Type string
	ID   string
}

type xmlItem struct {
	key       blockKey
	content   map[string]interface{}
	settings  map[string]interface{}
	children  []blockKey
	parent    blockKey
	hasParent bool
}

type courseEntry struct {
	key   keys.CourseKey
	root  blockKey
	items map[blockKey]*xmlItem
	// order is the depth-first walk of the tree, fixed at load.
	order []blockKey
}

// Store serves imported courses. Loading happens during wiring; afterwards
// the store is effectively immutable.
type Store struct {
	registry *block.Registry
	log      *logger.Logger

	mu      sync.RWMutex
	courses map[string]*courseEntry
}

func New(registry *block.Registry, baseLog *logger.Logger) *Store {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &Store{
		registry: registry,
		log:      baseLog.With("service", "XMLModulestore"),
		courses:  map[string]*courseEntry{},
	}
}

// LoadRoot loads every course directory under root. Directories without a
// course.xml are skipped with a warning so one broken export does not take
// the whole import down.
func (s *Store) LoadRoot(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, statErr := os.Stat(filepath.Join(dir, "course.xml")); statErr != nil {
			s.log.Warn("skipping course dir without course.xml", "dir", dir)
			continue
		}
		if err := s.LoadCourseDir(dir); err != nil {
			return fmt.Errorf("load %s: %w", dir, err)
		}
	}
	return nil
}

// LoadCourseDir parses one OLX course directory. The root course.xml element
// names the offering: org and course attributes plus url_name as the run.
func (s *Store) LoadCourseDir(dir string) error {
	f, err := os.Open(filepath.Join(dir, "course.xml"))
	if err != nil {
		return err
	}
	defer f.Close()

	root, err := olx.Parse(f)
	if err != nil {
		return err
	}
	if err := olx.ExpandIncludes(root, dir); err != nil {
		return err
	}
	if root.Tag != "course" {
		return fmt.Errorf("course.xml root element is %q, want course", root.Tag)
	}

	org, _ := root.Attr("org")
	courseName, _ := root.Attr("course")
	run := root.URLName()
	if org == "" || courseName == "" || run == "" {
		return fmt.Errorf("course.xml missing org/course/url_name")
	}
	courseKey, err := keys.ParseCourseKey(org + "/" + courseName + "/" + run)
	if err != nil {
		return err
	}

	entry := &courseEntry{
		key:   courseKey,
		items: map[blockKey]*xmlItem{},
	}
	rootKey, err := s.buildTree(entry, root, blockKey{}, false)
	if err != nil {
		return err
	}
	entry.root = rootKey
	entry.order = entry.dfs(rootKey)

	s.mu.Lock()
	s.courses[courseKey.ID()] = entry
	s.mu.Unlock()

	s.log.Info("xml course loaded", "course", courseKey.String(), "blocks", len(entry.items))
	return nil
}

// buildTree converts one element and its descendants into items. Attributes
// declared content-scope by the block type land in content, everything else
// in settings; element text becomes the data content field.
func (s *Store) buildTree(entry *courseEntry, n *olx.Node, parent blockKey, hasParent bool) (blockKey, error) {
	id := n.URLName()
	if id == "" {
		id = uuid.NewString()
	}
	k := blockKey{Type: n.Tag, ID: id}
	if _, dup := entry.items[k]; dup {
		return blockKey{}, fmt.Errorf("duplicate block %s/%s", k.Type, k.ID)
	}

	it := &xmlItem{
		key:       k,
		content:   map[string]interface{}{},
		settings:  map[string]interface{}{},
		parent:    parent,
		hasParent: hasParent,
	}

	declared := map[string]fields.Field{}
	if spec, err := s.registry.Load(n.Tag); err == nil {
		for _, f := range spec.Fields {
			declared[f.Name] = f
		}
	}
	for _, a := range n.Attrs {
		switch a.Name {
		case "url_name":
			continue
		case "org", "course":
			if n.Tag == "course" {
				continue
			}
		}
		f, ok := declared[a.Name]
		if !ok {
			it.settings[a.Name] = a.Value
			continue
		}
		v, err := f.Type.Coerce(a.Name, a.Value)
		if err != nil {
			return blockKey{}, err
		}
		if f.Scope == fields.Content {
			it.content[a.Name] = v
		} else {
			it.settings[a.Name] = v
		}
	}
	if n.Text != "" {
		it.content["data"] = n.Text
	}
	entry.items[k] = it

	for _, c := range n.Children {
		ck, err := s.buildTree(entry, c, k, true)
		if err != nil {
			return blockKey{}, err
		}
		it.children = append(it.children, ck)
	}
	return k, nil
}

func (e *courseEntry) dfs(k blockKey) []blockKey {
	out := []blockKey{k}
	for _, c := range e.items[k].children {
		out = append(out, e.dfs(c)...)
	}
	return out
}

func (s *Store) course(course keys.CourseKey) (*courseEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.courses[course.ID()]
	return e, ok
}

// HasCourse reports whether the course was loaded from disk. The router uses
// this to decide whether a legacy key belongs here.
func (s *Store) HasCourse(course keys.CourseKey) bool {
	_, ok := s.course(course)
	return ok
}

// item materializes a caller-owned copy. The course key on the returned
// usages is the loaded (deprecated) one so keys round-trip in legacy form.
func (e *courseEntry) item(k blockKey) *store.Item {
	x := e.items[k]
	it := &store.Item{
		Usage:     keys.MakeUsageKey(e.key, k.Type, k.ID),
		BlockType: k.Type,
		Version:   xmlVersion,
		Content:   make(map[string]interface{}, len(x.content)),
		Settings:  make(map[string]interface{}, len(x.settings)),
	}
	for name, v := range x.content {
		it.Content[name] = v
	}
	for name, v := range x.settings {
		it.Settings[name] = v
	}
	for _, c := range x.children {
		it.Children = append(it.Children, keys.MakeUsageKey(e.key, c.Type, c.ID))
	}
	if x.hasParent {
		it.Parent = keys.MakeUsageKey(e.key, x.parent.Type, x.parent.ID)
		it.HasParent = true
	}
	return it
}

func (e *courseEntry) inflate(k blockKey, depth int) *store.Item {
	it := e.item(k)
	if depth == 0 {
		return it
	}
	for _, c := range e.items[k].children {
		it.ChildItems = append(it.ChildItems, e.inflate(c, depth-1))
	}
	return it
}

func (s *Store) GetCourse(_ context.Context, course keys.CourseKey, depth int) (*store.Item, error) {
	e, ok := s.course(course)
	if !ok {
		return nil, apperr.ErrCourseNotFound
	}
	return e.inflate(e.root, depth), nil
}

func (s *Store) GetItem(_ context.Context, usage keys.UsageKey) (*store.Item, error) {
	e, ok := s.course(usage.Course)
	if !ok {
		return nil, apperr.ErrCourseNotFound
	}
	k := blockKey{Type: usage.BlockType, ID: usage.BlockID}
	if _, ok := e.items[k]; !ok {
		return nil, apperr.ErrItemNotFound
	}
	return e.item(k), nil
}

func (s *Store) GetItems(_ context.Context, course keys.CourseKey, q store.Qualifiers) ([]*store.Item, error) {
	e, ok := s.course(course)
	if !ok {
		return nil, apperr.ErrCourseNotFound
	}
	var out []*store.Item
	for _, k := range e.order {
		it := e.item(k)
		if q.Matches(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) HasItem(_ context.Context, usage keys.UsageKey) (bool, error) {
	e, ok := s.course(usage.Course)
	if !ok {
		return false, nil
	}
	_, ok = e.items[blockKey{Type: usage.BlockType, ID: usage.BlockID}]
	return ok, nil
}

func (s *Store) CreateCourse(context.Context, uuid.UUID, string, string, string) (*store.Item, error) {
	return nil, apperr.ErrReadOnlyStore
}

func (s *Store) CreateItem(context.Context, uuid.UUID, keys.UsageKey, string, string, map[string]interface{}) (*store.Item, error) {
	return nil, apperr.ErrReadOnlyStore
}

func (s *Store) UpdateItem(context.Context, *store.Item, uuid.UUID) (*store.Item, error) {
	return nil, apperr.ErrReadOnlyStore
}

func (s *Store) DeleteItem(context.Context, keys.UsageKey, uuid.UUID) error {
	return apperr.ErrReadOnlyStore
}

func (s *Store) DeleteCourse(context.Context, keys.CourseKey, uuid.UUID) error {
	return apperr.ErrReadOnlyStore
}

func (s *Store) Publish(context.Context, keys.UsageKey, uuid.UUID) error {
	return apperr.ErrReadOnlyStore
}

func (s *Store) Unpublish(context.Context, keys.UsageKey, uuid.UUID) error {
	return apperr.ErrReadOnlyStore
}

// BulkOperations runs fn directly: there are no heads to batch, and any write
// inside fn fails on its own.
func (s *Store) BulkOperations(ctx context.Context, _ keys.CourseKey, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ store.XMLBackend = (*Store)(nil)
