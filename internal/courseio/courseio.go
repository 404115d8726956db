// Package courseio converts between the OLX element tree and modulestore
// items: import creates blocks under a bulk scope, export walks the stored
// tree back into elements. Block types with custom XML hooks get them invoked
// on both directions.
package courseio

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/yungbote/blockstore/internal/block"
	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/olx"
	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"github.com/yungbote/blockstore/internal/store"
)

// Porter imports and exports courses through a modulestore.
type Porter struct {
	ms       store.Modulestore
	registry *block.Registry
	log      *logger.Logger
}

func NewPorter(ms store.Modulestore, registry *block.Registry, baseLog *logger.Logger) *Porter {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &Porter{ms: ms, registry: registry, log: baseLog.With("service", "CoursePorter")}
}

// Import creates a new course from a parsed OLX tree. The whole tree lands in
// one bulk scope, so a half-imported course is never observable and at most
// one publish signal fires.
func (p *Porter) Import(ctx context.Context, userID uuid.UUID, root *olx.Node) (keys.CourseKey, error) {
	if root.Tag != "course" {
		return keys.CourseKey{}, fmt.Errorf("import root element is %q, want course", root.Tag)
	}
	org, _ := root.Attr("org")
	courseName, _ := root.Attr("course")
	run := root.URLName()
	if org == "" || courseName == "" || run == "" {
		return keys.CourseKey{}, fmt.Errorf("course element missing org/course/url_name")
	}

	rootItem, err := p.ms.CreateCourse(ctx, userID, org, courseName, run)
	if err != nil {
		return keys.CourseKey{}, err
	}
	course := rootItem.Usage.Course

	err = p.ms.BulkOperations(ctx, course, func(bctx context.Context) error {
		for _, child := range root.Children {
			if err := p.importNode(bctx, userID, rootItem.Usage, child); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return keys.CourseKey{}, err
	}

	p.log.Info("course imported", "course", course.ID(), "org", org, "run", run)
	return course, nil
}

// importNode creates n and its subtree under parent. A malformed element
// fails only itself: it is logged and skipped, subtree included, and its
// siblings continue.
func (p *Porter) importNode(ctx context.Context, userID uuid.UUID, parent keys.UsageKey, n *olx.Node) error {
	spec, err := p.registry.Load(n.Tag)
	if err != nil {
		p.log.Error("skipping malformed element", "element", n.Tag, "url_name", n.URLName(), "error", err)
		return nil
	}

	values, err := p.fieldValues(spec, parent.Course, n)
	if err != nil {
		p.log.Error("skipping malformed element", "element", n.Tag, "url_name", n.URLName(), "error", err)
		return nil
	}

	item, err := p.ms.CreateItem(ctx, userID, parent, n.Tag, n.URLName(), values)
	if err != nil {
		if apperr.Is(err, apperr.ErrDuplicateItem) {
			p.log.Error("skipping malformed element", "element", n.Tag, "url_name", n.URLName(), "error", err)
			return nil
		}
		return err
	}
	for _, child := range n.Children {
		if err := p.importNode(ctx, userID, item.Usage, child); err != nil {
			return err
		}
	}
	return nil
}

// fieldValues maps an element onto create-time field values: attributes
// generically, then the block type's ParseXML hook for anything beyond them.
func (p *Porter) fieldValues(spec block.Spec, course keys.CourseKey, n *olx.Node) (map[string]interface{}, error) {
	values := map[string]interface{}{}
	for _, a := range n.Attrs {
		if a.Name == "url_name" {
			continue
		}
		values[a.Name] = a.Value
	}

	usage := keys.MakeUsageKey(course, n.Tag, n.URLName())
	data := scratchData(spec)
	b := spec.New(nil, usage, data)
	if imp, ok := b.(block.XMLImporter); ok {
		if err := imp.ParseXML(n); err != nil {
			return nil, err
		}
		for _, byName := range data.Dirty() {
			for name, v := range byName {
				values[name] = v
			}
		}
	} else if n.Text != "" {
		values["data"] = n.Text
	}
	return values, nil
}

// Export renders the course back into an OLX tree. The inverse of Import for
// every field that survives the store: unknown attributes included.
func (p *Porter) Export(ctx context.Context, course keys.CourseKey) (*olx.Node, error) {
	root, err := p.ms.GetCourse(ctx, course, -1)
	if err != nil {
		return nil, err
	}

	n, err := p.exportItem(root)
	if err != nil {
		return nil, err
	}
	// The root element carries the offering identity.
	n.Attrs = append([]olx.Attr{
		{Name: "org", Value: course.Org},
		{Name: "course", Value: course.Course},
	}, n.Attrs...)
	n.SetAttr("url_name", course.Run)
	return n, nil
}

func (p *Porter) exportItem(it *store.Item) (*olx.Node, error) {
	n := &olx.Node{Tag: it.BlockType}
	n.SetAttr("url_name", it.Usage.BlockID)

	names := make([]string, 0, len(it.Settings))
	for name := range it.Settings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if s, ok := attrString(it.Settings[name]); ok {
			n.SetAttr(name, s)
		}
	}

	spec, err := p.registry.Load(it.BlockType)
	if err != nil {
		return nil, err
	}
	for _, f := range spec.Fields {
		if f.Scope != fields.Content || f.Name == "data" {
			continue
		}
		if v, ok := it.Content[f.Name]; ok {
			if s, sok := attrString(v); sok {
				n.SetAttr(f.Name, s)
			}
		}
	}

	data := scratchData(spec)
	b := spec.New(nil, it.Usage, data)
	if exp, ok := b.(block.XMLExporter); ok {
		if v, ok := it.Content["data"]; ok {
			if err := data.Set("data", v); err != nil {
				return nil, err
			}
		}
		if err := exp.AddXMLToNode(n); err != nil {
			return nil, err
		}
	} else if v, ok := it.Content["data"]; ok {
		if s, sok := v.(string); sok {
			n.Text = s
		}
	}

	for _, child := range it.ChildItems {
		cn, err := p.exportItem(child)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cn)
	}
	return n, nil
}

// scratchData builds a detached field bag with every scope backed in memory,
// for running XML hooks outside a live runtime.
func scratchData(spec block.Spec) *fields.Data {
	stores := map[fields.Scope]fields.ScopedStore{}
	for _, sc := range fields.Scopes() {
		stores[sc] = fields.NewMapStore()
	}
	return fields.NewData(spec.Fields, stores)
}

func attrString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}
