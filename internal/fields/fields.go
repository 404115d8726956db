// Package fields implements the storage-scope-aware attribute model for
// content blocks. A block declares its fields once per type; the runtime
// binds one ScopedStore per scope and the Data bag routes reads and writes
// to the right store, tracking dirtiness so Save only touches what changed.
package fields

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
)

// Scope is the ownership domain of a field value. Closed set.
type Scope int

const (
	// Content is authored and part of the block definition.
	Content Scope = iota
	// Settings is a per-usage override of content.
	Settings
	// UserState is per-learner, per-usage.
	UserState
	// Preferences is per-learner across a block type.
	Preferences
	// UserInfo is per-learner across all blocks.
	UserInfo
	// All is process-wide constants.
	All
)

var scopeNames = [...]string{"content", "settings", "user_state", "preferences", "user_info", "all"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// Scopes lists every scope in declaration order.
func Scopes() []Scope {
	return []Scope{Content, Settings, UserState, Preferences, UserInfo, All}
}

// Type names the coercion applied to a field's values on read and write.
type Type int

const (
	String Type = iota
	Integer
	Float
	Boolean
	List
	JSON
	DateTime
)

var typeNames = [...]string{"string", "integer", "float", "boolean", "list", "json", "datetime"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Coerce converts v to the canonical in-memory representation for the type.
// Failure is a FieldTypeError; coercion is mandatory on both read and write.
func (t Type) Coerce(field string, v interface{}) (interface{}, error) {
	fail := func() (interface{}, error) {
		return nil, &apperr.FieldTypeError{Field: field, Want: t.String(), Value: v}
	}
	if v == nil {
		return fail()
	}
	switch t {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fail()
	case Integer:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
		case string:
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i, nil
			}
		}
		return fail()
	case Float:
		switch n := v.(type) {
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, nil
			}
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, nil
			}
		}
		return fail()
	case Boolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return parsed, nil
			}
		}
		return fail()
	case List:
		switch l := v.(type) {
		case []interface{}:
			return l, nil
		case []string:
			out := make([]interface{}, len(l))
			for i, s := range l {
				out[i] = s
			}
			return out, nil
		}
		return fail()
	case JSON:
		if _, err := json.Marshal(v); err != nil {
			return fail()
		}
		return v, nil
	case DateTime:
		switch d := v.(type) {
		case time.Time:
			return d.UTC(), nil
		case string:
			if ts, err := time.Parse(time.RFC3339, d); err == nil {
				return ts.UTC(), nil
			}
		}
		return fail()
	}
	return fail()
}

// Field is a declarative attribute of a block type.
type Field struct {
	Name    string
	Type    Type
	Scope   Scope
	Default interface{}
	Help    string
}

// ScopedStore is the persistence surface for one scope of one block instance.
// Implementations close over whatever identity the scope requires (usage key,
// user id, block type).
type ScopedStore interface {
	Get(ctx context.Context, name string) (interface{}, bool, error)
	SetMany(ctx context.Context, values map[string]interface{}) error
	DeleteMany(ctx context.Context, names []string) error
}

// MapStore is an in-memory ScopedStore, used for the All scope and by tests.
type MapStore struct {
	Values map[string]interface{}
}

func NewMapStore() *MapStore { return &MapStore{Values: map[string]interface{}{}} }

func (m *MapStore) Get(_ context.Context, name string) (interface{}, bool, error) {
	v, ok := m.Values[name]
	return v, ok, nil
}

func (m *MapStore) SetMany(_ context.Context, values map[string]interface{}) error {
	for k, v := range values {
		m.Values[k] = v
	}
	return nil
}

func (m *MapStore) DeleteMany(_ context.Context, names []string) error {
	for _, n := range names {
		delete(m.Values, n)
	}
	return nil
}

// Data is the per-block-instance field value bag. Reads fall through
// dirty → stored → declared default; writes coerce and mark dirty; Save
// flushes only dirty values, partitioned by scope.
type Data struct {
	fields map[string]Field
	stores map[Scope]ScopedStore
	dirty  map[string]interface{}
}

func NewData(declared []Field, stores map[Scope]ScopedStore) *Data {
	byName := make(map[string]Field, len(declared))
	for _, f := range declared {
		byName[f.Name] = f
	}
	if stores == nil {
		stores = map[Scope]ScopedStore{}
	}
	return &Data{fields: byName, stores: stores, dirty: map[string]interface{}{}}
}

// Fields returns the declared fields, keyed by name.
func (d *Data) Fields() map[string]Field { return d.fields }

func (d *Data) field(name string) (Field, error) {
	f, ok := d.fields[name]
	if !ok {
		return Field{}, fmt.Errorf("undeclared field %q", name)
	}
	return f, nil
}

func (d *Data) Get(ctx context.Context, name string) (interface{}, error) {
	f, err := d.field(name)
	if err != nil {
		return nil, err
	}
	if v, ok := d.dirty[name]; ok {
		return v, nil
	}
	store, ok := d.stores[f.Scope]
	if ok {
		v, found, err := store.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			return f.Type.Coerce(name, v)
		}
	}
	return f.Default, nil
}

func (d *Data) Set(name string, v interface{}) error {
	f, err := d.field(name)
	if err != nil {
		return err
	}
	coerced, err := f.Type.Coerce(name, v)
	if err != nil {
		return err
	}
	d.dirty[name] = coerced
	return nil
}

// IsDirty reports whether the named field has an unsaved write.
func (d *Data) IsDirty(name string) bool {
	_, ok := d.dirty[name]
	return ok
}

// Dirty returns a copy of all pending writes, partitioned by scope.
func (d *Data) Dirty() map[Scope]map[string]interface{} {
	out := map[Scope]map[string]interface{}{}
	for name, v := range d.dirty {
		f := d.fields[name]
		if out[f.Scope] == nil {
			out[f.Scope] = map[string]interface{}{}
		}
		out[f.Scope][name] = v
	}
	return out
}

// Save flushes dirty fields to their scope stores. Nothing is written for
// scopes with no dirty fields. On success the dirty set is cleared.
func (d *Data) Save(ctx context.Context) error {
	partitioned := d.Dirty()
	for scope, values := range partitioned {
		store, ok := d.stores[scope]
		if !ok {
			return fmt.Errorf("no store bound for scope %s", scope)
		}
		if err := store.SetMany(ctx, values); err != nil {
			return fmt.Errorf("save scope %s: %w", scope, err)
		}
	}
	for name := range d.dirty {
		delete(d.dirty, name)
	}
	return nil
}
