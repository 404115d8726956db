package runtime

import (
	"context"

	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/store"
)

// itemStore binds the content or settings scope of one loaded item. Reads hit
// the in-memory snapshot; writes go through the modulestore so a field save
// is a real versioned update, and the snapshot follows the returned item.
type itemStore struct {
	rt    *Runtime
	item  *store.Item
	scope fields.Scope
}

func newItemStore(rt *Runtime, item *store.Item, scope fields.Scope) *itemStore {
	return &itemStore{rt: rt, item: item, scope: scope}
}

func (s *itemStore) values() map[string]interface{} {
	if s.scope == fields.Content {
		return s.item.Content
	}
	return s.item.Settings
}

func (s *itemStore) Get(_ context.Context, name string) (interface{}, bool, error) {
	v, ok := s.values()[name]
	return v, ok, nil
}

func (s *itemStore) SetMany(ctx context.Context, values map[string]interface{}) error {
	for name, v := range values {
		s.values()[name] = v
	}
	return s.persist(ctx)
}

func (s *itemStore) DeleteMany(ctx context.Context, names []string) error {
	for _, name := range names {
		delete(s.values(), name)
	}
	return s.persist(ctx)
}

func (s *itemStore) persist(ctx context.Context) error {
	updated, err := s.rt.env.ms.UpdateItem(ctx, s.item, s.rt.userID)
	if err != nil {
		return err
	}
	*s.item = *updated
	return nil
}

var _ fields.ScopedStore = (*itemStore)(nil)
