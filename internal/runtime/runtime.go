// Package runtime hosts live block instances: it loads items from the
// modulestore, binds every field scope to its backing store for the current
// user, dispatches views and handler callbacks, and publishes block events
// through the sampler.
package runtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/blockstore/internal/block"
	"github.com/yungbote/blockstore/internal/cache"
	"github.com/yungbote/blockstore/internal/data/repos/learner"
	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"github.com/yungbote/blockstore/internal/platform/sampling"
	"github.com/yungbote/blockstore/internal/store"
	"github.com/yungbote/blockstore/internal/userstate"
)

const itemCacheNamespace = "runtime.items"

// Env is the shared runtime wiring, built once at startup. Per-user runtimes
// are cheap views over it.
type Env struct {
	ms       store.Modulestore
	registry *block.Registry
	states   learner.StateRepo
	prefs    learner.PreferenceRepo
	infos    learner.InfoRepo
	sampler  *sampling.Sampler
	secret   []byte
	services map[string]interface{}
	log      *logger.Logger
}

func NewEnv(
	ms store.Modulestore,
	registry *block.Registry,
	states learner.StateRepo,
	prefs learner.PreferenceRepo,
	infos learner.InfoRepo,
	sampler *sampling.Sampler,
	secret []byte,
	services map[string]interface{},
	baseLog *logger.Logger,
) *Env {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	if services == nil {
		services = map[string]interface{}{}
	}
	return &Env{
		ms:       ms,
		registry: registry,
		states:   states,
		prefs:    prefs,
		infos:    infos,
		sampler:  sampler,
		secret:   secret,
		services: services,
		log:      baseLog.With("service", "BlockRuntime"),
	}
}

// ForUser binds the environment to one learner.
func (e *Env) ForUser(userID uuid.UUID) *Runtime {
	return &Runtime{env: e, userID: userID}
}

// Runtime is the per-user block.Runtime implementation.
type Runtime struct {
	env    *Env
	userID uuid.UUID
}

func (r *Runtime) UserID() uuid.UUID { return r.userID }

// item loads the stored item for a usage, memoized in the request cache when
// one is installed. The cached pointer is shared within the request only.
func (r *Runtime) item(ctx context.Context, usage keys.UsageKey) (*store.Item, error) {
	rc := cache.RequestCacheFrom(ctx)
	key := usage.String()
	if rc != nil {
		if v, ok := rc.Get(itemCacheNamespace, key); ok {
			return v.(*store.Item), nil
		}
	}
	it, err := r.env.ms.GetItem(ctx, usage)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		rc.Set(itemCacheNamespace, key, it)
	}
	return it, nil
}

// GetBlock loads and instantiates the block at usage, with every field scope
// bound: content and settings write through to the modulestore, the user
// scopes to the learner rows.
func (r *Runtime) GetBlock(ctx context.Context, usage keys.UsageKey) (block.Block, error) {
	it, err := r.item(ctx, usage)
	if err != nil {
		return nil, err
	}
	spec, err := r.env.registry.Load(it.BlockType)
	if err != nil {
		return nil, err
	}

	stores := map[fields.Scope]fields.ScopedStore{
		fields.Content:     newItemStore(r, it, fields.Content),
		fields.Settings:    newItemStore(r, it, fields.Settings),
		fields.UserState:   userstate.NewStateStore(r.env.states, r.userID, usage),
		fields.Preferences: userstate.NewPreferenceStore(r.env.prefs, r.userID, it.BlockType),
		fields.UserInfo:    userstate.NewInfoStore(r.env.infos, r.userID),
	}
	data := fields.NewData(spec.Fields, stores)
	return spec.New(r, usage, data), nil
}

// Render dispatches the named view. author_view falls back to the student
// view; public_view has no fallback because the student view may expose
// learner-only material.
func (r *Runtime) Render(ctx context.Context, b block.Block, view string, vc block.ViewContext) (*block.Fragment, error) {
	switch view {
	case "", "student_view":
		return b.StudentView(ctx, vc)
	case "author_view":
		if av, ok := b.(block.AuthorViewer); ok {
			return av.AuthorView(ctx, vc)
		}
		return b.StudentView(ctx, vc)
	case "public_view":
		if pv, ok := b.(block.PublicViewer); ok {
			return pv.PublicView(ctx, vc)
		}
		return nil, fmt.Errorf("%s has no public view: %w", b.UsageKey(), apperr.ErrPermissionDenied)
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

// Children instantiates b's ordered children.
func (r *Runtime) Children(ctx context.Context, b block.Block) ([]block.Block, error) {
	it, err := r.item(ctx, b.UsageKey())
	if err != nil {
		return nil, err
	}
	out := make([]block.Block, 0, len(it.Children))
	for _, childUsage := range it.Children {
		child, err := r.GetBlock(ctx, childUsage)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Service returns a named capability or nil. Callers tolerate absence.
func (r *Runtime) Service(name string) interface{} {
	return r.env.services[name]
}

// PublishEvent emits a block event through the sampler into the structured
// log. Thinned events are dropped silently.
func (r *Runtime) PublishEvent(ctx context.Context, name string, data map[string]interface{}) error {
	if r.env.sampler != nil && !r.env.sampler.Allow(name) {
		return nil
	}
	kv := []interface{}{"event", name, "user", r.userID.String()}
	for k, v := range data {
		kv = append(kv, k, v)
	}
	r.env.log.Info("block event", kv...)
	return nil
}

// HandlerToken mints the callback token for this user and usage.
func (r *Runtime) HandlerToken(usage keys.UsageKey) string {
	return MintToken(r.env.secret, r.userID, usage)
}

// InvokeHandler validates the callback token and dispatches to the block's
// handler. An invalid or expired token is a permission error, not a 404: the
// caller learns nothing about whether the handler exists.
func (r *Runtime) InvokeHandler(ctx context.Context, usage keys.UsageKey, handler, token string, req *block.HandlerRequest) (*block.HandlerResponse, error) {
	if !ValidateToken(r.env.secret, token, r.userID, usage) {
		return nil, fmt.Errorf("handler token rejected: %w", apperr.ErrPermissionDenied)
	}
	b, err := r.GetBlock(ctx, usage)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &block.HandlerRequest{}
	}
	return b.Handle(ctx, handler, req)
}

var _ block.Runtime = (*Runtime)(nil)
