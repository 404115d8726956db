package block

import (
	"sort"
	"sync"

	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
)

// CompletionMode drives how a block counts toward course progress.
type CompletionMode int

const (
	// Completable emits its own progress in [0, 1].
	Completable CompletionMode = iota
	// Aggregator derives progress as the weighted mean of its children.
	Aggregator
	// Excluded never counts toward progress.
	Excluded
)

func (m CompletionMode) String() string {
	switch m {
	case Completable:
		return "completable"
	case Aggregator:
		return "aggregator"
	case Excluded:
		return "excluded"
	}
	return "unknown"
}

// Factory builds a block instance bound to a runtime and a field bag.
type Factory func(rt Runtime, usage keys.UsageKey, data *fields.Data) Block

// Spec is one registry entry: everything static about a block type.
type Spec struct {
	Name        string
	HasChildren bool
	Completion  CompletionMode
	Fields      []fields.Field
	New         Factory
}

// Registry maps block type names to Specs. It is populated at startup and
// read-only afterwards; lookups take the read lock only to stay safe against
// late registration in tests.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: map[string]Spec{}}
}

// Register adds a block type. A second registration under the same name is
// an AmbiguousBlockTypeError; nothing is replaced implicitly.
func (r *Registry) Register(spec Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.specs[spec.Name]; dup {
		return &apperr.AmbiguousBlockTypeError{Name: spec.Name}
	}
	r.specs[spec.Name] = spec
	return nil
}

// MustRegister panics on registration failure. Startup-time wiring only.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Load resolves a block type name.
func (r *Registry) Load(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	if !ok {
		return Spec{}, &apperr.UnknownBlockTypeError{Name: name}
	}
	return spec, nil
}

// LoadDefault resolves a block type name, falling back to def for
// unregistered names instead of erroring.
func (r *Registry) LoadDefault(name string, def Spec) Spec {
	spec, err := r.Load(name)
	if err != nil {
		return def
	}
	return spec
}

// Names lists registered type names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for n := range r.specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
