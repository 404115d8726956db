package block

import (
	"context"
	"testing"

	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
)

type nopBlock struct{ Core }

func (b *nopBlock) StudentView(ctx context.Context, vc ViewContext) (*Fragment, error) {
	return NewFragment(""), nil
}

func nopFactory(rt Runtime, usage keys.UsageKey, data *fields.Data) Block {
	return &nopBlock{Core: NewCore(rt, usage, data)}
}

func TestRegistryLoad(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Spec{Name: "video", New: nopFactory}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	spec, err := r.Load("video")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if spec.Name != "video" {
		t.Fatalf("wrong spec: %+v", spec)
	}
}

func TestRegistryDuplicateIsAmbiguous(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Spec{Name: "video", New: nopFactory}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(Spec{Name: "video", New: nopFactory})
	var aerr *apperr.AmbiguousBlockTypeError
	if !apperr.As(err, &aerr) {
		t.Fatalf("want AmbiguousBlockTypeError, got %v", err)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Load("nope")
	var uerr *apperr.UnknownBlockTypeError
	if !apperr.As(err, &uerr) {
		t.Fatalf("want UnknownBlockTypeError, got %v", err)
	}
	def := Spec{Name: "fallback", New: nopFactory}
	if got := r.LoadDefault("nope", def); got.Name != "fallback" {
		t.Fatalf("LoadDefault: %+v", got)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"video", "html", "problem"} {
		if err := r.Register(Spec{Name: n, New: nopFactory}); err != nil {
			t.Fatalf("Register %s: %v", n, err)
		}
	}
	names := r.Names()
	want := []string{"html", "problem", "video"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestCompletionRollup(t *testing.T) {
	got := RollupCompletion([]ChildCompletion{
		{Weight: 1, Completion: 1, Mode: Completable},
		{Weight: 3, Completion: 0, Mode: Completable},
		{Weight: 100, Completion: 0, Mode: Excluded},
	})
	if got != 0.25 {
		t.Fatalf("weighted mean: got %v", got)
	}
	if RollupCompletion(nil) != 1 {
		t.Fatalf("empty aggregator should be complete")
	}
	if RollupCompletion([]ChildCompletion{{Mode: Excluded}}) != 1 {
		t.Fatalf("all-excluded aggregator should be complete")
	}
	if got := RollupCompletion([]ChildCompletion{{Weight: 0, Completion: 0.5, Mode: Completable}}); got != 0.5 {
		t.Fatalf("zero weight should count as 1: got %v", got)
	}
}
