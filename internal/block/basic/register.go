package basic

import (
	"github.com/yungbote/blockstore/internal/block"
	"github.com/yungbote/blockstore/internal/fields"
)

func containerSpec(name string) block.Spec {
	return block.Spec{
		Name:        name,
		HasChildren: true,
		Completion:  block.Aggregator,
		Fields:      []fields.Field{DisplayNameField},
		New:         NewContainer(name),
	}
}

// RegisterAll installs the built-in block types on a registry. Called once
// during wiring; a duplicate registration surfaces as a hard error.
func RegisterAll(r *block.Registry) error {
	specs := []block.Spec{
		containerSpec("course"),
		containerSpec("chapter"),
		containerSpec("sequential"),
		containerSpec("vertical"),
		containerSpec("unit"),
		{
			Name:       "html",
			Completion: block.Completable,
			Fields:     htmlFields,
			New:        NewHTMLBlock,
		},
		{
			Name:       "video",
			Completion: block.Completable,
			Fields:     videoFields,
			New:        NewVideoBlock,
		},
		{
			Name:       "problem",
			Completion: block.Completable,
			Fields:     problemFields,
			New:        NewProblemBlock,
		},
	}
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}
