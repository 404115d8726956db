// Package block defines the uniform content-block interface, the rendered
// Fragment type, and the startup-time registry that maps block type names to
// implementations. New block types plug in without runtime changes.
package block

import (
	"context"

	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/olx"
)

// ViewContext carries caller-supplied rendering hints into a view.
type ViewContext map[string]interface{}

// HandlerRequest is a framework-neutral callback request.
type HandlerRequest struct {
	Method string
	Body   []byte
	Params map[string]string
}

// HandlerResponse is a framework-neutral callback response.
type HandlerResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// Runtime is the environment every block instance runs against. The concrete
// implementation lives in internal/runtime; blocks only see this surface.
type Runtime interface {
	// Render renders the named view of b and composes child fragments.
	Render(ctx context.Context, b Block, view string, vc ViewContext) (*Fragment, error)
	// Children resolves and instantiates b's ordered children.
	Children(ctx context.Context, b Block) ([]Block, error)
	// Service returns the named capability, or nil when absent. Callers
	// must tolerate absence.
	Service(name string) interface{}
	// PublishEvent emits an analytics-style event on behalf of the block.
	PublishEvent(ctx context.Context, name string, data map[string]interface{}) error
}

// Block is the polymorphic content-block interface. Optional capabilities
// (author view, public view, custom XML) are separate interfaces so plain
// blocks stay small.
type Block interface {
	UsageKey() keys.UsageKey
	Fields() *fields.Data
	StudentView(ctx context.Context, vc ViewContext) (*Fragment, error)
	Handle(ctx context.Context, handler string, req *HandlerRequest) (*HandlerResponse, error)
}

// AuthorViewer renders the authoring preview. Blocks without one fall back
// to StudentView.
type AuthorViewer interface {
	AuthorView(ctx context.Context, vc ViewContext) (*Fragment, error)
}

// PublicViewer renders for unauthenticated users.
type PublicViewer interface {
	PublicView(ctx context.Context, vc ViewContext) (*Fragment, error)
}

// XMLImporter lets a block consume its XML element beyond the generic
// attribute-to-field mapping.
type XMLImporter interface {
	ParseXML(node *olx.Node) error
}

// XMLExporter lets a block add custom content to its XML element on export.
type XMLExporter interface {
	AddXMLToNode(node *olx.Node) error
}

// Core is the embeddable base every block implementation builds on.
type Core struct {
	usage keys.UsageKey
	data  *fields.Data
	rt    Runtime
}

func NewCore(rt Runtime, usage keys.UsageKey, data *fields.Data) Core {
	return Core{usage: usage, data: data, rt: rt}
}

func (c *Core) UsageKey() keys.UsageKey { return c.usage }
func (c *Core) Fields() *fields.Data    { return c.data }
func (c *Core) Runtime() Runtime        { return c.rt }

// Handle is the default callback dispatch: no handlers.
func (c *Core) Handle(ctx context.Context, handler string, req *HandlerRequest) (*HandlerResponse, error) {
	return &HandlerResponse{Status: 404, ContentType: "text/plain", Body: []byte("no handler " + handler)}, nil
}
