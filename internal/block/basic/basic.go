// Package basic provides the built-in block types: the structural containers
// (course, chapter, sequential, vertical) and the leaf content types (html,
// video, problem). They are registered explicitly at startup; nothing here is
// discovered implicitly.
package basic

import (
	"context"
	"fmt"
	"html"

	"github.com/yungbote/blockstore/internal/block"
	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/olx"
)

// DisplayNameField is shared by every built-in type.
var DisplayNameField = fields.Field{
	Name:    "display_name",
	Type:    fields.String,
	Scope:   fields.Settings,
	Default: "",
	Help:    "Name shown in navigation and the outline.",
}

func displayName(ctx context.Context, b block.Block, fallback string) string {
	v, err := b.Fields().Get(ctx, "display_name")
	if err == nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// Container renders its ordered children inline and aggregates completion.
// course, chapter, sequential and vertical are all containers differing only
// in type name and default display name.
type Container struct {
	block.Core
	typeName string
}

func NewContainer(typeName string) block.Factory {
	return func(rt block.Runtime, usage keys.UsageKey, data *fields.Data) block.Block {
		return &Container{Core: block.NewCore(rt, usage, data), typeName: typeName}
	}
}

func (c *Container) StudentView(ctx context.Context, vc block.ViewContext) (*block.Fragment, error) {
	return c.renderChildren(ctx, "student_view", vc)
}

func (c *Container) AuthorView(ctx context.Context, vc block.ViewContext) (*block.Fragment, error) {
	return c.renderChildren(ctx, "author_view", vc)
}

func (c *Container) PublicView(ctx context.Context, vc block.ViewContext) (*block.Fragment, error) {
	return c.renderChildren(ctx, "public_view", vc)
}

func (c *Container) renderChildren(ctx context.Context, view string, vc block.ViewContext) (*block.Fragment, error) {
	children, err := c.Runtime().Children(ctx, c)
	if err != nil {
		return nil, err
	}
	frag := block.NewFragment("")
	name := displayName(ctx, c, c.typeName)
	frag.Content = fmt.Sprintf(`<div class="xblock-%s" data-usage="%s"><h2>%s</h2>`,
		c.typeName, html.EscapeString(c.UsageKey().String()), html.EscapeString(name))
	for _, child := range children {
		childFrag, err := c.Runtime().Render(ctx, child, view, vc)
		if err != nil {
			return nil, err
		}
		frag.Content += childFrag.Content
		frag.AddFragmentResources(childFrag)
	}
	frag.Content += `</div>`
	return frag, nil
}

// HTMLBlock is authored markup. Its body round-trips through the XML element
// text.
type HTMLBlock struct {
	block.Core
}

var htmlFields = []fields.Field{
	DisplayNameField,
	{Name: "data", Type: fields.String, Scope: fields.Content, Default: "", Help: "Raw HTML body."},
}

func NewHTMLBlock(rt block.Runtime, usage keys.UsageKey, data *fields.Data) block.Block {
	return &HTMLBlock{Core: block.NewCore(rt, usage, data)}
}

func (h *HTMLBlock) StudentView(ctx context.Context, vc block.ViewContext) (*block.Fragment, error) {
	body, err := h.Fields().Get(ctx, "data")
	if err != nil {
		return nil, err
	}
	s, _ := body.(string)
	frag := block.NewFragment(fmt.Sprintf(`<div class="xblock-html">%s</div>`, s))
	return frag, nil
}

func (h *HTMLBlock) PublicView(ctx context.Context, vc block.ViewContext) (*block.Fragment, error) {
	return h.StudentView(ctx, vc)
}

func (h *HTMLBlock) ParseXML(node *olx.Node) error {
	if node.Text != "" {
		return h.Fields().Set("data", node.Text)
	}
	return nil
}

func (h *HTMLBlock) AddXMLToNode(node *olx.Node) error {
	body, err := h.Fields().Get(context.Background(), "data")
	if err != nil {
		return err
	}
	if s, _ := body.(string); s != "" {
		node.Text = s
	}
	return nil
}

// VideoBlock plays a single video source and tracks watch position per
// learner.
type VideoBlock struct {
	block.Core
}

var videoFields = []fields.Field{
	DisplayNameField,
	{Name: "source", Type: fields.String, Scope: fields.Content, Default: "", Help: "Video source URL."},
	{Name: "position_seconds", Type: fields.Integer, Scope: fields.UserState, Default: int64(0)},
	{Name: "playback_speed", Type: fields.Float, Scope: fields.Preferences, Default: 1.0},
}

func NewVideoBlock(rt block.Runtime, usage keys.UsageKey, data *fields.Data) block.Block {
	return &VideoBlock{Core: block.NewCore(rt, usage, data)}
}

func (v *VideoBlock) StudentView(ctx context.Context, vc block.ViewContext) (*block.Fragment, error) {
	src, err := v.Fields().Get(ctx, "source")
	if err != nil {
		return nil, err
	}
	s, _ := src.(string)
	frag := block.NewFragment(fmt.Sprintf(`<div class="xblock-video"><video src="%s"></video></div>`, html.EscapeString(s)))
	frag.AddJavascriptURL("/static/js/video_player.js")
	frag.InitializeJS("VideoBlock")
	return frag, nil
}

func (v *VideoBlock) Handle(ctx context.Context, handler string, req *block.HandlerRequest) (*block.HandlerResponse, error) {
	switch handler {
	case "save_position":
		pos := req.Params["position"]
		if err := v.Fields().Set("position_seconds", pos); err != nil {
			return nil, err
		}
		if err := v.Fields().Save(ctx); err != nil {
			return nil, err
		}
		return &block.HandlerResponse{Status: 200, ContentType: "application/json", Body: []byte(`{"ok":true}`)}, nil
	default:
		return v.Core.Handle(ctx, handler, req)
	}
}

// ProblemBlock is a graded exercise carrying per-learner attempt state.
type ProblemBlock struct {
	block.Core
}

var problemFields = []fields.Field{
	DisplayNameField,
	{Name: "data", Type: fields.String, Scope: fields.Content, Default: "", Help: "Problem markup."},
	{Name: "weight", Type: fields.Float, Scope: fields.Settings, Default: 1.0},
	{Name: "max_attempts", Type: fields.Integer, Scope: fields.Settings, Default: int64(0)},
	{Name: "attempts", Type: fields.Integer, Scope: fields.UserState, Default: int64(0)},
	{Name: "done", Type: fields.Boolean, Scope: fields.UserState, Default: false},
}

func NewProblemBlock(rt block.Runtime, usage keys.UsageKey, data *fields.Data) block.Block {
	return &ProblemBlock{Core: block.NewCore(rt, usage, data)}
}

func (p *ProblemBlock) StudentView(ctx context.Context, vc block.ViewContext) (*block.Fragment, error) {
	body, err := p.Fields().Get(ctx, "data")
	if err != nil {
		return nil, err
	}
	s, _ := body.(string)
	frag := block.NewFragment(fmt.Sprintf(`<div class="xblock-problem">%s</div>`, s))
	frag.AddJavascriptURL("/static/js/problem.js")
	frag.AddCSSURL("/static/css/problem.css")
	frag.InitializeJS("ProblemBlock")
	return frag, nil
}

func (p *ProblemBlock) Handle(ctx context.Context, handler string, req *block.HandlerRequest) (*block.HandlerResponse, error) {
	switch handler {
	case "submit":
		attempts, err := p.Fields().Get(ctx, "attempts")
		if err != nil {
			return nil, err
		}
		n, _ := attempts.(int64)
		if err := p.Fields().Set("attempts", n+1); err != nil {
			return nil, err
		}
		if err := p.Fields().Set("done", true); err != nil {
			return nil, err
		}
		if err := p.Fields().Save(ctx); err != nil {
			return nil, err
		}
		_ = p.Runtime().PublishEvent(ctx, "problem.submitted", map[string]interface{}{
			"usage":   p.UsageKey().String(),
			"attempt": n + 1,
		})
		return &block.HandlerResponse{Status: 200, ContentType: "application/json", Body: []byte(`{"ok":true}`)}, nil
	default:
		return p.Core.Handle(ctx, handler, req)
	}
}

func (p *ProblemBlock) ParseXML(node *olx.Node) error {
	if node.Text != "" {
		return p.Fields().Set("data", node.Text)
	}
	return nil
}

func (p *ProblemBlock) AddXMLToNode(node *olx.Node) error {
	body, err := p.Fields().Get(context.Background(), "data")
	if err != nil {
		return err
	}
	if s, _ := body.(string); s != "" {
		node.Text = s
	}
	return nil
}
