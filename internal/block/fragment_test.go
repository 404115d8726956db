package block

import (
	"encoding/json"
	"testing"
)

func TestFragmentResourceOrderAndDedup(t *testing.T) {
	f := NewFragment("<p>hi</p>")
	f.AddJavascriptURL("/static/a.js")
	f.AddCSSURL("/static/a.css")
	f.AddJavascriptURL("/static/b.js")
	f.AddJavascriptURL("/static/a.js") // duplicate, dropped

	res := f.Resources()
	if len(res) != 3 {
		t.Fatalf("want 3 resources, got %d", len(res))
	}
	if res[0].Data != "/static/a.js" || res[1].Data != "/static/a.css" || res[2].Data != "/static/b.js" {
		t.Fatalf("insertion order not preserved: %+v", res)
	}
}

func TestFragmentComposition(t *testing.T) {
	parent := NewFragment("")
	parent.AddJavascriptURL("/static/parent.js")

	child := NewFragment("<p>child</p>")
	child.AddJavascriptURL("/static/parent.js") // shared with parent
	child.AddCSSURL("/static/child.css")

	parent.Content = "<div>" + child.Content + "</div>"
	parent.AddFragmentResources(child)

	res := parent.Resources()
	if len(res) != 2 {
		t.Fatalf("want union of 2 resources, got %d: %+v", len(res), res)
	}
	if res[0].Data != "/static/parent.js" || res[1].Data != "/static/child.css" {
		t.Fatalf("stable union ordering violated: %+v", res)
	}
}

func TestFragmentJSONRoundTrip(t *testing.T) {
	f := NewFragment("<p>hi</p>")
	f.AddJavascript("console.log(1)")
	f.AddCSS("p{}")
	f.InitializeJS("MyBlock")

	raw, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if m["content"] != "<p>hi</p>" || m["js_init_fn"] != "MyBlock" {
		t.Fatalf("unexpected serialization: %v", m)
	}
	resources, ok := m["resources"].([]interface{})
	if !ok || len(resources) != 2 {
		t.Fatalf("resources: %v", m["resources"])
	}
	first := resources[0].(map[string]interface{})
	if first["kind"] != "text" || first["placement"] != "foot" {
		t.Fatalf("resource shape: %v", first)
	}

	var back Fragment
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal fragment: %v", err)
	}
	if back.Content != f.Content || len(back.Resources()) != 2 || back.JSInitFn != "MyBlock" {
		t.Fatalf("round trip lost data: %+v", back)
	}
}
