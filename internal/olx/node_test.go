package olx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParsePreservesStructureAndUnknownAttrs(t *testing.T) {
	src := `<unit url_name="u1" custom_attr="kept"><html url_name="h1">hi</html></unit>`
	n, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if n.Tag != "unit" || n.URLName() != "u1" {
		t.Fatalf("root: %+v", n)
	}
	if v, ok := n.Attr("custom_attr"); !ok || v != "kept" {
		t.Fatalf("unknown attribute dropped")
	}
	if len(n.Children) != 1 || n.Children[0].Tag != "html" || n.Children[0].Text != "hi" {
		t.Fatalf("child: %+v", n.Children)
	}
}

func normalize(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func TestWriteRoundTrip(t *testing.T) {
	src := `<unit url_name="u1"><html url_name="h1">hi</html></unit>`
	n, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	out := n.String()
	back, err := ParseString(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if back.Tag != n.Tag || back.URLName() != n.URLName() {
		t.Fatalf("round trip changed root: %q", out)
	}
	if len(back.Children) != 1 || back.Children[0].Text != "hi" {
		t.Fatalf("round trip changed child text: %q", out)
	}
	if normalize(back.Children[0].Text) != normalize(n.Children[0].Text) {
		t.Fatalf("text differs after normalization")
	}
}

func TestExpandIncludes(t *testing.T) {
	dir := t.TempDir()
	inner := `<html url_name="included">from file</html>`
	if err := os.WriteFile(filepath.Join(dir, "part.xml"), []byte(inner), 0o644); err != nil {
		t.Fatalf("write include: %v", err)
	}
	root, err := ParseString(`<unit url_name="u1"><include file="part.xml"/></unit>`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if err := ExpandIncludes(root, dir); err != nil {
		t.Fatalf("ExpandIncludes: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].Tag != "html" || root.Children[0].Text != "from file" {
		t.Fatalf("include not expanded: %+v", root.Children)
	}
}

func TestExpandIncludesCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.xml")
	if err := os.WriteFile(a, []byte(`<unit url_name="a"><include file="a.xml"/></unit>`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	root, err := ParseString(`<unit url_name="u"><include file="a.xml"/></unit>`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if err := ExpandIncludes(root, dir); err == nil {
		t.Fatalf("cycle not detected")
	}
}

func TestParseErrors(t *testing.T) {
	for _, bad := range []string{"", "<a><b></a></b>", "<a/><b/>"} {
		if _, err := ParseString(bad); err == nil {
			t.Fatalf("ParseString(%q): expected error", bad)
		}
	}
}
