// Package olx handles the on-disk XML representation of course content: a
// tree of elements named by block type, each carrying a url_name attribute
// equal to the block id. Unknown attributes on known elements survive a
// round-trip verbatim.
package olx

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Node is one element of the parsed tree. Attrs keeps declaration order so
// exports are deterministic.
type Node struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Node
}

type Attr struct {
	Name  string
	Value string
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *Node) SetAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// URLName returns the url_name attribute, the block id of the element.
func (n *Node) URLName() string {
	v, _ := n.Attr("url_name")
	return v
}

// Parse reads one XML document into a Node tree. Character data directly
// under an element is preserved (whitespace-trimmed) in Text.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var stack []*Node
	var root *Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: t.Name.Local}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			} else {
				return nil, fmt.Errorf("parse xml: multiple root elements")
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("parse xml: unbalanced end element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("parse xml: empty document")
	}
	trimText(root)
	return root, nil
}

func trimText(n *Node) {
	n.Text = strings.TrimSpace(n.Text)
	for _, c := range n.Children {
		trimText(c)
	}
}

// ParseString is a convenience wrapper for tests and inline content.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

// ExpandIncludes replaces every <include file="..."/> element in the tree
// with the parsed contents of the referenced file, relative to dir. Expansion
// runs before block instantiation so downstream passes see a single tree.
// Includes may nest; a cycle is reported rather than followed.
func ExpandIncludes(n *Node, dir string) error {
	return expandIncludes(n, dir, map[string]bool{})
}

func expandIncludes(n *Node, dir string, inFlight map[string]bool) error {
	for i, c := range n.Children {
		if c.Tag != "include" {
			if err := expandIncludes(c, dir, inFlight); err != nil {
				return err
			}
			continue
		}
		file, ok := c.Attr("file")
		if !ok || file == "" {
			return fmt.Errorf("include element missing file attribute")
		}
		path := filepath.Join(dir, file)
		if inFlight[path] {
			return fmt.Errorf("include cycle at %s", path)
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("include %s: %w", file, err)
		}
		sub, err := Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("include %s: %w", file, err)
		}
		inFlight[path] = true
		if err := expandIncludes(sub, filepath.Dir(path), inFlight); err != nil {
			return err
		}
		delete(inFlight, path)
		n.Children[i] = sub
	}
	return nil
}

// Write serializes the tree back to XML. Attribute order follows Attrs.
func Write(w io.Writer, n *Node) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := writeNode(enc, n); err != nil {
		return err
	}
	return enc.Flush()
}

func writeNode(enc *xml.Encoder, n *Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Tag}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := writeNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

// String renders the tree to a string, mainly for tests and logging.
func (n *Node) String() string {
	var b strings.Builder
	_ = Write(&b, n)
	return b.String()
}

// SortedAttrNames lists attribute names in lexical order, used by callers
// that need a canonical view of an element.
func (n *Node) SortedAttrNames() []string {
	names := make([]string, 0, len(n.Attrs))
	for _, a := range n.Attrs {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}
