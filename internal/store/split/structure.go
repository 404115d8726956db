package split

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/blockstore/internal/keys"
)

// localKey identifies a block within one course structure.
type localKey struct {
	Type string
	ID   string
}

func (k localKey) String() string { return k.Type + "+" + k.ID }

func parseLocalKey(s string) (localKey, error) {
	t, id, ok := strings.Cut(s, "+")
	if !ok || t == "" || id == "" {
		return localKey{}, fmt.Errorf("malformed block key %q", s)
	}
	return localKey{Type: t, ID: id}, nil
}

func localKeyOf(usage keys.UsageKey) localKey {
	return localKey{Type: usage.BlockType, ID: usage.BlockID}
}

// blockNode is one entry of a structure document.
type blockNode struct {
	Definition uuid.UUID
	Fields     map[string]interface{}
	Children   []localKey
}

func (n *blockNode) clone() *blockNode {
	cp := &blockNode{Definition: n.Definition}
	if n.Fields != nil {
		cp.Fields = make(map[string]interface{}, len(n.Fields))
		for k, v := range n.Fields {
			cp.Fields[k] = v
		}
	}
	cp.Children = append([]localKey(nil), n.Children...)
	return cp
}

// structure is the inflated form of one course tree version.
type structure struct {
	Root   localKey
	Blocks map[localKey]*blockNode
}

func newStructure(root localKey) *structure {
	return &structure{Root: root, Blocks: map[localKey]*blockNode{}}
}

func (s *structure) clone() *structure {
	cp := newStructure(s.Root)
	for k, n := range s.Blocks {
		cp.Blocks[k] = n.clone()
	}
	return cp
}

// parentOf scans for the block holding k as a child.
func (s *structure) parentOf(k localKey) (localKey, bool) {
	for pk, n := range s.Blocks {
		for _, c := range n.Children {
			if c == k {
				return pk, true
			}
		}
	}
	return localKey{}, false
}

// subtree returns k and its descendants in depth-first order.
func (s *structure) subtree(k localKey) []localKey {
	var out []localKey
	var walk func(localKey)
	walk = func(cur localKey) {
		n, ok := s.Blocks[cur]
		if !ok {
			return
		}
		out = append(out, cur)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(k)
	return out
}

// order returns the whole tree in depth-first order from the root.
func (s *structure) order() []localKey {
	return s.subtree(s.Root)
}

// removeSubtree deletes k and its descendants and unlinks k from its parent.
func (s *structure) removeSubtree(k localKey) {
	for _, victim := range s.subtree(k) {
		delete(s.Blocks, victim)
	}
	if pk, ok := s.parentOf(k); ok {
		parent := s.Blocks[pk]
		kept := parent.Children[:0]
		for _, c := range parent.Children {
			if c != k {
				kept = append(kept, c)
			}
		}
		parent.Children = kept
	}
}

// Wire encoding of a structure document's blocks payload.

type blockJSON struct {
	BlockType  string                 `json:"block_type"`
	Definition string                 `json:"definition"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	Children   []string               `json:"children,omitempty"`
}

type structureJSON struct {
	Root   string               `json:"root"`
	Blocks map[string]blockJSON `json:"blocks"`
}

func encodeStructure(s *structure) ([]byte, error) {
	out := structureJSON{Root: s.Root.String(), Blocks: make(map[string]blockJSON, len(s.Blocks))}
	for k, n := range s.Blocks {
		children := make([]string, len(n.Children))
		for i, c := range n.Children {
			children[i] = c.String()
		}
		out.Blocks[k.String()] = blockJSON{
			BlockType:  k.Type,
			Definition: n.Definition.String(),
			Fields:     n.Fields,
			Children:   children,
		}
	}
	return json.Marshal(out)
}

func decodeStructure(raw []byte) (*structure, error) {
	var in structureJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode structure: %w", err)
	}
	root, err := parseLocalKey(in.Root)
	if err != nil {
		return nil, err
	}
	s := newStructure(root)
	for ks, b := range in.Blocks {
		k, err := parseLocalKey(ks)
		if err != nil {
			return nil, err
		}
		def, err := uuid.Parse(b.Definition)
		if err != nil {
			return nil, fmt.Errorf("decode structure: definition of %s: %w", ks, err)
		}
		n := &blockNode{Definition: def, Fields: b.Fields}
		for _, cs := range b.Children {
			c, err := parseLocalKey(cs)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}
		s.Blocks[k] = n
	}
	return s, nil
}

// versionID is the content address of a structure: a SHA-1 over the course
// id and the canonical JSON encoding. Edit metadata stays out of the hash so
// re-saving identical content yields the identical version.
func versionID(courseID string, encoded []byte) string {
	h := sha1.New()
	h.Write([]byte(courseID))
	h.Write([]byte{0})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil))
}
