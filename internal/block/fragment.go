package block

import "encoding/json"

type Placement string

const (
	PlacementHead Placement = "head"
	PlacementFoot Placement = "foot"
)

type ResourceKind string

const (
	ResourceURL  ResourceKind = "url"
	ResourceText ResourceKind = "text"
)

// Resource is one JS/CSS dependency of a rendered fragment.
type Resource struct {
	Kind      ResourceKind `json:"kind"`
	Data      string       `json:"data"`
	Mimetype  string       `json:"mimetype"`
	Placement Placement    `json:"placement"`
}

// Fragment is the rendered output of a block view: HTML content plus an
// ordered, duplicate-free resource list and an optional JS initializer.
// Resource order is insertion order; adding an already-present resource is a
// no-op so parent/child composition keeps a stable ordering.
type Fragment struct {
	Content       string
	JSInitFn      string
	JSInitVersion int

	resources []Resource
	seen      map[Resource]struct{}
}

func NewFragment(content string) *Fragment {
	return &Fragment{Content: content, JSInitVersion: 1}
}

func (f *Fragment) Resources() []Resource { return f.resources }

func (f *Fragment) addResource(r Resource) {
	if f.seen == nil {
		f.seen = map[Resource]struct{}{}
	}
	if _, dup := f.seen[r]; dup {
		return
	}
	f.seen[r] = struct{}{}
	f.resources = append(f.resources, r)
}

func (f *Fragment) AddJavascriptURL(url string) {
	f.addResource(Resource{Kind: ResourceURL, Data: url, Mimetype: "application/javascript", Placement: PlacementFoot})
}

func (f *Fragment) AddJavascript(text string) {
	f.addResource(Resource{Kind: ResourceText, Data: text, Mimetype: "application/javascript", Placement: PlacementFoot})
}

func (f *Fragment) AddCSSURL(url string) {
	f.addResource(Resource{Kind: ResourceURL, Data: url, Mimetype: "text/css", Placement: PlacementHead})
}

func (f *Fragment) AddCSS(text string) {
	f.addResource(Resource{Kind: ResourceText, Data: text, Mimetype: "text/css", Placement: PlacementHead})
}

// InitializeJS names the client-side function invoked against the fragment's
// root element after insertion.
func (f *Fragment) InitializeJS(fn string) {
	f.JSInitFn = fn
}

// AddFragmentResources merges a child's resources into f, preserving f's
// existing ordering and deduplicating across the union. The child's content
// is the caller's business; only resources travel.
func (f *Fragment) AddFragmentResources(child *Fragment) {
	if child == nil {
		return
	}
	for _, r := range child.resources {
		f.addResource(r)
	}
}

type fragmentJSON struct {
	Content       string     `json:"content"`
	Resources     []Resource `json:"resources"`
	JSInitFn      string     `json:"js_init_fn,omitempty"`
	JSInitVersion int        `json:"js_init_version,omitempty"`
}

func (f *Fragment) MarshalJSON() ([]byte, error) {
	res := f.resources
	if res == nil {
		res = []Resource{}
	}
	return json.Marshal(fragmentJSON{
		Content:       f.Content,
		Resources:     res,
		JSInitFn:      f.JSInitFn,
		JSInitVersion: f.JSInitVersion,
	})
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw fragmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Content = raw.Content
	f.JSInitFn = raw.JSInitFn
	f.JSInitVersion = raw.JSInitVersion
	f.resources = nil
	f.seen = nil
	for _, r := range raw.Resources {
		f.addResource(r)
	}
	return nil
}
