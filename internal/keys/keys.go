// Package keys implements the opaque identifier layer for course content.
//
// Every entity the platform stores or links to is addressed by one of four
// key kinds: CourseKey (a course offering), UsageKey (one placement of a
// block inside a course), DefinitionKey (reusable authored content) and
// AssetKey (a static file scoped to a course). Keys are immutable value
// types, usable as map keys, and round-trip through their string form:
// Parse(k.String()) == k for every valid key.
package keys

import (
	"fmt"
	"strings"
)

const (
	CourseNamespace     = "course-v1"
	UsageNamespace      = "block-v1"
	DefinitionNamespace = "def-v1"
	AssetNamespace      = "asset-v1"
)

const (
	BranchDraft     = "draft"
	BranchPublished = "published"
)

// Kind discriminates the key variants.
type Kind int

const (
	KindCourse Kind = iota
	KindUsage
	KindDefinition
	KindAsset
)

func (k Kind) String() string {
	switch k {
	case KindCourse:
		return "course"
	case KindUsage:
		return "usage"
	case KindDefinition:
		return "definition"
	case KindAsset:
		return "asset"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Key is the common surface of all key variants.
type Key interface {
	fmt.Stringer
	Kind() Kind
	// IsDeprecated reports whether the key was parsed from a legacy
	// slash-separated form. Freshly constructed keys are never deprecated.
	IsDeprecated() bool
}

// CourseKey identifies a course offering. Branch and Version are optional
// decorations naming a pointer into the course's version history.
type CourseKey struct {
	Org     string
	Course  string
	Run     string
	Branch  string
	Version string

	deprecated bool
}

func (k CourseKey) Kind() Kind         { return KindCourse }
func (k CourseKey) IsDeprecated() bool { return k.deprecated }

func (k CourseKey) String() string {
	if k.deprecated {
		return k.Org + "/" + k.Course + "/" + k.Run
	}
	var b strings.Builder
	b.WriteString(CourseNamespace)
	b.WriteByte(':')
	b.WriteString(k.Org + "+" + k.Course + "+" + k.Run)
	if k.Branch != "" {
		b.WriteString("+branch@" + k.Branch)
	}
	if k.Version != "" {
		b.WriteString("+version@" + k.Version)
	}
	return b.String()
}

// ForBranch returns a copy of the key pointing at the named branch. The
// version decoration is dropped since a branch names a moving head.
func (k CourseKey) ForBranch(branch string) CourseKey {
	k.Branch = branch
	k.Version = ""
	return k
}

// ForVersion returns a copy of the key pinned to an explicit version.
func (k CourseKey) ForVersion(version string) CourseKey {
	k.Version = version
	return k
}

// Base strips branch and version decorations and the deprecation flag.
func (k CourseKey) Base() CourseKey {
	return CourseKey{Org: k.Org, Course: k.Course, Run: k.Run}
}

// ID is the stable storage identity of the course: the canonical serialization
// of the undecorated key. Two keys differing only in branch or version share
// an ID.
func (k CourseKey) ID() string {
	return CourseNamespace + ":" + k.Org + "+" + k.Course + "+" + k.Run
}

// UsageKey identifies one placement of a block within a course.
type UsageKey struct {
	Course    CourseKey
	BlockType string
	BlockID   string
}

func (k UsageKey) Kind() Kind         { return KindUsage }
func (k UsageKey) IsDeprecated() bool { return k.Course.deprecated }

func (k UsageKey) String() string {
	if k.Course.deprecated {
		return "i4x://" + k.Course.Org + "/" + k.Course.Course + "/" + k.BlockType + "/" + k.BlockID
	}
	var b strings.Builder
	b.WriteString(UsageNamespace)
	b.WriteByte(':')
	b.WriteString(k.Course.Org + "+" + k.Course.Course + "+" + k.Course.Run)
	if k.Course.Branch != "" {
		b.WriteString("+branch@" + k.Course.Branch)
	}
	if k.Course.Version != "" {
		b.WriteString("+version@" + k.Course.Version)
	}
	b.WriteString("+type@" + k.BlockType)
	b.WriteString("+block@" + k.BlockID)
	return b.String()
}

// MapIntoCourse rewrites the course portion of the key, preserving block
// identity. Used when cloning courses.
func (k UsageKey) MapIntoCourse(course CourseKey) UsageKey {
	return UsageKey{Course: course, BlockType: k.BlockType, BlockID: k.BlockID}
}

// ForBranch returns a copy of the key whose course points at the named branch.
func (k UsageKey) ForBranch(branch string) UsageKey {
	k.Course = k.Course.ForBranch(branch)
	return k
}

// DefinitionKey identifies reusable authored content independent of placement.
type DefinitionKey struct {
	BlockType    string
	DefinitionID string
}

func (k DefinitionKey) Kind() Kind         { return KindDefinition }
func (k DefinitionKey) IsDeprecated() bool { return false }

func (k DefinitionKey) String() string {
	return DefinitionNamespace + ":" + k.DefinitionID + "+type@" + k.BlockType
}

// AssetKey identifies a static file scoped to a course.
type AssetKey struct {
	Course    CourseKey
	AssetType string
	Path      string
}

func (k AssetKey) Kind() Kind         { return KindAsset }
func (k AssetKey) IsDeprecated() bool { return k.Course.deprecated }

func (k AssetKey) String() string {
	return AssetNamespace + ":" + k.Course.Org + "+" + k.Course.Course + "+" + k.Course.Run +
		"+type@" + k.AssetType + "+asset@" + k.Path
}

// MakeCourseKey composes a course key from its parts without parsing.
func MakeCourseKey(org, course, run string) CourseKey {
	return CourseKey{Org: org, Course: course, Run: run}
}

// MakeUsageKey composes a usage key without touching any store.
func MakeUsageKey(course CourseKey, blockType, blockID string) UsageKey {
	return UsageKey{Course: course, BlockType: blockType, BlockID: blockID}
}

// MakeAssetKey composes an asset key without touching any store.
func MakeAssetKey(course CourseKey, assetType, path string) AssetKey {
	return AssetKey{Course: course, AssetType: assetType, Path: path}
}

// Serialize renders any key to its wire form. The inverse of Parse.
func Serialize(k Key) string { return k.String() }
