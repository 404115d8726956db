// Package domain holds the persisted entity types. Shapes follow the split
// store's three document kinds plus learner state and the overview
// projection; payload maps live in jsonb columns.
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DefinitionDoc is one reusable block definition: the authored content
// shared across every usage that references it.
type DefinitionDoc struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BlockType string         `gorm:"column:block_type;not null;index" json:"block_type"`
	Fields    datatypes.JSON `gorm:"column:fields;type:jsonb" json:"fields"`

	EditedBy        uuid.UUID  `gorm:"type:uuid;column:edited_by" json:"edited_by"`
	EditedOn        time.Time  `gorm:"column:edited_on;not null" json:"edited_on"`
	PreviousVersion *uuid.UUID `gorm:"type:uuid;column:previous_version" json:"previous_version,omitempty"`
}

func (DefinitionDoc) TableName() string { return "definitions" }

// StructureDoc is one immutable version of a course tree. VersionID is the
// content address of the Blocks payload; previous versions stay reachable by
// their version ids.
type StructureDoc struct {
	VersionID string         `gorm:"column:version_id;primaryKey" json:"version_id"`
	CourseID  string         `gorm:"column:course_id;not null;index" json:"course_id"`
	RootKey   string         `gorm:"column:root_key;not null" json:"root_key"`
	Blocks    datatypes.JSON `gorm:"column:blocks;type:jsonb" json:"blocks"`

	EditedBy        uuid.UUID `gorm:"type:uuid;column:edited_by" json:"edited_by"`
	EditedOn        time.Time `gorm:"column:edited_on;not null" json:"edited_on"`
	PreviousVersion string    `gorm:"column:previous_version" json:"previous_version,omitempty"`
}

func (StructureDoc) TableName() string { return "structures" }

// ActiveVersions is the per-course branch pointer document. Head moves are
// compare-and-swap on the previous version id.
type ActiveVersions struct {
	CourseID         string    `gorm:"column:course_id;primaryKey" json:"course_id"`
	DraftVersion     string    `gorm:"column:draft_version" json:"draft_version"`
	PublishedVersion string    `gorm:"column:published_version" json:"published_version"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (ActiveVersions) TableName() string { return "active_versions" }
