package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LearnerState is one learner's state for one usage. Created lazily on first
// interaction; removed when either the user or the usage goes away.
type LearnerState struct {
	ID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_learner_state_user_usage" json:"user_id"`
	UsageID string         `gorm:"column:usage_id;not null;uniqueIndex:idx_learner_state_user_usage" json:"usage_id"`
	State   datatypes.JSON `gorm:"column:state;type:jsonb" json:"state"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LearnerState) TableName() string { return "learner_state" }

// LearnerPreference is per-learner state shared across every usage of one
// block type. Keyed by the type's registered name.
type LearnerPreference struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_learner_pref_user_type" json:"user_id"`
	BlockType string         `gorm:"column:block_type;not null;uniqueIndex:idx_learner_pref_user_type" json:"block_type"`
	Prefs     datatypes.JSON `gorm:"column:prefs;type:jsonb" json:"prefs"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LearnerPreference) TableName() string { return "learner_preference" }

// LearnerInfo is per-learner state shared across all blocks.
type LearnerInfo struct {
	UserID uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	Info   datatypes.JSON `gorm:"column:info;type:jsonb" json:"info"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LearnerInfo) TableName() string { return "learner_info" }
