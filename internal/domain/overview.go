package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CourseOverview is the denormalized projection of course-level metadata used
// by listings and navigation. One row per course; deleted on publish and
// rebuilt from the modulestore on the next read.
type CourseOverview struct {
	CourseID    string `gorm:"column:course_id;primaryKey" json:"course_id"`
	Org         string `gorm:"column:org;not null;index" json:"org"`
	Number      string `gorm:"column:number;not null" json:"number"`
	Run         string `gorm:"column:run;not null" json:"run"`
	DisplayName string `gorm:"column:display_name;not null" json:"display_name"`

	Start           *time.Time `gorm:"column:start" json:"start,omitempty"`
	End             *time.Time `gorm:"column:end" json:"end,omitempty"`
	AdvertisedStart string     `gorm:"column:advertised_start" json:"advertised_start,omitempty"`
	EnrollmentStart *time.Time `gorm:"column:enrollment_start" json:"enrollment_start,omitempty"`
	EnrollmentEnd   *time.Time `gorm:"column:enrollment_end" json:"enrollment_end,omitempty"`

	CourseImageURL string `gorm:"column:course_image_url" json:"course_image_url,omitempty"`
	BannerImageURL string `gorm:"column:banner_image_url" json:"banner_image_url,omitempty"`

	SelfPaced           bool    `gorm:"column:self_paced;not null;default:false" json:"self_paced"`
	LowestPassingGrade  float64 `gorm:"column:lowest_passing_grade;not null;default:0.5" json:"lowest_passing_grade"`
	HasProctoredExams   bool    `gorm:"column:has_proctored_exams;not null;default:false" json:"has_proctored_exams"`
	PublishedVersion    string  `gorm:"column:published_version" json:"published_version,omitempty"`

	Extra datatypes.JSON `gorm:"column:extra;type:jsonb" json:"extra,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CourseOverview) TableName() string { return "course_overview" }
