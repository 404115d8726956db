// Package overview maintains the denormalized course-metadata projection.
// Rows are built lazily from the published branch and invalidated by publish
// and delete signals, so a listing read never renders stale metadata for
// longer than one publish.
package overview

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	overviewrepo "github.com/yungbote/blockstore/internal/data/repos/overview"
	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"github.com/yungbote/blockstore/internal/pubsub"
	"github.com/yungbote/blockstore/internal/store"
)

// fields consumed into dedicated columns; everything else lands in Extra.
var consumedSettings = map[string]bool{
	"display_name":         true,
	"start":                true,
	"end":                  true,
	"advertised_start":     true,
	"enrollment_start":     true,
	"enrollment_end":       true,
	"course_image_url":     true,
	"banner_image_url":     true,
	"self_paced":           true,
	"lowest_passing_grade": true,
	"has_proctored_exams":  true,
}

type Service struct {
	ms   store.Modulestore
	repo overviewrepo.OverviewRepo
	log  *logger.Logger
}

func NewService(ms store.Modulestore, repo overviewrepo.OverviewRepo, baseLog *logger.Logger) *Service {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &Service{ms: ms, repo: repo, log: baseLog.With("service", "CourseOverview")}
}

// Register wires the invalidation subscribers. Must run before the structure
// cache's evictor subscribes so a rebuild triggered right after publish reads
// the new version.
func (s *Service) Register(hub *pubsub.Hub) {
	hub.Subscribe(pubsub.CoursePublished, "overview-invalidate", s.onPublished)
	hub.Subscribe(pubsub.CourseDeleted, "overview-remove", s.onDeleted)
}

func (s *Service) onPublished(ctx context.Context, course keys.CourseKey) error {
	return s.repo.FullDeleteByCourseIDs(ctx, nil, []string{course.ID()})
}

func (s *Service) onDeleted(ctx context.Context, course keys.CourseKey) error {
	return s.repo.FullDeleteByCourseIDs(ctx, nil, []string{course.ID()})
}

// Get returns the overview row, rebuilding it from the published branch when
// absent.
func (s *Service) Get(ctx context.Context, course keys.CourseKey) (*types.CourseOverview, error) {
	id := course.ID()
	rows, err := s.repo.GetByCourseIDs(ctx, nil, []string{id})
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	return s.rebuild(ctx, course)
}

// ListByOrgs returns the cached rows for the given orgs. Listing does not
// rebuild: a course missing here has never been published or read.
func (s *Service) ListByOrgs(ctx context.Context, orgs []string) ([]*types.CourseOverview, error) {
	return s.repo.GetByOrgs(ctx, nil, orgs)
}

func (s *Service) rebuild(ctx context.Context, course keys.CourseKey) (*types.CourseOverview, error) {
	root, err := s.ms.GetCourse(ctx, course.ForBranch(keys.BranchPublished), 0)
	if err != nil {
		return nil, err
	}

	row := &types.CourseOverview{
		CourseID:           course.ID(),
		Org:                course.Org,
		Number:             course.Course,
		Run:                course.Run,
		DisplayName:        root.SettingString("display_name", root.BlockType),
		AdvertisedStart:    root.SettingString("advertised_start", ""),
		CourseImageURL:     root.SettingString("course_image_url", ""),
		BannerImageURL:     root.SettingString("banner_image_url", ""),
		SelfPaced:          settingBool(root, "self_paced"),
		LowestPassingGrade: settingFloat(root, "lowest_passing_grade", 0.5),
		HasProctoredExams:  settingBool(root, "has_proctored_exams"),
		PublishedVersion:   root.Version,
		Start:              settingTime(root, "start"),
		End:                settingTime(root, "end"),
		EnrollmentStart:    settingTime(root, "enrollment_start"),
		EnrollmentEnd:      settingTime(root, "enrollment_end"),
	}

	extra := map[string]interface{}{}
	for name, v := range root.Settings {
		if !consumedSettings[name] {
			extra[name] = v
		}
	}
	if raw, err := json.Marshal(extra); err == nil {
		row.Extra = datatypes.JSON(raw)
	}

	if err := s.repo.Upsert(ctx, nil, row); err != nil {
		return nil, err
	}
	s.log.Info("overview rebuilt", "course", row.CourseID, "version", row.PublishedVersion)
	return row, nil
}

func settingBool(it *store.Item, name string) bool {
	if v, ok := it.Settings[name].(bool); ok {
		return v
	}
	return false
}

func settingFloat(it *store.Item, name string, fallback float64) float64 {
	if v, ok := it.Settings[name].(float64); ok {
		return v
	}
	return fallback
}

func settingTime(it *store.Item, name string) *time.Time {
	s, ok := it.Settings[name].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
