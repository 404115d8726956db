// Package userstate binds the learner-owned field scopes to their database
// rows: user_state to one (user, usage) row, preferences to one (user, block
// type) row, user_info to the per-user profile row. Each store implements
// fields.ScopedStore with read-modify-write persistence over the jsonb
// payloads.
package userstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/blockstore/internal/data/repos/learner"
	types "github.com/yungbote/blockstore/internal/domain"
	"github.com/yungbote/blockstore/internal/fields"
	"github.com/yungbote/blockstore/internal/keys"
)

// stateUsageID is the storage identity of a usage for learner state: the
// canonical undecorated serialization, shared across branches.
func stateUsageID(usage keys.UsageKey) string {
	return keys.MakeUsageKey(usage.Course.Base(), usage.BlockType, usage.BlockID).String()
}

func decodePayload(raw datatypes.JSON) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StateStore persists user_state fields for one (user, usage) pair.
type StateStore struct {
	repo    learner.StateRepo
	userID  uuid.UUID
	usageID string
}

func NewStateStore(repo learner.StateRepo, userID uuid.UUID, usage keys.UsageKey) *StateStore {
	return &StateStore{repo: repo, userID: userID, usageID: stateUsageID(usage)}
}

func (s *StateStore) load(ctx context.Context) (map[string]interface{}, error) {
	rows, err := s.repo.GetByUserAndUsages(ctx, nil, s.userID, []string{s.usageID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]interface{}{}, nil
	}
	return decodePayload(rows[0].State)
}

func (s *StateStore) save(ctx context.Context, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, nil, &types.LearnerState{
		ID:      uuid.New(),
		UserID:  s.userID,
		UsageID: s.usageID,
		State:   datatypes.JSON(raw),
	})
}

func (s *StateStore) Get(ctx context.Context, name string) (interface{}, bool, error) {
	payload, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	v, ok := payload[name]
	return v, ok, nil
}

func (s *StateStore) SetMany(ctx context.Context, values map[string]interface{}) error {
	payload, err := s.load(ctx)
	if err != nil {
		return err
	}
	for name, v := range values {
		payload[name] = v
	}
	return s.save(ctx, payload)
}

func (s *StateStore) DeleteMany(ctx context.Context, names []string) error {
	payload, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		delete(payload, name)
	}
	return s.save(ctx, payload)
}

// PreferenceStore persists preferences fields for one (user, block type)
// pair. Every usage of the type shares the row.
type PreferenceStore struct {
	repo      learner.PreferenceRepo
	userID    uuid.UUID
	blockType string
}

func NewPreferenceStore(repo learner.PreferenceRepo, userID uuid.UUID, blockType string) *PreferenceStore {
	return &PreferenceStore{repo: repo, userID: userID, blockType: blockType}
}

func (s *PreferenceStore) load(ctx context.Context) (map[string]interface{}, error) {
	rows, err := s.repo.GetByUserAndTypes(ctx, nil, s.userID, []string{s.blockType})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]interface{}{}, nil
	}
	return decodePayload(rows[0].Prefs)
}

func (s *PreferenceStore) save(ctx context.Context, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, nil, &types.LearnerPreference{
		ID:        uuid.New(),
		UserID:    s.userID,
		BlockType: s.blockType,
		Prefs:     datatypes.JSON(raw),
	})
}

func (s *PreferenceStore) Get(ctx context.Context, name string) (interface{}, bool, error) {
	payload, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	v, ok := payload[name]
	return v, ok, nil
}

func (s *PreferenceStore) SetMany(ctx context.Context, values map[string]interface{}) error {
	payload, err := s.load(ctx)
	if err != nil {
		return err
	}
	for name, v := range values {
		payload[name] = v
	}
	return s.save(ctx, payload)
}

func (s *PreferenceStore) DeleteMany(ctx context.Context, names []string) error {
	payload, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		delete(payload, name)
	}
	return s.save(ctx, payload)
}

// InfoStore exposes the user profile as read-only user_info fields. Profile
// mutation belongs to account management, not to blocks.
type InfoStore struct {
	repo   learner.InfoRepo
	userID uuid.UUID
}

func NewInfoStore(repo learner.InfoRepo, userID uuid.UUID) *InfoStore {
	return &InfoStore{repo: repo, userID: userID}
}

func (s *InfoStore) Get(ctx context.Context, name string) (interface{}, bool, error) {
	rows, err := s.repo.GetByUserIDs(ctx, nil, []uuid.UUID{s.userID})
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	payload, err := decodePayload(rows[0].Info)
	if err != nil {
		return nil, false, err
	}
	v, ok := payload[name]
	return v, ok, nil
}

func (s *InfoStore) SetMany(context.Context, map[string]interface{}) error {
	return fmt.Errorf("user_info fields are read-only")
}

func (s *InfoStore) DeleteMany(context.Context, []string) error {
	return fmt.Errorf("user_info fields are read-only")
}

var (
	_ fields.ScopedStore = (*StateStore)(nil)
	_ fields.ScopedStore = (*PreferenceStore)(nil)
	_ fields.ScopedStore = (*InfoStore)(nil)
)
