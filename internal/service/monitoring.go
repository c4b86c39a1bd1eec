package service

import (
	"context"
	"time"

	"alpha_innotec_planner/internal/models"
	"alpha_innotec_planner/internal/repository"
)

type MonitoringService struct {
	stateRepo repository.StateStore
	now       func() time.Time
}

func NewMonitoringService(stateRepo repository.StateStore) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo, now: time.Now}
}

// GetState returns the persisted run state.
// If nothing usable is persisted yet, returns the first-run defaults.
func (s *MonitoringService) GetState(ctx context.Context) (models.RunState, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.RunState{}, err
	}
	if state == nil {
		return models.DefaultRunState(s.now()), nil
	}
	out := *state
	out.UpdatedAt = toUTC(out.UpdatedAt)
	if out.DisinfectionFinishedAt != nil {
		finished := out.DisinfectionFinishedAt.UTC()
		out.DisinfectionFinishedAt = &finished
	}
	return out, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
