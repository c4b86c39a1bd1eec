package service

import (
	"context"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/models"
	"alpha_innotec_planner/internal/planner"
	"alpha_innotec_planner/internal/repository"
)

// Planning runs the planner against the device, or previews its decision.
type Planning interface {
	Run(ctx context.Context) (RunResult, error)
	Preview(ctx context.Context) (planner.Plan, error)
}

// Monitoring exposes the state handed from one run to the next.
type Monitoring interface {
	GetState(ctx context.Context) (models.RunState, error)
}

// EventLog exposes the append-only run log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.RunEvent, error)
}

// Authorization issues and checks the bearer tokens guarding run triggers.
type Authorization interface {
	GenerateToken(subject string) (string, error)
	ParseToken(accessToken string) (string, error)
}

// Service aggregates the sub-services used by the API and the CLI.
type Service struct {
	Planning
	Monitoring
	EventLog
	Authorization
}

// NewService wires the repository layer and an already built planner
// service into one aggregate.
func NewService(repos *repository.Repository, planning Planning, httpCfg config.HTTPConfig) *Service {
	return &Service{
		Planning:      planning,
		Monitoring:    NewMonitoringService(repos.State),
		EventLog:      NewEventLogService(repos.Events),
		Authorization: NewAuthService(httpCfg.TokenSecret, httpCfg.TokenTTL),
	}
}
