package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/models"
)

// StateStore keeps the RunState handed from one run to the next. Load
// returns nil, nil when there is no usable prior state: a missing or
// unparseable record counts as a first run.
type StateStore interface {
	Load(ctx context.Context) (*models.RunState, error)
	Save(ctx context.Context, s models.RunState) error
}

// EventFilter narrows List; zero fields do not filter.
type EventFilter struct {
	From  time.Time
	To    time.Time
	Type  string
	RunID string
}

type EventRepo interface {
	Append(ctx context.Context, e models.RunEvent) error
	List(ctx context.Context, f EventFilter) ([]models.RunEvent, error)
}

type Repository struct {
	State  StateStore
	Events EventRepo
}

// Close releases backend resources held by the state store. The sqlite
// handle is owned by the caller and stays open.
func (r *Repository) Close() error {
	if c, ok := r.State.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewRepository wires the sqlite event log with the state backend chosen
// in cfg.
func NewRepository(db *sql.DB, cfg config.StateConfig) (*Repository, error) {
	state, err := NewStateStore(db, cfg)
	if err != nil {
		return nil, err
	}
	return &Repository{
		State:  state,
		Events: NewEventSQLite(db),
	}, nil
}

// NewStateStore returns the StateStore for cfg.Backend.
func NewStateStore(db *sql.DB, cfg config.StateConfig) (StateStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return NewStateSQLite(db), nil
	case config.BackendFile:
		return NewStateFile(cfg.Path), nil
	case config.BackendRedis:
		return NewStateRedis(NewRedisClient(cfg), cfg.RedisKey), nil
	default:
		return nil, fmt.Errorf("%w: unknown state backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}
