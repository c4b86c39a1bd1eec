package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"alpha_innotec_planner/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

var _ StateStore = (*StateSQLite)(nil)

const (
	runStateRowID = 1

	upsertRunStateSQL = `
		INSERT INTO run_state (id, disinfection_enabled, disinfection_finished_at, planned_window, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			disinfection_enabled=excluded.disinfection_enabled,
			disinfection_finished_at=excluded.disinfection_finished_at,
			planned_window=excluded.planned_window,
			updated_at=excluded.updated_at
	`

	selectRunStateSQL = `
		SELECT disinfection_enabled, disinfection_finished_at, planned_window, updated_at
		FROM run_state WHERE id=?
	`
)

// Save replaces the single run_state row.
func (r *StateSQLite) Save(ctx context.Context, s models.RunState) error {
	window, err := json.Marshal(s.PlannedPriceWindow)
	if err != nil {
		return err
	}

	var finishedAt sql.NullTime
	if s.DisinfectionFinishedAt != nil {
		finishedAt = sql.NullTime{Time: s.DisinfectionFinishedAt.UTC(), Valid: true}
	}

	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, upsertRunStateSQL,
		runStateRowID,
		s.DisinfectionEnabled,
		finishedAt,
		string(window),
		updatedAt.UTC(),
	)
	return err
}

// Load returns the stored state, or nil when none was saved yet or the
// planned window column cannot be decoded.
func (r *StateSQLite) Load(ctx context.Context) (*models.RunState, error) {
	row := r.db.QueryRowContext(ctx, selectRunStateSQL, runStateRowID)

	var (
		s          models.RunState
		finishedAt sql.NullTime
		window     sql.NullString
	)
	if err := row.Scan(&s.DisinfectionEnabled, &finishedAt, &window, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		s.DisinfectionFinishedAt = &t
	}
	if window.Valid && window.String != "" && window.String != "null" {
		if err := json.Unmarshal([]byte(window.String), &s.PlannedPriceWindow); err != nil {
			return nil, nil
		}
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
