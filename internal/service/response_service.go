package service

import (
	"time"

	"alpha_innotec_planner/internal/models"
	"alpha_innotec_planner/internal/planner"
)

// LogFilter supports history filtering by time range, type and run.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "RUN_STARTED", "PLAN_SELECTED", ...
	RunID string
}

// RunResult describes what one run did to the device. It is published
// after every run, failed ones included.
type RunResult struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Plan    planner.Plan `json:"plan"`
	Skipped bool         `json:"skipped,omitempty"`

	TapWaterSlots       []int   `json:"tapWaterSlots,omitempty"`
	HeatingSlots        []int   `json:"heatingSlots,omitempty"`
	DisinfectionToggled bool    `json:"disinfectionToggled"`
	Temperature         float64 `json:"temperature,omitempty"`
	TemperatureChanged  bool    `json:"temperatureChanged"`

	State *models.RunState `json:"state,omitempty"`
	Error string           `json:"error,omitempty"`
}
