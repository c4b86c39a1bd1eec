package models

import "time"

// Run event types.
const (
	EventRunStarted          = "RUN_STARTED"
	EventPlanSelected        = "PLAN_SELECTED"
	EventScheduleWritten     = "SCHEDULE_WRITTEN"
	EventDisinfectionToggled = "DISINFECTION_TOGGLED"
	EventTemperatureSet      = "TEMPERATURE_SET"
	EventRunSkipped          = "RUN_SKIPPED"
	EventRunFinished         = "RUN_FINISHED"
	EventRunFailed           = "RUN_FAILED"
)

// RunEvent is a single entry of the run log.
type RunEvent struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
