package models

import "time"

// DefaultDisinfectionAge is how long ago the last disinfection is assumed to
// have finished when no prior state exists.
const DefaultDisinfectionAge = 7 * 24 * time.Hour

// RunState is what one planner run hands to the next one.
type RunState struct {
	DisinfectionEnabled    bool        `json:"disinfectionEnabled" yaml:"disinfectionEnabled"`
	DisinfectionFinishedAt *time.Time  `json:"disinfectionFinishedAt,omitempty" yaml:"disinfectionFinishedAt,omitempty"`
	PlannedPriceWindow     PriceWindow `json:"plannedPriceWindow,omitempty" yaml:"plannedPriceWindow,omitempty"`
	UpdatedAt              time.Time   `json:"updatedAt" yaml:"updatedAt"`
}

// DefaultRunState is used on the very first run.
func DefaultRunState(now time.Time) RunState {
	finishedAt := now.Add(-DefaultDisinfectionAge).UTC()
	return RunState{
		DisinfectionEnabled:    false,
		DisinfectionFinishedAt: &finishedAt,
	}
}

// LastDisinfection returns the finished-at time, falling back to the default
// age when it was never recorded.
func (s RunState) LastDisinfection(now time.Time) time.Time {
	if s.DisinfectionFinishedAt == nil {
		return now.Add(-DefaultDisinfectionAge).UTC()
	}
	return s.DisinfectionFinishedAt.UTC()
}
