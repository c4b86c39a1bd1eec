package models

import "time"

// LoadProfileSection is a period of constant power draw.
type LoadProfileSection struct {
	DurationSeconds int64   `json:"durationSeconds" yaml:"durationSeconds" mapstructure:"durationSeconds"`
	PowerDrawWatt   float64 `json:"powerDrawWatt" yaml:"powerDrawWatt" mapstructure:"powerDrawWatt"`
}

// LoadProfile describes how much power a job draws over its runtime.
type LoadProfile struct {
	Sections []LoadProfileSection `json:"sections" yaml:"sections" mapstructure:"sections"`
}

// TotalDuration is the summed duration of all sections.
func (lp LoadProfile) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range lp.Sections {
		total += time.Duration(s.DurationSeconds) * time.Second
	}
	return total
}
