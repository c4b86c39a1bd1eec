package planner

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"alpha_innotec_planner/internal/models"
)

// Strategy selects whether the cheapest or the costliest window is wanted.
type Strategy int

const (
	StrategyLowest Strategy = iota
	StrategyHighest
)

func (s Strategy) String() string {
	if s == StrategyHighest {
		return "highest"
	}
	return "lowest"
}

// ErrEmptyProfile is returned for load profiles without duration.
var ErrEmptyProfile = errors.New("load profile has no duration")

// PlanWindow finds the gapless block of spot prices that best fits profile.
// Candidates start at a price boundary in [after, before) and extend until
// the profile is covered. The cost is the energy of every profile section
// multiplied by the prices it overlaps. No candidate yields an empty window
// and no error.
func PlanWindow(
	prices []models.SpotPrice,
	profile models.LoadProfile,
	strategy Strategy,
	after, before time.Time,
	components models.PriceComponents,
) (models.PriceWindow, float64, error) {
	need := profile.TotalDuration()
	if need <= 0 {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidConfig, ErrEmptyProfile)
	}

	sorted := slices.Clone(prices)
	slices.SortStableFunc(sorted, func(a, b models.SpotPrice) int { return a.From.Compare(b.From) })

	var (
		best     models.PriceWindow
		bestCost float64
	)
	for i, p := range sorted {
		if p.From.Before(after) || !p.From.Before(before) {
			continue
		}
		end, ok := coverEnd(sorted, i, need)
		if !ok {
			continue
		}
		window := models.PriceWindow(sorted[i : end+1])
		cost := windowCost(window, profile, components)
		if best == nil || better(strategy, cost, bestCost) {
			best, bestCost = slices.Clone(window), cost
		}
	}
	return best, bestCost, nil
}

func better(s Strategy, cost, current float64) bool {
	if s == StrategyHighest {
		return cost > current
	}
	return cost < current
}

// coverEnd returns the index of the last price needed to cover need from
// sorted[start].From without gaps.
func coverEnd(sorted []models.SpotPrice, start int, need time.Duration) (int, bool) {
	begin := sorted[start].From
	for j := start; j < len(sorted); j++ {
		if j > start && !sorted[j].From.Equal(sorted[j-1].Till) {
			return 0, false
		}
		if sorted[j].Till.Sub(begin) >= need {
			return j, true
		}
	}
	return 0, false
}

// windowCost lays the profile sections back to back from the window start
// and sums kWh × price over every overlap.
func windowCost(window models.PriceWindow, profile models.LoadProfile, components models.PriceComponents) float64 {
	cost := 0.0
	cursor := window.Start()
	for _, s := range profile.Sections {
		secStart := cursor
		secEnd := cursor.Add(time.Duration(s.DurationSeconds) * time.Second)
		cursor = secEnd
		for _, p := range window {
			from := maxTime(secStart, p.From)
			till := minTime(secEnd, p.Till)
			if !till.After(from) {
				continue
			}
			kwh := s.PowerDrawWatt / 1000 * till.Sub(from).Hours()
			cost += kwh * p.TotalPrice(components)
		}
	}
	return cost
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
