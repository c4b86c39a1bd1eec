package planner

import (
	"fmt"
	"time"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/models"
)

// ErrInvalidConfig is config.ErrInvalidConfig so callers can match either.
var ErrInvalidConfig = config.ErrInvalidConfig

const (
	// DisinfectionDeferHorizon: a disinfection window starting later than
	// this is left for a later run.
	DisinfectionDeferHorizon = 12 * time.Hour
	// BlockingLookahead bounds how far ahead heating is blocked.
	BlockingLookahead = 24 * time.Hour
)

// BlockingLoadProfile is the reference load used to find the costliest
// heating hours: two hours at 3 kW.
var BlockingLoadProfile = models.LoadProfile{
	Sections: []models.LoadProfileSection{{DurationSeconds: 7200, PowerDrawWatt: 3000}},
}

// SelectWindowForRun picks the window to program this run and whether it
// is a disinfection run.
func SelectWindowForRun(
	now, disinfectionFinishedAt time.Time,
	heating, disinfection, highestDisinfection models.PriceWindow,
	minHours, maxHours int,
) (models.PriceWindow, bool, error) {
	if disinfection.IsEmpty() || disinfection.Start().Sub(now) > DisinfectionDeferHorizon {
		return heating, false, nil
	}
	desired, err := IsDisinfectionDesired(minHours, maxHours, disinfectionFinishedAt, disinfection, highestDisinfection)
	if err != nil {
		return nil, false, err
	}
	if desired {
		return disinfection, true, nil
	}
	return heating, false, nil
}

// IsDisinfectionDesired decides whether the cheapest disinfection window
// should be used. Below min hours since the last cycle it never is (unless
// power is free or paid for), above max hours it always is. In between the
// required price advantage over the costliest window shrinks quadratically.
func IsDisinfectionDesired(minHours, maxHours int, lastFinishedAt time.Time, lowest, highest models.PriceWindow) (bool, error) {
	if maxHours <= minHours {
		return false, fmt.Errorf("%w: max hours %d must exceed min hours %d", ErrInvalidConfig, maxHours, minHours)
	}
	if lowest.IsEmpty() {
		return false, nil
	}
	if lowest.TotalPrice(models.AllComponents) <= 0 {
		return true, nil
	}

	elapsed := lowest.End().Sub(lastFinishedAt).Hours()
	lo, hi := float64(minHours), float64(maxHours)
	switch {
	case elapsed < lo:
		return false, nil
	case elapsed > hi:
		return true, nil
	}

	t := (elapsed - lo) / (hi - lo)
	return lowest.MarketPrice() < t*t*highest.MarketPrice(), nil
}

// SelectWindowForBlocking returns the costliest heating window when it is
// still ahead and starts within BlockingLookahead, otherwise an empty window.
func SelectWindowForBlocking(now time.Time, highest models.PriceWindow) models.PriceWindow {
	if highest.IsEmpty() {
		return nil
	}
	if !highest.End().After(now) || highest.Start().Sub(now) > BlockingLookahead {
		return nil
	}
	return highest
}
