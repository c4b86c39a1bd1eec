package planner

import (
	"fmt"
	"time"

	"alpha_innotec_planner/internal/models"
)

// Settings are the planner inputs taken from configuration.
type Settings struct {
	LoadProfile             models.LoadProfile
	DisinfectionLoadProfile models.LoadProfile
	MinHours                int
	MaxHours                int
	Lookahead               time.Duration
	JitterMaxMinutes        int
	BlockHeating            bool
}

// Plan is the outcome of one planning pass: every candidate window plus
// the decision taken from them. Windows are already jittered.
type Plan struct {
	GeneratedAt time.Time `json:"generatedAt"`

	HeatingWindow             models.PriceWindow `json:"heatingWindow,omitempty"`
	DisinfectionWindow        models.PriceWindow `json:"disinfectionWindow,omitempty"`
	HighestDisinfectionWindow models.PriceWindow `json:"highestDisinfectionWindow,omitempty"`
	BlockingWindow            models.PriceWindow `json:"blockingWindow,omitempty"`

	Chosen         models.PriceWindow `json:"chosen,omitempty"`
	IsDisinfection bool               `json:"isDisinfection"`
	Shift          time.Duration      `json:"shift"`
	BlockShift     time.Duration      `json:"blockShift"`
}

// Planner turns spot prices and the previous run into a Plan.
type Planner struct {
	settings Settings
	jitter   *Jitter
}

func New(settings Settings, jitter *Jitter) *Planner {
	if settings.Lookahead <= 0 {
		settings.Lookahead = 24 * time.Hour
	}
	if jitter == nil {
		jitter = NewJitter(nil)
	}
	return &Planner{settings: settings, jitter: jitter}
}

// Build computes the plan for now. lastDisinfection is when the previous
// disinfection cycle finished.
func (p *Planner) Build(now, lastDisinfection time.Time, prices []models.SpotPrice) (Plan, error) {
	s := p.settings
	until := now.Add(s.Lookahead)
	plan := Plan{GeneratedAt: now}

	var err error
	if plan.HeatingWindow, _, err = PlanWindow(prices, s.LoadProfile, StrategyLowest, now, until, models.AllComponents); err != nil {
		return Plan{}, fmt.Errorf("plan heating window: %w", err)
	}
	if plan.DisinfectionWindow, _, err = PlanWindow(prices, s.DisinfectionLoadProfile, StrategyLowest, now, until, models.AllComponents); err != nil {
		return Plan{}, fmt.Errorf("plan disinfection window: %w", err)
	}
	if plan.HighestDisinfectionWindow, _, err = PlanWindow(prices, s.DisinfectionLoadProfile, StrategyHighest, now, until, models.AllComponents); err != nil {
		return Plan{}, fmt.Errorf("plan highest disinfection window: %w", err)
	}

	chosen, disinfect, err := SelectWindowForRun(now, lastDisinfection,
		plan.HeatingWindow, plan.DisinfectionWindow, plan.HighestDisinfectionWindow,
		s.MinHours, s.MaxHours)
	if err != nil {
		return Plan{}, err
	}
	plan.IsDisinfection = disinfect
	plan.Chosen = p.jitter.Apply(chosen, s.JitterMaxMinutes)
	plan.Shift = plan.Chosen.Start().Sub(chosen.Start())

	if s.BlockHeating {
		highest, _, err := PlanWindow(prices, BlockingLoadProfile, StrategyHighest, now, now.Add(BlockingLookahead), models.AllComponents)
		if err != nil {
			return Plan{}, fmt.Errorf("plan blocking window: %w", err)
		}
		if block := SelectWindowForBlocking(now, highest); !block.IsEmpty() {
			plan.BlockingWindow = p.jitter.Apply(block, s.JitterMaxMinutes)
			plan.BlockShift = plan.BlockingWindow.Start().Sub(block.Start())
		}
	}
	return plan, nil
}
