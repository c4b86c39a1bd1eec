package planner

import (
	"errors"
	"math"
	"testing"
	"time"

	"alpha_innotec_planner/internal/models"
)

func dayPrices() []models.SpotPrice {
	market := flat(24, 0.30)
	market[3], market[4] = 0.05, 0.05
	market[18], market[19] = 0.50, 0.50
	return hourly(base, market, 0)
}

func TestPlanWindow_LowestAndHighest(t *testing.T) {
	prices := dayPrices()
	lp := profile(2*time.Hour, 2000)

	low, cost, err := PlanWindow(prices, lp, StrategyLowest, base, base.Add(24*time.Hour), models.AllComponents)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !low.Start().Equal(base.Add(3*time.Hour)) || !low.End().Equal(base.Add(5*time.Hour)) {
		t.Fatalf("lowest window %v..%v", low.Start(), low.End())
	}
	if math.Abs(cost-0.2) > 1e-9 {
		t.Fatalf("cost = %v, want 0.2", cost)
	}

	high, _, err := PlanWindow(prices, lp, StrategyHighest, base, base.Add(24*time.Hour), models.AllComponents)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !high.Start().Equal(base.Add(18 * time.Hour)) {
		t.Fatalf("highest window starts %v", high.Start())
	}
}

func TestPlanWindow_UnsortedInputAndPartialCoverage(t *testing.T) {
	prices := hourly(base, []float64{0.20, 0.10, 0.40}, 0)
	prices[0], prices[2] = prices[2], prices[0]
	lp := profile(90*time.Minute, 2000)

	w, cost, err := PlanWindow(prices, lp, StrategyLowest, base, base.Add(3*time.Hour), models.AllComponents)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	// 00:00 costs 2 kWh × 0.20 + 1 kWh × 0.10, 01:00 costs 2 kWh × 0.10 + 1 kWh × 0.40.
	if !w.Start().Equal(base) || len(w) != 2 {
		t.Fatalf("window %v..%v (%d entries)", w.Start(), w.End(), len(w))
	}
	if math.Abs(cost-0.5) > 1e-9 {
		t.Fatalf("cost = %v, want 0.5", cost)
	}
}

func TestPlanWindow_GapsBreakCandidates(t *testing.T) {
	prices := hourly(base, []float64{0.01, 0.01, 0.30, 0.30}, 0)
	prices = append(prices[:1], prices[2:]...) // drop 01:00
	lp := profile(2*time.Hour, 1000)

	w, _, err := PlanWindow(prices, lp, StrategyLowest, base, base.Add(24*time.Hour), models.AllComponents)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !w.Start().Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("window must not span the gap, got start %v", w.Start())
	}
}

func TestPlanWindow_NoCandidate(t *testing.T) {
	w, cost, err := PlanWindow(dayPrices(), profile(2*time.Hour, 1000), StrategyLowest,
		base.Add(48*time.Hour), base.Add(72*time.Hour), models.AllComponents)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.IsEmpty() || cost != 0 {
		t.Fatalf("expected empty window, got %v (%v)", w, cost)
	}
}

func TestPlanWindow_EmptyProfile(t *testing.T) {
	_, _, err := PlanWindow(dayPrices(), models.LoadProfile{}, StrategyLowest, base, base.Add(time.Hour), models.AllComponents)
	if !errors.Is(err, ErrEmptyProfile) || !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected empty profile error, got %v", err)
	}
}
