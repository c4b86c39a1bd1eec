package planner

import (
	"math/rand/v2"
	"sync"
	"time"

	"alpha_innotec_planner/internal/models"
)

// Jitter moves planned windows by a random amount so that many planners
// fed the same prices do not switch their devices at the same second.
type Jitter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitter uses src for its draws; nil seeds a PCG from the clock.
func NewJitter(src rand.Source) *Jitter {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	return &Jitter{rng: rand.New(src)}
}

// Shift draws one offset in [-maxMinutes, maxMinutes) minutes.
func (j *Jitter) Shift(maxMinutes int) time.Duration {
	if maxMinutes <= 0 {
		return 0
	}
	j.mu.Lock()
	n := j.rng.IntN(2*maxMinutes) - maxMinutes
	j.mu.Unlock()
	return time.Duration(n) * time.Minute
}

// Apply moves every entry of window by the same drawn offset. A zero bound
// or an empty window is returned unchanged.
func (j *Jitter) Apply(window models.PriceWindow, maxMinutes int) models.PriceWindow {
	if maxMinutes <= 0 || window.IsEmpty() {
		return window
	}
	return window.Shift(j.Shift(maxMinutes))
}
