package planner

import (
	"time"

	"alpha_innotec_planner/internal/models"
)

var base = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

// hourly builds consecutive one-hour spot prices from start with the given
// market prices and a flat energy tax.
func hourly(start time.Time, market []float64, energyTax float64) []models.SpotPrice {
	out := make([]models.SpotPrice, len(market))
	for i, m := range market {
		from := start.Add(time.Duration(i) * time.Hour)
		out[i] = models.SpotPrice{
			Source:         "test",
			From:           from,
			Till:           from.Add(time.Hour),
			MarketPrice:    m,
			EnergyTaxPrice: energyTax,
		}
	}
	return out
}

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func profile(d time.Duration, watt float64) models.LoadProfile {
	return models.LoadProfile{Sections: []models.LoadProfileSection{
		{DurationSeconds: int64(d / time.Second), PowerDrawWatt: watt},
	}}
}
