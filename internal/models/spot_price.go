package models

import "time"

// PriceComponents selects which parts of a spot price are summed into a total.
type PriceComponents struct {
	Market         bool `json:"market" yaml:"market"`
	MarketTax      bool `json:"marketTax" yaml:"marketTax"`
	SourcingMarkup bool `json:"sourcingMarkup" yaml:"sourcingMarkup"`
	EnergyTax      bool `json:"energyTax" yaml:"energyTax"`
}

// AllComponents is the net price a household pays.
var AllComponents = PriceComponents{Market: true, MarketTax: true, SourcingMarkup: true, EnergyTax: true}

// MarketOnly is the bare wholesale price.
var MarketOnly = PriceComponents{Market: true}

// SpotPrice is the price of electricity for one interval, in currency per kWh.
type SpotPrice struct {
	ID                  string    `json:"id,omitempty" yaml:"id,omitempty"`
	Source              string    `json:"source,omitempty" yaml:"source,omitempty"`
	From                time.Time `json:"from" yaml:"from"`
	Till                time.Time `json:"till" yaml:"till"`
	MarketPrice         float64   `json:"marketPrice" yaml:"marketPrice"`
	MarketPriceTax      float64   `json:"marketPriceTax" yaml:"marketPriceTax"`
	SourcingMarkupPrice float64   `json:"sourcingMarkupPrice" yaml:"sourcingMarkupPrice"`
	EnergyTaxPrice      float64   `json:"energyTaxPrice" yaml:"energyTaxPrice"`
}

// TotalPrice sums the selected components.
func (p SpotPrice) TotalPrice(c PriceComponents) float64 {
	total := 0.0
	if c.Market {
		total += p.MarketPrice
	}
	if c.MarketTax {
		total += p.MarketPriceTax
	}
	if c.SourcingMarkup {
		total += p.SourcingMarkupPrice
	}
	if c.EnergyTax {
		total += p.EnergyTaxPrice
	}
	return total
}

// Duration of the priced interval.
func (p SpotPrice) Duration() time.Duration {
	return p.Till.Sub(p.From)
}

// PriceWindow is a chronologically ordered set of spot prices chosen as a
// block, either contiguous or with gaps.
type PriceWindow []SpotPrice

func (w PriceWindow) IsEmpty() bool {
	return len(w) == 0
}

// Start returns the From of the first entry, zero for an empty window.
func (w PriceWindow) Start() time.Time {
	if len(w) == 0 {
		return time.Time{}
	}
	return w[0].From
}

// End returns the Till of the last entry, zero for an empty window.
func (w PriceWindow) End() time.Time {
	if len(w) == 0 {
		return time.Time{}
	}
	return w[len(w)-1].Till
}

// TotalPrice sums the selected components over all entries.
func (w PriceWindow) TotalPrice(c PriceComponents) float64 {
	total := 0.0
	for _, p := range w {
		total += p.TotalPrice(c)
	}
	return total
}

// MarketPrice sums the bare market price over all entries.
func (w PriceWindow) MarketPrice() float64 {
	return w.TotalPrice(MarketOnly)
}

// Shift returns a copy with every From and Till moved by d.
func (w PriceWindow) Shift(d time.Duration) PriceWindow {
	if w == nil {
		return nil
	}
	out := make(PriceWindow, len(w))
	for i, p := range w {
		p.From = p.From.Add(d)
		p.Till = p.Till.Add(d)
		out[i] = p
	}
	return out
}
