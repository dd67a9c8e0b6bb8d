// Package der models distributed energy resources and simulates their
// impact on a meter's load profile. Each resource type pairs a physical
// configuration (what the equipment can do) with a strategy (how it is
// operated, typically month-hour by month-hour).
package der

import (
	"sort"

	"github.com/pkg/errors"

	"navigader/internal/timeseries"
)

// Simulator applies a configured DER to a load profile. Implementations
// carry both the resource configuration and its operating strategy.
type Simulator interface {
	Name() string
	Simulate(pre *timeseries.IntervalFrame) (*Product, error)
}

// Product is the end result of applying a DER to a load profile.
//
// Sign convention follows the meter: the DER frame holds the net change in
// grid load, so Post = Pre + DER. A charging battery contributes positive
// kW, solar production negative kW.
type Product struct {
	Pre  *timeseries.IntervalFrame
	DER  *timeseries.IntervalFrame
	Post *timeseries.IntervalFrame
}

// PeakComparison summarizes before/after monthly peak load.
type PeakComparison struct {
	Month  int
	Before float64
	After  float64
	Net    float64
}

// ComparePeaks returns the monthly peak load before and after DER
// application for months with data.
func (p *Product) ComparePeaks() []PeakComparison {
	before := p.Pre.MaximumFrame288().MonthlyPeaks()
	after := p.Post.MaximumFrame288().MonthlyPeaks()
	counts := p.Pre.CountFrame288()

	var out []PeakComparison
	for m := 0; m < 12; m++ {
		hasData := false
		for h := 0; h < 24; h++ {
			if counts.Cells[m][h] > 0 {
				hasData = true
				break
			}
		}
		if !hasData {
			continue
		}
		out = append(out, PeakComparison{
			Month:  m + 1,
			Before: before[m],
			After:  after[m],
			Net:    after[m] - before[m],
		})
	}
	return out
}

// AggregateProduct collects the simulation products of many meters so costs
// can be computed per meter and across the whole population.
type AggregateProduct struct {
	products map[string]*Product
}

// NewAggregateProduct returns an empty aggregate.
func NewAggregateProduct() *AggregateProduct {
	return &AggregateProduct{products: map[string]*Product{}}
}

// Add registers a meter's simulation product under its identifier.
func (a *AggregateProduct) Add(meterID string, p *Product) {
	a.products[meterID] = p
}

// Len returns the number of registered meters.
func (a *AggregateProduct) Len() int { return len(a.products) }

// MeterIDs returns the registered meter identifiers in sorted order.
func (a *AggregateProduct) MeterIDs() []string {
	ids := make([]string, 0, len(a.products))
	for id := range a.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Product returns the simulation product for one meter.
func (a *AggregateProduct) Product(meterID string) (*Product, bool) {
	p, ok := a.products[meterID]
	return p, ok
}

// PreFrames returns the pre-DER frame per meter.
func (a *AggregateProduct) PreFrames() map[string]*timeseries.IntervalFrame {
	out := make(map[string]*timeseries.IntervalFrame, len(a.products))
	for id, p := range a.products {
		out[id] = p.Pre
	}
	return out
}

// PostFrames returns the post-DER frame per meter.
func (a *AggregateProduct) PostFrames() map[string]*timeseries.IntervalFrame {
	out := make(map[string]*timeseries.IntervalFrame, len(a.products))
	for id, p := range a.products {
		out[id] = p.Post
	}
	return out
}

// PreFrame sums the pre-DER load of all meters into one frame.
func (a *AggregateProduct) PreFrame() (*timeseries.IntervalFrame, error) {
	return a.sum(func(p *Product) *timeseries.IntervalFrame { return p.Pre })
}

// PostFrame sums the post-DER load of all meters into one frame.
func (a *AggregateProduct) PostFrame() (*timeseries.IntervalFrame, error) {
	return a.sum(func(p *Product) *timeseries.IntervalFrame { return p.Post })
}

// DERFrame sums the net DER operation of all meters into one frame.
func (a *AggregateProduct) DERFrame() (*timeseries.IntervalFrame, error) {
	return a.sum(func(p *Product) *timeseries.IntervalFrame { return p.DER })
}

func (a *AggregateProduct) sum(pick func(*Product) *timeseries.IntervalFrame) (*timeseries.IntervalFrame, error) {
	if len(a.products) == 0 {
		return nil, errors.New("aggregate product has no simulations")
	}
	total := timeseries.Empty()
	for _, id := range a.MeterIDs() {
		frame, err := total.Add(pick(a.products[id]))
		if err != nil {
			return nil, errors.Wrapf(err, "aggregating meter %s", id)
		}
		total = frame
	}
	return total, nil
}
