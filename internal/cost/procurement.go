package cost

import (
	"time"

	"github.com/pkg/errors"

	"navigader/internal/der"
	"navigader/internal/timeseries"
)

// RateInterval is one interval's procurement price in $/kWh.
type RateInterval struct {
	Start         time.Time
	DollarsPerKWH float64
}

// ProcurementRate stores procurement prices (e.g. CAISO rates) on an
// interval-by-interval basis. Prices can change on a regular interval
// (5-minute, 15-minute, 60-minute).
type ProcurementRate struct {
	frame *timeseries.IntervalFrame
}

// NewProcurementRate builds a rate series from per-interval prices.
func NewProcurementRate(intervals []RateInterval) (*ProcurementRate, error) {
	readings := make([]timeseries.Reading, len(intervals))
	for i, iv := range intervals {
		readings[i] = timeseries.Reading{Start: iv.Start, KW: iv.DollarsPerKWH}
	}
	frame, err := timeseries.New(readings)
	if err != nil {
		return nil, errors.Wrap(err, "procurement rate series")
	}
	return &ProcurementRate{frame: frame}, nil
}

// Period returns the interval length of the rate series.
func (p *ProcurementRate) Period() time.Duration { return p.frame.Period() }

// CostInterval is one interval's procured energy and its cost.
type CostInterval struct {
	Start   time.Time
	KWH     float64
	Dollars float64
}

// ProcurementCost holds interval-by-interval procurement costs.
type ProcurementCost struct {
	Intervals []CostInterval
}

// Total returns total procurement cost in dollars.
func (c *ProcurementCost) Total() float64 {
	var total float64
	for _, iv := range c.Intervals {
		total += iv.Dollars
	}
	return total
}

// TotalKWH returns total procured energy.
func (c *ProcurementCost) TotalKWH() float64 {
	var total float64
	for _, iv := range c.Intervals {
		total += iv.KWH
	}
	return total
}

// Cost prices a load profile against the rate series. The load is resampled
// to the rate period and joined on matching timestamps.
func (p *ProcurementRate) Cost(load *timeseries.IntervalFrame) (*ProcurementCost, error) {
	if p.frame.Len() == 0 || load.Len() == 0 {
		return &ProcurementCost{}, nil
	}
	// A single-interval rate series has no detectable period; join the load
	// on its own intervals.
	resampled := load
	if period := p.frame.Period(); period > 0 {
		var err error
		resampled, err = load.Resample(period)
		if err != nil {
			return nil, errors.Wrap(err, "resampling load to rate period")
		}
	}

	prices := make(map[time.Time]float64, p.frame.Len())
	for _, r := range p.frame.Readings() {
		prices[r.Start] = r.KW
	}

	cost := &ProcurementCost{}
	for _, e := range resampled.Energies() {
		price, ok := prices[e.Start]
		if !ok {
			continue
		}
		cost.Intervals = append(cost.Intervals, CostInterval{
			Start:   e.Start,
			KWH:     e.KWH,
			Dollars: e.KWH * price,
		})
	}
	return cost, nil
}

// ProcurementImpact compares procurement costs before and after a DER
// simulation.
type ProcurementImpact struct {
	Pre  *ProcurementCost
	Post *ProcurementCost
}

// ComputeProcurementImpact prices the aggregate's pre- and post-DER load
// against the rate series.
func ComputeProcurementImpact(agg *der.AggregateProduct, rate *ProcurementRate) (*ProcurementImpact, error) {
	preFrame, err := agg.PreFrame()
	if err != nil {
		return nil, err
	}
	postFrame, err := agg.PostFrame()
	if err != nil {
		return nil, err
	}
	pre, err := rate.Cost(preFrame)
	if err != nil {
		return nil, err
	}
	post, err := rate.Cost(postFrame)
	if err != nil {
		return nil, err
	}
	return &ProcurementImpact{Pre: pre, Post: post}, nil
}

// PreTotal returns total procurement cost pre-DER in dollars.
func (c *ProcurementImpact) PreTotal() float64 { return c.Pre.Total() }

// PostTotal returns total procurement cost post-DER in dollars.
func (c *ProcurementImpact) PostTotal() float64 { return c.Post.Total() }

// NetImpact is PostTotal minus PreTotal. Negative means procurement savings.
func (c *ProcurementImpact) NetImpact() float64 { return c.PostTotal() - c.PreTotal() }
