package cost

import (
	"navigader/internal/der"
	"navigader/internal/timeseries"
)

// GHGImpact compares greenhouse gas emissions before and after a DER
// simulation. Rates is a Frame288 of tCO2 per kWh by month and hour,
// published for a target year (e.g. Clean Net Short 2030).
type GHGImpact struct {
	Rates timeseries.Frame288

	pre  timeseries.Frame288
	post timeseries.Frame288
}

// ComputeGHGImpact multiplies the aggregate's month-hour energy totals by
// the emission rates.
func ComputeGHGImpact(agg *der.AggregateProduct, rates timeseries.Frame288) (*GHGImpact, error) {
	preFrame, err := agg.PreFrame()
	if err != nil {
		return nil, err
	}
	postFrame, err := agg.PostFrame()
	if err != nil {
		return nil, err
	}
	return &GHGImpact{
		Rates: rates,
		pre:   preFrame.TotalFrame288().Mul(rates),
		post:  postFrame.TotalFrame288().Mul(rates),
	}, nil
}

// PreFrame288 returns month-hour emissions pre-DER (tCO2).
func (c *GHGImpact) PreFrame288() timeseries.Frame288 { return c.pre }

// PostFrame288 returns month-hour emissions post-DER (tCO2).
func (c *GHGImpact) PostFrame288() timeseries.Frame288 { return c.post }

// PreTotal returns total tCO2 pre-DER.
func (c *GHGImpact) PreTotal() float64 { return c.pre.Sum() }

// PostTotal returns total tCO2 post-DER.
func (c *GHGImpact) PostTotal() float64 { return c.post.Sum() }

// NetImpact is PostTotal minus PreTotal. Negative means emission reductions.
func (c *GHGImpact) NetImpact() float64 { return c.PostTotal() - c.PreTotal() }
