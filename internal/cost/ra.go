package cost

import (
	"github.com/pkg/errors"

	"navigader/internal/der"
	"navigader/internal/timeseries"
)

// RADollarsPerKW is the default resource adequacy procurement cost applied
// to each kW of monthly system peak.
const RADollarsPerKW = 6

// RAImpact compares system peaks before and after a DER simulation. The
// aggregate's net DER load shape is shifted onto the system profile's year
// and added to it, then monthly peaks are compared.
type RAImpact struct {
	DollarsPerKW float64

	pre  timeseries.Frame288
	post timeseries.Frame288
}

// ComputeRAImpact lays the aggregate's DER load changes over the system
// profile. The system profile must cover a single calendar year.
func ComputeRAImpact(agg *der.AggregateProduct, system *timeseries.IntervalFrame) (*RAImpact, error) {
	year, err := systemProfileYear(system)
	if err != nil {
		return nil, err
	}
	derFrame, err := agg.DERFrame()
	if err != nil {
		return nil, err
	}
	shifted, err := derFrame.WithYear(year)
	if err != nil {
		return nil, errors.Wrap(err, "aligning DER frame with system profile")
	}
	postSystem, err := system.Add(shifted)
	if err != nil {
		return nil, err
	}
	return &RAImpact{
		DollarsPerKW: RADollarsPerKW,
		pre:          system.MaximumFrame288(),
		post:         postSystem.MaximumFrame288(),
	}, nil
}

func systemProfileYear(system *timeseries.IntervalFrame) (int, error) {
	years := map[int]struct{}{}
	for _, r := range system.Readings() {
		years[r.Start.Year()] = struct{}{}
	}
	if len(years) != 1 {
		return 0, errors.Errorf("system profile must cover a single year, got %d", len(years))
	}
	for y := range years {
		return y, nil
	}
	return 0, errors.New("system profile is empty")
}

func sumPeaks(f timeseries.Frame288) float64 {
	var total float64
	for _, peak := range f.MonthlyPeaks() {
		total += peak
	}
	return total
}

// PreTotal returns the sum of monthly system peaks pre-DER (kW).
func (c *RAImpact) PreTotal() float64 { return sumPeaks(c.pre) }

// PostTotal returns the sum of monthly system peaks post-DER (kW).
func (c *RAImpact) PostTotal() float64 { return sumPeaks(c.post) }

// NetImpact is PostTotal minus PreTotal (kW). Negative means peak reductions.
func (c *RAImpact) NetImpact() float64 { return c.PostTotal() - c.PreTotal() }

// PreTotalCost returns pre-DER resource adequacy cost in dollars.
func (c *RAImpact) PreTotalCost() float64 { return c.PreTotal() * c.DollarsPerKW }

// PostTotalCost returns post-DER resource adequacy cost in dollars.
func (c *RAImpact) PostTotalCost() float64 { return c.PostTotal() * c.DollarsPerKW }

// NetImpactCost returns the resource adequacy cost impact in dollars.
func (c *RAImpact) NetImpactCost() float64 { return c.NetImpact() * c.DollarsPerKW }
