package cost

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"navigader/internal/der"
	"navigader/internal/timeseries"
)

// Calculation is a cost impact of a DER scenario. Implementations report a
// pre-DER total, a post-DER total, and their difference, in a unit native
// to the calculation (dollars, tCO2, kW).
type Calculation interface {
	PreTotal() float64
	PostTotal() float64
	NetImpact() float64
}

// BillImpact compares utility bills before and after a DER simulation
// across all meters of an aggregate product.
type BillImpact struct {
	Plan      *RatePlan
	PreBills  map[string]map[time.Time]*Bill
	PostBills map[string]map[time.Time]*Bill
}

// ComputeBillImpact generates monthly pre- and post-DER bills for every
// meter in the aggregate under the given rate plan.
func ComputeBillImpact(
	ctx context.Context,
	agg *der.AggregateProduct,
	plan *RatePlan,
) (*BillImpact, error) {
	pre, err := generateMeterBills(ctx, agg.PreFrames(), plan)
	if err != nil {
		return nil, errors.Wrap(err, "pre-DER bills")
	}
	post, err := generateMeterBills(ctx, agg.PostFrames(), plan)
	if err != nil {
		return nil, errors.Wrap(err, "post-DER bills")
	}
	return &BillImpact{Plan: plan, PreBills: pre, PostBills: post}, nil
}

func generateMeterBills(
	ctx context.Context,
	frames map[string]*timeseries.IntervalFrame,
	plan *RatePlan,
) (map[string]map[time.Time]*Bill, error) {
	out := make(map[string]map[time.Time]*Bill, len(frames))
	for meterID, frame := range frames {
		bills, err := plan.GenerateBills(ctx, frame, DateRanges(frame))
		if err != nil {
			return nil, errors.Wrapf(err, "meter %s", meterID)
		}
		out[meterID] = bills
	}
	return out, nil
}

// PreTotal sums all pre-DER bills in dollars.
func (c *BillImpact) PreTotal() float64 { return sumBills(c.PreBills) }

// PostTotal sums all post-DER bills in dollars.
func (c *BillImpact) PostTotal() float64 { return sumBills(c.PostBills) }

// NetImpact is PostTotal minus PreTotal. Negative means bill savings.
func (c *BillImpact) NetImpact() float64 { return c.PostTotal() - c.PreTotal() }

func sumBills(meterBills map[string]map[time.Time]*Bill) float64 {
	var total float64
	for _, bills := range meterBills {
		for _, bill := range bills {
			total += bill.Total()
		}
	}
	return total
}
