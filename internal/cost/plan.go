package cost

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"navigader/internal/timeseries"
)

// RatePlan is a named collection of tariffs ordered by effective date. The
// tariff in force at a given time is the latest one effective on or before
// that time.
type RatePlan struct {
	Name  string
	rates []*RateData
}

// NewRatePlan builds a plan from one or more tariff revisions.
func NewRatePlan(name string, rates []*RateData) (*RatePlan, error) {
	if len(rates) == 0 {
		return nil, errors.New("rate plan requires at least one tariff")
	}
	sorted := make([]*RateData, len(rates))
	copy(sorted, rates)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EffectiveDate.Millis < sorted[j].EffectiveDate.Millis
	})
	return &RatePlan{Name: name, rates: sorted}, nil
}

// Rates returns the plan's tariffs in effective-date order.
func (p *RatePlan) Rates() []*RateData { return p.rates }

// LatestRateData returns the tariff in force at start.
func (p *RatePlan) LatestRateData(start time.Time) (*RateData, error) {
	var latest *RateData
	for _, rd := range p.rates {
		if !rd.EffectiveDate.Time().After(start) {
			latest = rd
		}
	}
	if latest == nil {
		return nil, errors.Errorf("no tariff effective on or before %s",
			start.Format("2006-01-02"))
	}
	return latest, nil
}

// DateRange is a half-open billing period [Start, EndLimit).
type DateRange struct {
	Start    time.Time
	EndLimit time.Time
}

// DateRanges returns one calendar-month billing period per distinct month
// in the frame.
func DateRanges(frame *timeseries.IntervalFrame) []DateRange {
	var ranges []DateRange
	for _, my := range frame.MonthYears() {
		start := time.Date(my.Year, my.Month, 1, 0, 0, 0, 0, time.UTC)
		ranges = append(ranges, DateRange{
			Start:    start,
			EndLimit: start.AddDate(0, 1, 0),
		})
	}
	return ranges
}

// GenerateBill computes the bill for a single billing period.
func (p *RatePlan) GenerateBill(frame *timeseries.IntervalFrame, r DateRange) (*Bill, error) {
	rd, err := p.LatestRateData(r.Start)
	if err != nil {
		return nil, err
	}
	return ComputeBill(frame.FilterByRange(r.Start, r.EndLimit), rd)
}

// GenerateBills computes one bill per period concurrently, keyed by period
// start.
func (p *RatePlan) GenerateBills(
	ctx context.Context,
	frame *timeseries.IntervalFrame,
	ranges []DateRange,
) (map[time.Time]*Bill, error) {
	var mu sync.Mutex
	bills := make(map[time.Time]*Bill, len(ranges))

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range ranges {
		r := r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bill, err := p.GenerateBill(frame, r)
			if err != nil {
				return errors.Wrapf(err, "billing period %s",
					r.Start.Format("2006-01"))
			}
			mu.Lock()
			bills[r.Start] = bill
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bills, nil
}
