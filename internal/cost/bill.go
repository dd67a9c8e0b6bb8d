package cost

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"navigader/internal/timeseries"
)

// Charge categories appearing on bill line items.
const (
	CategoryFixed  = "fixed"
	CategoryEnergy = "energy"
	CategoryDemand = "demand"
)

// LineItem is a single charge on a bill. Total = Count * Rate * ProRata.
type LineItem struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	TOUPeriod   int     `json:"touPeriod"`
	Count       float64 `json:"count"`
	CountUnit   string  `json:"countUnit"`
	Rate        float64 `json:"rate"`
	RateUnit    string  `json:"rateUnit"`
	ProRata     float64 `json:"proRata"`
	Total       float64 `json:"total"`
}

// Bill is a single billing period's charges computed from a load profile
// against one tariff.
type Bill struct {
	Start    time.Time  `json:"start"`
	EndLimit time.Time  `json:"endLimit"`
	Items    []LineItem `json:"items"`

	frame *timeseries.IntervalFrame
	rate  *RateData
}

// Total sums all line items.
func (b *Bill) Total() float64 {
	var total float64
	for _, item := range b.Items {
		total += item.Total
	}
	return total
}

// ComputeBill generates a bill for the given load profile under the given
// tariff. The frame should cover a single billing period; more than 35 days
// of readings produces erroneous bills.
func ComputeBill(frame *timeseries.IntervalFrame, rate *RateData) (*Bill, error) {
	if rate == nil {
		return nil, errors.New("rate data required")
	}
	if frame.Days() > 35 {
		log.WithField("days", frame.Days()).Warn(
			"bill covers more than a month of readings")
	}

	b := &Bill{
		Start:    frame.Start(),
		EndLimit: frame.EndLimit(),
		frame:    frame,
		rate:     rate,
	}
	b.computeFixedMeterCharges()
	if err := b.computeFixedRateCharges(); err != nil {
		return nil, err
	}
	b.computeEnergyRateCharges()
	b.computeDemandRateCharges()
	b.computeFlatDemandRateCharges()
	return b, nil
}

func (b *Bill) addCharge(item LineItem) {
	item.Total = item.Count * item.Rate * item.ProRata
	b.Items = append(b.Items, item)
}

func (b *Bill) computeFixedMeterCharges() {
	if b.rate.FixedChargeFirstMeter == 0 {
		return
	}
	b.addCharge(LineItem{
		Category:    CategoryFixed,
		Description: "Fixed Charge First Meter",
		Count:       1,
		CountUnit:   "month",
		Rate:        b.rate.FixedChargeFirstMeter,
		RateUnit:    "$/month",
		ProRata:     1,
	})
}

func (b *Bill) computeFixedRateCharges() error {
	for _, kv := range b.rate.FixedKeyVals {
		period, err := b.rate.fixedRatePeriod(kv.Key)
		if err != nil {
			return err
		}
		var count float64
		switch period {
		case "month":
			count = 1
		case "day":
			count = float64(b.frame.Days())
		}
		rate, err := extractRate(kv.Val)
		if err != nil {
			return errors.Wrapf(err, "fixed charge %q", kv.Key)
		}
		b.addCharge(LineItem{
			Category:    CategoryFixed,
			Description: kv.Key,
			Count:       count,
			CountUnit:   period,
			Rate:        rate,
			RateUnit:    "$/" + period,
			ProRata:     1,
		})
	}
	return nil
}

// energyCount returns the billing period's kWh falling in the TOU period.
func (b *Bill) energyCount(touKey int) float64 {
	key := float64(touKey)
	weekday := b.frame.FilterWeekday().TotalFrame288().
		Mul(b.rate.EnergyWeekdaySched.Frame288().Mask(key))
	weekend := b.frame.FilterWeekend().TotalFrame288().
		Mul(b.rate.EnergyWeekendSched.Frame288().Mask(key))
	return weekday.Add(weekend).Sum()
}

func (b *Bill) computeEnergyRateCharges() {
	for touKey, component := range b.rate.EnergyRates {
		energyCount := b.energyCount(touKey)
		billedSoFar := 0.0

		for _, tier := range component.EnergyTiers {
			if tier.Rate == 0 {
				log.Warn("energy rate missing, 0 $/kWh used instead")
			}
			maxKWHPerDay := tier.MaxOrInf()
			maxKWHPerBill := maxKWHPerDay * float64(b.frame.Days())

			var billingCount float64
			if energyCount <= 0 {
				if billedSoFar == 0 && energyCount < 0 {
					// net export bills entirely in the first tier
					billingCount = energyCount
				} else {
					break
				}
			} else if energyCount+billedSoFar >= maxKWHPerBill {
				billingCount = maxKWHPerBill - billedSoFar
			} else {
				billingCount = energyCount
			}

			description := "Energy Charge"
			if name := b.rate.EnergyTOUName(touKey); name != "" {
				description += " - " + name
			}
			if !math.IsInf(maxKWHPerDay, 1) {
				description += fmt.Sprintf(" (%g max kWh/day)", maxKWHPerDay)
			}

			b.addCharge(LineItem{
				Category:    CategoryEnergy,
				Description: description,
				TOUPeriod:   touKey,
				Count:       billingCount,
				CountUnit:   "kWh",
				Rate:        tier.Rate,
				RateUnit:    "$/kWh",
				ProRata:     1,
			})

			energyCount -= billingCount
			billedSoFar += billingCount
		}
	}
}

// demandPeak returns the billing period's peak kW falling in the TOU period.
func (b *Bill) demandPeak(touKey int) float64 {
	key := float64(touKey)
	weekdayMax := b.frame.FilterWeekday().MaximumFrame288().
		Mul(b.rate.DemandWeekdaySched.Frame288().Mask(key)).Max()
	weekendMax := b.frame.FilterWeekend().MaximumFrame288().
		Mul(b.rate.DemandWeekendSched.Frame288().Mask(key)).Max()
	return math.Max(weekdayMax, weekendMax)
}

// demandDays counts the billing days falling in months where the TOU period
// applies, for prorating demand charges.
func (b *Bill) demandDays(touKey int) int {
	key := float64(touKey)
	months := maskMonths(b.rate.DemandWeekdaySched.Frame288().Mask(key))
	for m := range maskMonths(b.rate.DemandWeekendSched.Frame288().Mask(key)) {
		months[m] = true
	}
	return b.frame.FilterMonths(monthSet(months)...).Days()
}

func (b *Bill) computeDemandRateCharges() {
	for touKey, component := range b.rate.DemandRates {
		for _, tier := range component.DemandTiers {
			peak := b.demandPeak(touKey)
			days := b.demandDays(touKey)
			if tier.Rate == 0 || peak == 0 || days == 0 {
				continue
			}
			b.addCharge(LineItem{
				Category:    CategoryDemand,
				Description: demandDescription("Demand Charge", days, b.frame.Days(), tier),
				TOUPeriod:   touKey,
				Count:       peak,
				CountUnit:   "kW",
				Rate:        tier.Rate,
				RateUnit:    "$/kW",
				ProRata:     float64(days) / float64(b.frame.Days()),
			})
		}
	}
}

func (b *Bill) computeFlatDemandRateCharges() {
	schedule := b.rate.FlatDemandSchedule()
	for touKey, component := range b.rate.FlatDemandRates {
		for _, tier := range component.FlatTiers {
			key := float64(touKey)
			peak := b.frame.MaximumFrame288().Mul(schedule.Mask(key)).Max()
			days := b.frame.FilterMonths(monthSet(maskMonths(schedule.Mask(key)))...).Days()
			if tier.Rate == 0 || peak == 0 || days == 0 {
				continue
			}
			b.addCharge(LineItem{
				Category:    CategoryDemand,
				Description: demandDescription("Flat Demand Charge", days, b.frame.Days(), tier),
				TOUPeriod:   touKey,
				Count:       peak,
				CountUnit:   "kW",
				Rate:        tier.Rate,
				RateUnit:    "$/kW",
				ProRata:     float64(days) / float64(b.frame.Days()),
			})
		}
	}
}

func demandDescription(base string, days, totalDays int, tier RateTier) string {
	description := base
	if days != totalDays {
		description += fmt.Sprintf(" (%d/%d pro rata)", days, totalDays)
	}
	if tier.Max != nil {
		description += fmt.Sprintf(" (%g max kW/tier)", *tier.Max)
	}
	return description
}

// maskMonths returns the months (1-12) where a mask frame has any set hour.
func maskMonths(mask timeseries.Frame288) map[time.Month]bool {
	months := make(map[time.Month]bool)
	for m := 0; m < 12; m++ {
		for h := 0; h < 24; h++ {
			if mask.Cells[m][h] == 1 {
				months[time.Month(m+1)] = true
				break
			}
		}
	}
	return months
}

func monthSet(months map[time.Month]bool) []time.Month {
	out := make([]time.Month, 0, len(months))
	for m := range months {
		out = append(out, m)
	}
	return out
}
