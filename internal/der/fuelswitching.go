package der

import (
	"time"

	"github.com/pkg/errors"

	"navigader/internal/timeseries"
)

// Gas-to-electric conversion constants. Heat-pump output replaces gas heat
// at the coefficient of performance, so the electric energy required is
// therms * kWh-per-therm / COP.
const (
	KWHPerTherm = 29.3
	HeatPumpCOP = 3
)

// FuelSwitching selects which gas end uses are electrified.
type FuelSwitching struct {
	SpaceHeating bool
	WaterHeating bool
}

// Validate requires at least one end use.
func (f FuelSwitching) Validate() error {
	if !f.SpaceHeating && !f.WaterHeating {
		return errors.New("fuel switching must electrify space heating, water heating, or both")
	}
	return nil
}

// GasDay is one day of customer gas usage in therms.
type GasDay struct {
	Date   time.Time
	Therms float64
}

// GasHour is one hour of a typical-year gas shape, split by end use. The
// year of Start is arbitrary; only month, day, and hour are used.
type GasHour struct {
	Start        time.Time
	Total        float64
	SpaceHeating float64
	WaterHeating float64
}

// FuelSwitchingStrategy distributes daily gas totals across the hours of a
// typical meteorological year shape.
type FuelSwitchingStrategy struct {
	Profile []GasHour
}

type monthDay struct {
	Month time.Month
	Day   int
}

type dayShape struct {
	hours        []GasHour
	spaceTotal   float64
	waterTotal   float64
	percentSpace float64
	percentWater float64
}

// shapes indexes the typical-year profile by calendar day and precomputes
// the space/water split. Days with no heating gas split 0/0.
func (s FuelSwitchingStrategy) shapes() map[monthDay]*dayShape {
	out := map[monthDay]*dayShape{}
	for _, h := range s.Profile {
		key := monthDay{Month: h.Start.Month(), Day: h.Start.Day()}
		shape, ok := out[key]
		if !ok {
			shape = &dayShape{}
			out[key] = shape
		}
		shape.hours = append(shape.hours, h)
		shape.spaceTotal += h.SpaceHeating
		shape.waterTotal += h.WaterHeating
	}
	for _, shape := range out {
		total := shape.spaceTotal + shape.waterTotal
		if total > 0 {
			shape.percentSpace = shape.spaceTotal / total
			shape.percentWater = shape.waterTotal / total
		}
	}
	return out
}

// FuelSwitchingSimulator converts a customer's gas heating load into
// additional electric load served by heat pumps.
type FuelSwitchingSimulator struct {
	Config   FuelSwitching
	Strategy FuelSwitchingStrategy
	Gas      []GasDay
}

func (s FuelSwitchingSimulator) Name() string { return "fuel_switching" }

// Simulate shapes each gas day onto the typical-year hourly curves,
// converts the electrified share to heat-pump kWh, and adds it to the load.
func (s FuelSwitchingSimulator) Simulate(pre *timeseries.IntervalFrame) (*Product, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	if len(s.Strategy.Profile) == 0 {
		return nil, errors.New("fuel switching strategy has no gas profile")
	}
	if pre.Len() == 0 {
		return nil, errors.New("load profile is empty")
	}

	shapes := s.Strategy.shapes()

	var readings []timeseries.Reading
	for _, day := range s.Gas {
		shape, ok := shapes[monthDay{Month: day.Date.Month(), Day: day.Date.Day()}]
		if !ok {
			return nil, errors.Errorf("gas profile missing day %s", day.Date.Format("01/02"))
		}

		spaceTherms := day.Therms * shape.percentSpace
		waterTherms := day.Therms * shape.percentWater

		for _, h := range shape.hours {
			// hourly fraction of the day's gas per end use
			var therms float64
			if s.Config.SpaceHeating && shape.spaceTotal > 0 {
				therms += spaceTherms * h.SpaceHeating / shape.spaceTotal
			}
			if s.Config.WaterHeating && shape.waterTotal > 0 {
				therms += waterTherms * h.WaterHeating / shape.waterTotal
			}

			start := time.Date(
				day.Date.Year(), day.Date.Month(), day.Date.Day(),
				h.Start.Hour(), 0, 0, 0, day.Date.Location(),
			)
			readings = append(readings, timeseries.Reading{
				Start: start,
				KW:    therms * KWHPerTherm / HeatPumpCOP,
			})
		}
	}

	derFrame, err := timeseries.New(readings)
	if err != nil {
		return nil, errors.Wrap(err, "building fuel switching frame")
	}
	post, err := pre.Add(derFrame)
	if err != nil {
		return nil, errors.Wrap(err, "combining fuel switching frame with load")
	}
	return &Product{Pre: pre, DER: derFrame, Post: post}, nil
}
