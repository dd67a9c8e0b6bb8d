package der

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"navigader/internal/timeseries"
)

// EVSE models a fleet of electric vehicles and the service equipment that
// charges them.
//
// Vehicle properties: driving efficiency in miles/kWh. Charger properties:
// rating in kW per charger and a utilization factor applied to the fleet's
// daily energy budget.
type EVSE struct {
	EVEfficiency float64 // miles per kWh
	RatingKW     float64 // per charger
	EVCount      int
	EVSECount    int
	Utilization  float64
}

// Validate checks the fleet parameters.
func (e EVSE) Validate() error {
	if e.EVEfficiency <= 0 {
		return errors.New("ev efficiency must be greater than zero")
	}
	if e.RatingKW <= 0 {
		return errors.New("evse rating must be greater than zero")
	}
	if e.EVCount <= 0 {
		return errors.New("ev count must be greater than zero")
	}
	if e.EVSECount <= 0 {
		return errors.New("evse count must be greater than zero")
	}
	if e.Utilization <= 0 || e.Utilization > 1 {
		return errors.New("evse utilization must be in (0, 1]")
	}
	return nil
}

// TotalRatingKW is the combined rating of all chargers.
func (e EVSE) TotalRatingKW() float64 {
	return e.RatingKW * float64(e.EVSECount)
}

// targetPower returns the charging power needed to fill the fleet battery
// within duration, capped at the combined charger rating.
func (e EVSE) targetPower(duration time.Duration, currentCharge, totalCapacity float64) float64 {
	power := (totalCapacity - currentCharge) / duration.Hours()
	return math.Min(power, e.TotalRatingKW())
}

// NoCharging is the charge-schedule sentinel that forbids charging in a
// month-hour; any other value is a load threshold that allows it.
var NoCharging = math.Inf(-1)

// EVSEStrategy pairs a charge schedule and a drive schedule. Charge cells
// are load thresholds in kW (NoCharging forbids charging); drive cells are
// miles driven per EV in that month-hour.
type EVSEStrategy struct {
	ChargeSchedule timeseries.Frame288
	DriveSchedule  timeseries.Frame288
}

// Validate rejects strategies that instruct driving and charging within the
// same month-hour.
func (s EVSEStrategy) Validate() error {
	for m := 0; m < 12; m++ {
		for h := 0; h < 24; h++ {
			canCharge := s.ChargeSchedule.Cells[m][h] != NoCharging
			drives := s.DriveSchedule.Cells[m][h] != 0
			if canCharge && drives {
				return errors.Errorf(
					"strategy cannot drive and charge within the same month-hour (month %d hour %d)", m+1, h)
			}
		}
	}
	return nil
}

// RoundTripDistance is the median across months of the total daily miles in
// the drive schedule.
func (s EVSEStrategy) RoundTripDistance() float64 {
	var totals []float64
	for m := 0; m < 12; m++ {
		total := 0.0
		for h := 0; h < 24; h++ {
			total += s.DriveSchedule.Cells[m][h]
		}
		totals = append(totals, total)
	}
	sort.Float64s(totals)
	mid := len(totals) / 2
	if len(totals)%2 == 0 {
		return (totals[mid-1] + totals[mid]) / 2
	}
	return totals[mid]
}

// targetPower returns the strategy's charging allowance: charge up to the
// threshold when the meter reads below it, floored to whole kW.
func (s EVSEStrategy) targetPower(month time.Month, hour int, meterKW float64) float64 {
	threshold := s.ChargeSchedule.At(month, hour)
	if meterKW < threshold {
		return math.Floor(threshold - meterKW)
	}
	return 0
}

// EVSEOperation is the fleet state after one interval.
type EVSEOperation struct {
	Start    time.Time
	Distance float64 // miles driven by all EVs
	KW       float64 // grid power charging the fleet
	EVKW     float64 // battery power expended driving (negative)
	Charge   float64 // fleet charge after the interval
}

// EVSESimulator runs an EV fleet against a load profile.
type EVSESimulator struct {
	EVSE     EVSE
	Strategy EVSEStrategy
}

func (s EVSESimulator) Name() string { return "evse" }

// fleetCapacity is the energy required to drive the scheduled round-trip
// distance, adjusted by utilization. The chargers aim to replace what
// driving expends rather than fill a nameplate battery.
func (s EVSESimulator) fleetCapacity() float64 {
	return s.Strategy.RoundTripDistance() / s.EVSE.EVEfficiency *
		s.EVSE.Utilization * float64(s.EVSE.EVCount)
}

// Simulate generates the charge/drive sequence. Only charging load (KW)
// lands on the meter; driving drains the fleet battery off-grid.
func (s EVSESimulator) Simulate(pre *timeseries.IntervalFrame) (*Product, error) {
	ops, err := s.Operations(pre)
	if err != nil {
		return nil, err
	}

	readings := make([]timeseries.Reading, len(ops))
	for i, op := range ops {
		readings[i] = timeseries.Reading{Start: op.Start, KW: op.KW}
	}
	derFrame, err := timeseries.New(readings)
	if err != nil {
		return nil, errors.Wrap(err, "building evse frame")
	}
	post, err := pre.Add(derFrame)
	if err != nil {
		return nil, errors.Wrap(err, "combining evse frame with load")
	}
	return &Product{Pre: pre, DER: derFrame, Post: post}, nil
}

// Operations returns the per-interval fleet state for a load profile.
func (s EVSESimulator) Operations(pre *timeseries.IntervalFrame) ([]EVSEOperation, error) {
	if err := s.EVSE.Validate(); err != nil {
		return nil, err
	}
	if err := s.Strategy.Validate(); err != nil {
		return nil, err
	}
	if pre.Len() == 0 {
		return nil, errors.New("load profile is empty")
	}

	period := pre.Period()
	hours := period.Hours()
	capacity := s.fleetCapacity()
	charge := 0.0

	ops := make([]EVSEOperation, 0, pre.Len())
	for _, r := range pre.Readings() {
		month, hour := r.Start.Month(), r.Start.Hour()

		// miles driven by all EVs during the interval
		distance := s.Strategy.DriveSchedule.At(month, hour) * float64(s.EVSE.EVCount) * hours
		if distance < 0 {
			return nil, errors.New("distance to drive cannot be negative")
		}

		// charging power, limited by strategy, chargers, and capacity
		kw := math.Min(
			s.EVSE.targetPower(period, charge, capacity),
			s.Strategy.targetPower(month, hour, r.KW),
		)
		if kw < 0 || kw > s.EVSE.TotalRatingKW() {
			return nil, errors.Errorf(
				"charging power must be between 0 and the combined rating (%vkw)", s.EVSE.TotalRatingKW())
		}

		// battery power to drive, constrained by available charge
		batteryMaxKW := charge / hours
		driveKW := distance / (s.EVSE.EVEfficiency * hours)
		evKW := math.Max(-batteryMaxKW, -driveKW)

		charge += (kw + evKW) * hours
		if charge < 0 || charge > capacity {
			return nil, errors.New("charge cannot be negative or exceed capacity")
		}

		ops = append(ops, EVSEOperation{
			Start:    r.Start,
			Distance: distance,
			KW:       kw,
			EVKW:     evKW,
			Charge:   charge,
		})
	}
	return ops, nil
}
