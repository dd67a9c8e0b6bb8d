package der

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"navigader/internal/timeseries"
)

// Battery models the physical characteristics of a stationary battery.
//
// A fully discharged battery can fully charge at RatingKW for
// DischargeDuration / Efficiency; a fully charged battery can fully
// discharge at RatingKW for DischargeDuration. Losses are taken on the
// charge cycle.
type Battery struct {
	RatingKW          float64
	DischargeDuration time.Duration
	Efficiency        float64
}

// Validate checks the physical parameters.
func (b Battery) Validate() error {
	if b.RatingKW < 0 {
		return errors.New("battery rating must be 0 or greater")
	}
	if b.DischargeDuration < 0 {
		return errors.New("battery discharge duration must be 0 or greater")
	}
	if b.Efficiency <= 0 || b.Efficiency > 1 {
		return errors.New("battery efficiency must be in (0, 1]")
	}
	return nil
}

// CapacityKWH is the maximum energy available for discharge.
func (b Battery) CapacityKWH() float64 {
	return b.RatingKW * b.DischargeDuration.Hours()
}

// targetPower returns the power level (kW) to move from currentCharge to
// targetCharge within duration, constrained by the rating and capacity.
// Positive values charge, negative values discharge.
func (b Battery) targetPower(duration time.Duration, currentCharge, targetCharge float64) float64 {
	hours := duration.Hours()
	if targetCharge >= currentCharge {
		maxCharge := math.Min(targetCharge, b.CapacityKWH())
		power := (maxCharge - currentCharge) / (hours * b.Efficiency)
		return math.Min(power, b.RatingKW)
	}
	minCharge := math.Max(targetCharge, 0)
	power := (minCharge - currentCharge) / hours
	return math.Max(power, -b.RatingKW)
}

// nextCharge returns the charge level after running at power for duration.
// The efficiency factor is applied while charging only.
func (b Battery) nextCharge(power float64, duration time.Duration, currentCharge float64) float64 {
	hours := duration.Hours()
	if power >= 0 {
		return currentCharge + power*hours*b.Efficiency
	}
	return currentCharge + power*hours
}

// BatteryStrategy pairs a charge schedule and a discharge schedule. Each
// cell is a load threshold in kW: when the meter reads below the charge
// threshold the battery charges up toward it, and when the meter reads
// above the discharge threshold the battery discharges down toward it.
type BatteryStrategy struct {
	ChargeSchedule    timeseries.Frame288
	DischargeSchedule timeseries.Frame288
}

// TargetPower returns the requested battery power for a meter reading.
// Values are floored to whole kW, which keeps repeated operations on the
// same thresholds identical.
func (s BatteryStrategy) TargetPower(at time.Time, meterKW float64) float64 {
	chargeThreshold := s.ChargeSchedule.At(at.Month(), at.Hour())
	dischargeThreshold := s.DischargeSchedule.At(at.Month(), at.Hour())

	switch {
	case meterKW < chargeThreshold:
		return math.Floor(chargeThreshold - meterKW)
	case meterKW > dischargeThreshold:
		return math.Floor(dischargeThreshold - meterKW)
	default:
		return 0
	}
}

// BatteryOperation is the state of the battery after one interval.
type BatteryOperation struct {
	Start    time.Time
	KW       float64
	Charge   float64
	Capacity float64
}

// BatterySimulator runs a battery against a load profile.
type BatterySimulator struct {
	Battery  Battery
	Strategy BatteryStrategy
}

func (s BatterySimulator) Name() string { return "battery" }

// Simulate generates the full charge/discharge sequence. The battery starts
// empty; gaps in the load profile are filled with idle operations.
func (s BatterySimulator) Simulate(pre *timeseries.IntervalFrame) (*Product, error) {
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
		return nil, errors.Wrap(err, "building battery frame")
	}
	post, err := pre.Add(derFrame)
	if err != nil {
		return nil, errors.Wrap(err, "combining battery frame with load")
	}

	return &Product{Pre: pre, DER: derFrame, Post: post}, nil
}

// Operations returns the per-interval battery state for a load profile.
func (s BatterySimulator) Operations(pre *timeseries.IntervalFrame) ([]BatteryOperation, error) {
	if err := s.Battery.Validate(); err != nil {
		return nil, err
	}
	if pre.Len() == 0 {
		return nil, errors.New("load profile is empty")
	}

	period := pre.Period()
	capacity := s.Battery.CapacityKWH()
	charge := 0.0

	ops := make([]BatteryOperation, 0, pre.Len())
	next := pre.Start()
	for _, r := range pre.Readings() {
		// fill load gaps with idle operations
		for next.Before(r.Start) {
			ops = append(ops, BatteryOperation{Start: next, KW: 0, Charge: charge, Capacity: capacity})
			next = next.Add(period)
		}

		requested := s.Strategy.TargetPower(r.Start, r.KW)
		var power float64
		if requested >= 0 {
			power = math.Min(requested, s.Battery.targetPower(period, charge, capacity))
		} else {
			power = math.Max(requested, s.Battery.targetPower(period, charge, 0))
		}
		charge = s.Battery.nextCharge(power, period, charge)

		ops = append(ops, BatteryOperation{Start: r.Start, KW: power, Charge: charge, Capacity: capacity})
		next = r.Start.Add(period)
	}
	return ops, nil
}

// EnergyLossKWH is the energy lost to charge/discharge cycles: the net
// energy drawn from the grid minus what remains stored.
func EnergyLossKWH(ops []BatteryOperation, period time.Duration) float64 {
	if len(ops) == 0 {
		return 0
	}
	hours := period.Hours()
	net := 0.0
	for _, op := range ops {
		net += op.KW * hours
	}
	return net - ops[len(ops)-1].Charge
}
