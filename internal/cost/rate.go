// Package cost computes customer bills and system-level cost impacts for
// pre- and post-DER load profiles. Tariff structures follow OpenEI's U.S.
// Utility Rate Database (USURDB) JSON layout.
//
// Homepage: https://openei.org/wiki/Utility_Rate_Database
package cost

import (
	"encoding/json"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"navigader/internal/timeseries"
)

// EffectiveDate wraps USURDB's extended-JSON date representation
// ({"$date": <ms-since-epoch>}).
type EffectiveDate struct {
	Millis int64 `json:"$date"`
}

// Time returns the effective date in UTC.
func (d EffectiveDate) Time() time.Time {
	return time.UnixMilli(d.Millis).UTC()
}

// KeyVal is a labeled rate entry, e.g. {"key": "Service charge/day",
// "val": "0.32854 $/day"}.
type KeyVal struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// RateTier is one tier of a tiered rate. Max is the tier ceiling (kWh per
// day for energy tiers, kW for demand tiers); nil means unbounded.
type RateTier struct {
	Max  *float64 `json:"max"`
	Rate float64  `json:"rate"`
	Unit string   `json:"unit"`
}

// MaxOrInf returns the tier ceiling, or +Inf when unbounded.
func (t RateTier) MaxOrInf() float64 {
	if t.Max == nil {
		return math.Inf(1)
	}
	return *t.Max
}

// RateComponent is one TOU period's collection of tiers. Only one of the
// tier lists is populated, depending on the component kind.
type RateComponent struct {
	EnergyTiers []RateTier `json:"energyRateTiers"`
	DemandTiers []RateTier `json:"demandRateTiers"`
	FlatTiers   []RateTier `json:"flatDemandTiers"`
}

// ScheduleMatrix is USURDB's 12-row by 24-column month-hour schedule of TOU
// period keys.
type ScheduleMatrix [][]float64

// Frame288 converts the schedule to a Frame288. A missing schedule yields
// an all-zero frame (a single TOU period covering everything).
func (m ScheduleMatrix) Frame288() timeseries.Frame288 {
	if len(m) == 0 {
		return timeseries.Frame288{}
	}
	f, err := timeseries.Frame288FromMatrix(m)
	if err != nil {
		return timeseries.Frame288{}
	}
	return f
}

// RateData holds the fixed, energy, and demand charges of a single tariff
// as published by OpenEI.
type RateData struct {
	Name                  string          `json:"rateName"`
	Utility               string          `json:"utilityName"`
	Sector                string          `json:"sector"`
	EffectiveDate         EffectiveDate   `json:"effectiveDate"`
	FixedChargeFirstMeter float64         `json:"fixedChargeFirstMeter"`
	FixedChargeUnits      string          `json:"fixedChargeUnits"`
	FixedKeyVals          []KeyVal        `json:"fixedKeyVals"`
	EnergyRates           []RateComponent `json:"energyRateStrux"`
	EnergyKeyVals         []KeyVal        `json:"energyKeyVals"`
	EnergyWeekdaySched    ScheduleMatrix  `json:"energyWeekdaySched"`
	EnergyWeekendSched    ScheduleMatrix  `json:"energyWeekendSched"`
	DemandRates           []RateComponent `json:"demandRateStrux"`
	DemandRateUnits       string          `json:"demandRateUnits"`
	DemandWeekdaySched    ScheduleMatrix  `json:"demandWeekdaySched"`
	DemandWeekendSched    ScheduleMatrix  `json:"demandWeekendSched"`
	FlatDemandRates       []RateComponent `json:"flatDemandStrux"`
	FlatDemandUnits       string          `json:"flatDemandUnits"`
	FlatDemandMonths      []float64       `json:"flatDemandMonths"`
}

// ReadRateData decodes a single USURDB JSON document.
func ReadRateData(r io.Reader) (*RateData, error) {
	var rd RateData
	if err := json.NewDecoder(r).Decode(&rd); err != nil {
		return nil, errors.Wrap(err, "decoding rate data")
	}
	return &rd, nil
}

// FlatDemandSchedule expands the per-month season keys into a Frame288
// where every hour of a month carries the month's key.
func (rd *RateData) FlatDemandSchedule() timeseries.Frame288 {
	var f timeseries.Frame288
	for m := 0; m < 12 && m < len(rd.FlatDemandMonths); m++ {
		for h := 0; h < 24; h++ {
			f.Cells[m][h] = rd.FlatDemandMonths[m]
		}
	}
	return f
}

// EnergyTOUName returns the TOU description for an energy period, if
// published (e.g. "TOU-winter:Off-Peak").
func (rd *RateData) EnergyTOUName(touKey int) string {
	if touKey < 0 || touKey >= len(rd.EnergyKeyVals) {
		return ""
	}
	return rd.EnergyKeyVals[touKey].Key
}

// fixedRatePeriod decides whether a fixed charge accrues per month or per
// day. Keys containing "/day" win over the tariff-wide unit.
func (rd *RateData) fixedRatePeriod(key string) (string, error) {
	if strings.Contains(key, "/day") {
		return "day", nil
	}
	unit := rd.FixedChargeUnits
	if unit == "" {
		return "day", nil
	}
	period := unit
	if i := strings.Index(unit, "/"); i >= 0 {
		period = unit[i+1:]
	}
	switch period {
	case "month", "day":
		return period, nil
	}
	return "", errors.Errorf("period %q not expected for fixed charge", period)
}

var decimalPattern = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// extractRate returns the first decimal found in a fixed-rate value string.
func extractRate(val string) (float64, error) {
	match := decimalPattern.FindString(val)
	if match == "" {
		return 0, errors.Errorf("no rate found in %q", val)
	}
	return strconv.ParseFloat(match, 64)
}
