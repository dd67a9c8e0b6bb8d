package cost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navigader/internal/timeseries"
)

func hourlyFrame(t *testing.T, start time.Time, kws ...float64) *timeseries.IntervalFrame {
	t.Helper()
	readings := make([]timeseries.Reading, len(kws))
	for i, kw := range kws {
		readings[i] = timeseries.Reading{Start: start.Add(time.Duration(i) * time.Hour), KW: kw}
	}
	frame, err := timeseries.New(readings)
	require.NoError(t, err)
	return frame
}

// constantDays builds a frame of hourly readings at a constant kW for each
// of the given dates.
func constantDays(t *testing.T, kw float64, dates ...time.Time) *timeseries.IntervalFrame {
	t.Helper()
	var readings []timeseries.Reading
	for _, d := range dates {
		for h := 0; h < 24; h++ {
			readings = append(readings, timeseries.Reading{
				Start: d.Add(time.Duration(h) * time.Hour),
				KW:    kw,
			})
		}
	}
	frame, err := timeseries.New(readings)
	require.NoError(t, err)
	return frame
}

func ptr(f float64) *float64 { return &f }

func jan(day, hour int) time.Time {
	return time.Date(2020, time.January, day, hour, 0, 0, 0, time.UTC)
}

func TestComputeBillRequiresRate(t *testing.T) {
	frame := hourlyFrame(t, jan(1, 0), 1, 1)
	_, err := ComputeBill(frame, nil)
	assert.Error(t, err)
}

func TestComputeBillFixedMeterCharge(t *testing.T) {
	frame := hourlyFrame(t, jan(1, 0), 1, 1, 1)
	rd := &RateData{FixedChargeFirstMeter: 10}

	bill, err := ComputeBill(frame, rd)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)

	item := bill.Items[0]
	assert.Equal(t, CategoryFixed, item.Category)
	assert.Equal(t, 1.0, item.Count)
	assert.Equal(t, 10.0, item.Total)
	assert.Equal(t, 10.0, bill.Total())
}

func TestComputeBillFixedKeyVals(t *testing.T) {
	// Two full days of readings.
	frame := constantDays(t, 1, jan(1, 0), jan(2, 0))
	rd := &RateData{
		FixedChargeUnits: "$/month",
		FixedKeyVals: []KeyVal{
			{Key: "Service charge/day", Val: "0.5 $/day"},
			{Key: "Customer charge", Val: "3 $/month"},
		},
	}

	bill, err := ComputeBill(frame, rd)
	require.NoError(t, err)
	require.Len(t, bill.Items, 2)

	daily := bill.Items[0]
	assert.Equal(t, "Service charge/day", daily.Description)
	assert.Equal(t, 2.0, daily.Count)
	assert.Equal(t, "day", daily.CountUnit)
	assert.Equal(t, 1.0, daily.Total)

	monthly := bill.Items[1]
	assert.Equal(t, 1.0, monthly.Count)
	assert.Equal(t, "month", monthly.CountUnit)
	assert.Equal(t, 3.0, monthly.Total)
}

func TestComputeBillRejectsUnknownFixedPeriod(t *testing.T) {
	frame := hourlyFrame(t, jan(1, 0), 1, 1)
	rd := &RateData{
		FixedChargeUnits: "$/year",
		FixedKeyVals:     []KeyVal{{Key: "Customer charge", Val: "3"}},
	}
	_, err := ComputeBill(frame, rd)
	assert.Error(t, err)
}

func TestComputeBillTieredEnergyCharges(t *testing.T) {
	// One day at 1 kW: 24 kWh. First tier caps at 10 kWh/day.
	frame := constantDays(t, 1, jan(1, 0))
	rd := &RateData{
		EnergyRates: []RateComponent{{EnergyTiers: []RateTier{
			{Max: ptr(10), Rate: 0.1},
			{Rate: 0.2},
		}}},
	}

	bill, err := ComputeBill(frame, rd)
	require.NoError(t, err)
	require.Len(t, bill.Items, 2)

	first := bill.Items[0]
	assert.Equal(t, CategoryEnergy, first.Category)
	assert.Contains(t, first.Description, "10 max kWh/day")
	assert.InDelta(t, 10.0, first.Count, 1e-9)
	assert.InDelta(t, 1.0, first.Total, 1e-9)

	second := bill.Items[1]
	assert.InDelta(t, 14.0, second.Count, 1e-9)
	assert.InDelta(t, 2.8, second.Total, 1e-9)
	assert.InDelta(t, 3.8, bill.Total(), 1e-9)
}

func TestComputeBillNetExportBillsInFirstTier(t *testing.T) {
	frame := constantDays(t, -1, jan(1, 0))
	rd := &RateData{
		EnergyRates: []RateComponent{{EnergyTiers: []RateTier{
			{Max: ptr(10), Rate: 0.1},
			{Rate: 0.2},
		}}},
	}

	bill, err := ComputeBill(frame, rd)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.InDelta(t, -24.0, bill.Items[0].Count, 1e-9)
	assert.InDelta(t, -2.4, bill.Total(), 1e-9)
}

func TestComputeBillEnergyTOUName(t *testing.T) {
	frame := constantDays(t, 1, jan(1, 0))
	rd := &RateData{
		EnergyKeyVals: []KeyVal{{Key: "TOU-winter:Off-Peak"}},
		EnergyRates:   []RateComponent{{EnergyTiers: []RateTier{{Rate: 0.1}}}},
	}

	bill, err := ComputeBill(frame, rd)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.Contains(t, bill.Items[0].Description, "TOU-winter:Off-Peak")
}

func TestComputeBillDemandCharge(t *testing.T) {
	frame := hourlyFrame(t, jan(1, 0), 2, 8, 4)
	rd := &RateData{
		DemandRates: []RateComponent{{DemandTiers: []RateTier{{Rate: 5}}}},
	}

	bill, err := ComputeBill(frame, rd)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)

	item := bill.Items[0]
	assert.Equal(t, CategoryDemand, item.Category)
	assert.Equal(t, 8.0, item.Count)
	assert.Equal(t, 1.0, item.ProRata)
	assert.Equal(t, 40.0, bill.Total())
}

// seasonalSchedule marks every hour of the given zero-based month with key 1.
func seasonalSchedule(month int) ScheduleMatrix {
	m := make(ScheduleMatrix, 12)
	for i := range m {
		m[i] = make([]float64, 24)
		if i == month {
			for h := 0; h < 24; h++ {
				m[i][h] = 1
			}
		}
	}
	return m
}

func TestComputeBillDemandChargeProRata(t *testing.T) {
	june1 := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	july1 := time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)

	// Two weekdays in June at 10 kW, two in July at 20 kW.
	juneFrame := constantDays(t, 10, june1, june1.AddDate(0, 0, 1))
	julyFrame := constantDays(t, 20, july1, july1.AddDate(0, 0, 1))
	frame, err := juneFrame.Add(julyFrame)
	require.NoError(t, err)

	rd := &RateData{
		DemandRates: []RateComponent{
			{},
			{DemandTiers: []RateTier{{Rate: 5}}},
		},
		DemandWeekdaySched: seasonalSchedule(5),
	}

	bill, err := ComputeBill(frame, rd)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)

	item := bill.Items[0]
	assert.Equal(t, 1, item.TOUPeriod)
	assert.Equal(t, 10.0, item.Count)
	assert.Equal(t, 0.5, item.ProRata)
	assert.Contains(t, item.Description, "2/4 pro rata")
	assert.InDelta(t, 25.0, item.Total, 1e-9)
}

func TestComputeBillFlatDemandCharge(t *testing.T) {
	june1 := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	july1 := time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)

	juneFrame := constantDays(t, 10, june1)
	julyFrame := constantDays(t, 20, july1)
	frame, err := juneFrame.Add(julyFrame)
	require.NoError(t, err)

	months := make([]float64, 12)
	months[5] = 1
	rd := &RateData{
		FlatDemandRates: []RateComponent{
			{},
			{FlatTiers: []RateTier{{Rate: 3}}},
		},
		FlatDemandMonths: months,
	}

	bill, err := ComputeBill(frame, rd)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)

	item := bill.Items[0]
	assert.Equal(t, 10.0, item.Count)
	assert.Equal(t, 0.5, item.ProRata)
	assert.Contains(t, item.Description, "1/2 pro rata")
	assert.InDelta(t, 15.0, item.Total, 1e-9)
}
