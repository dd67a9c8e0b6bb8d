package cost

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveDateTime(t *testing.T) {
	d := EffectiveDate{Millis: 1577836800000}
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), d.Time())
}

func TestRateTierMaxOrInf(t *testing.T) {
	assert.True(t, math.IsInf(RateTier{}.MaxOrInf(), 1))
	assert.Equal(t, 5.0, RateTier{Max: ptr(5)}.MaxOrInf())
}

func TestScheduleMatrixFrame288(t *testing.T) {
	// A missing schedule collapses to a single TOU period.
	assert.Equal(t, 0.0, ScheduleMatrix(nil).Frame288().Cells[3][12])

	m := seasonalSchedule(5)
	f := ScheduleMatrix(m).Frame288()
	assert.Equal(t, 1.0, f.Cells[5][0])
	assert.Equal(t, 0.0, f.Cells[4][0])

	// A malformed schedule is treated as missing.
	bad := ScheduleMatrix{{1, 2, 3}}
	assert.Equal(t, 0.0, bad.Frame288().Cells[0][0])
}

func TestFlatDemandSchedule(t *testing.T) {
	months := make([]float64, 12)
	months[2] = 1
	rd := &RateData{FlatDemandMonths: months}

	f := rd.FlatDemandSchedule()
	assert.Equal(t, 1.0, f.Cells[2][0])
	assert.Equal(t, 1.0, f.Cells[2][23])
	assert.Equal(t, 0.0, f.Cells[3][0])
}

func TestEnergyTOUName(t *testing.T) {
	rd := &RateData{EnergyKeyVals: []KeyVal{{Key: "Off-Peak"}, {Key: "On-Peak"}}}
	assert.Equal(t, "On-Peak", rd.EnergyTOUName(1))
	assert.Equal(t, "", rd.EnergyTOUName(2))
	assert.Equal(t, "", rd.EnergyTOUName(-1))
}

func TestFixedRatePeriod(t *testing.T) {
	rd := &RateData{FixedChargeUnits: "$/month"}

	period, err := rd.fixedRatePeriod("Service charge/day")
	require.NoError(t, err)
	assert.Equal(t, "day", period)

	period, err = rd.fixedRatePeriod("Customer charge")
	require.NoError(t, err)
	assert.Equal(t, "month", period)

	// No published unit defaults to daily accrual.
	period, err = (&RateData{}).fixedRatePeriod("Customer charge")
	require.NoError(t, err)
	assert.Equal(t, "day", period)

	_, err = (&RateData{FixedChargeUnits: "$/year"}).fixedRatePeriod("Customer charge")
	assert.Error(t, err)
}

func TestExtractRate(t *testing.T) {
	rate, err := extractRate("0.32854 $/day")
	require.NoError(t, err)
	assert.Equal(t, 0.32854, rate)

	rate, err = extractRate("10")
	require.NoError(t, err)
	assert.Equal(t, 10.0, rate)

	_, err = extractRate("no charge")
	assert.Error(t, err)
}

func TestReadRateData(t *testing.T) {
	doc := `{
		"rateName": "E-1",
		"utilityName": "Pacific Gas & Electric Co",
		"sector": "Residential",
		"effectiveDate": {"$date": 1577836800000},
		"fixedChargeFirstMeter": 10,
		"energyRateStrux": [
			{"energyRateTiers": [{"max": 7, "rate": 0.2, "unit": "kWh daily"}]}
		]
	}`

	rd, err := ReadRateData(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "E-1", rd.Name)
	assert.Equal(t, 2020, rd.EffectiveDate.Time().Year())
	assert.Equal(t, 10.0, rd.FixedChargeFirstMeter)
	require.Len(t, rd.EnergyRates, 1)
	require.Len(t, rd.EnergyRates[0].EnergyTiers, 1)
	assert.Equal(t, 7.0, rd.EnergyRates[0].EnergyTiers[0].MaxOrInf())

	_, err = ReadRateData(strings.NewReader("{"))
	assert.Error(t, err)
}
