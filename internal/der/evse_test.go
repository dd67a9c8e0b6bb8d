package der

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navigader/internal/timeseries"
)

func fleet() EVSE {
	return EVSE{
		EVEfficiency: 4,
		RatingKW:     5,
		EVCount:      2,
		EVSECount:    2,
		Utilization:  1,
	}
}

// commuteStrategy drives 10 miles per EV at hour 8 and permits charging at
// every other hour.
func commuteStrategy() EVSEStrategy {
	charge := timeseries.UniformFrame288(1000)
	var drive timeseries.Frame288
	for m := 1; m <= 12; m++ {
		charge.Set(time.Month(m), 8, NoCharging)
		drive.Set(time.Month(m), 8, 10)
	}
	return EVSEStrategy{ChargeSchedule: charge, DriveSchedule: drive}
}

func TestEVSEValidate(t *testing.T) {
	assert.NoError(t, fleet().Validate())

	bad := fleet()
	bad.EVEfficiency = 0
	assert.Error(t, bad.Validate())

	bad = fleet()
	bad.Utilization = 1.5
	assert.Error(t, bad.Validate())
}

func TestEVSEStrategyRejectsDrivingWhileCharging(t *testing.T) {
	var drive timeseries.Frame288
	drive.Set(time.June, 8, 10)
	s := EVSEStrategy{
		ChargeSchedule: timeseries.UniformFrame288(1000),
		DriveSchedule:  drive,
	}
	assert.Error(t, s.Validate())
	assert.NoError(t, commuteStrategy().Validate())
}

func TestEVSERoundTripDistance(t *testing.T) {
	assert.Equal(t, 10.0, commuteStrategy().RoundTripDistance())
}

func TestEVSEOperationsChargeAndDrive(t *testing.T) {
	sim := EVSESimulator{EVSE: fleet(), Strategy: commuteStrategy()}

	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	kws := make([]float64, 10) // hours 0 through 9, flat zero load
	pre := loadFrame(t, start, kws...)

	ops, err := sim.Operations(pre)
	require.NoError(t, err)
	require.Len(t, ops, 10)

	// the fleet budget is 10 mi / 4 mi/kWh * 2 EVs = 5 kWh; chargers fill
	// it in the first hour
	assert.Equal(t, 5.0, ops[0].KW)
	assert.Equal(t, 5.0, ops[0].Charge)
	assert.Equal(t, 0.0, ops[1].KW)

	// hour 8 drives 10 mi * 2 EVs and drains the battery off-grid
	assert.Equal(t, 20.0, ops[8].Distance)
	assert.Equal(t, 0.0, ops[8].KW)
	assert.Equal(t, -5.0, ops[8].EVKW)
	assert.Equal(t, 0.0, ops[8].Charge)

	// hour 9 recharges
	assert.Equal(t, 5.0, ops[9].KW)
	assert.Equal(t, 5.0, ops[9].Charge)
}

func TestEVSESimulateOnlyChargingHitsMeter(t *testing.T) {
	sim := EVSESimulator{EVSE: fleet(), Strategy: commuteStrategy()}

	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	kws := make([]float64, 10)
	pre := loadFrame(t, start, kws...)

	product, err := sim.Simulate(pre)
	require.NoError(t, err)

	// driving drains the fleet battery, not the meter
	derReadings := product.DER.Readings()
	assert.Equal(t, 0.0, derReadings[8].KW)
	assert.Equal(t, 5.0, derReadings[0].KW)
	assert.InDelta(t, 10.0, product.DER.TotalKWH(), 1e-9)
}
