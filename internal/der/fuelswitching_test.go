package der

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuelSwitchingValidate(t *testing.T) {
	assert.Error(t, FuelSwitching{}.Validate())
	assert.NoError(t, FuelSwitching{SpaceHeating: true}.Validate())
	assert.NoError(t, FuelSwitching{WaterHeating: true}.Validate())
}

func winterProfile() []GasHour {
	day := time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC)
	return []GasHour{
		{Start: day.Add(6 * time.Hour), Total: 3, SpaceHeating: 2, WaterHeating: 1},
		{Start: day.Add(7 * time.Hour), Total: 3, SpaceHeating: 2, WaterHeating: 1},
	}
}

func TestFuelSwitchingSimulateBothEndUses(t *testing.T) {
	sim := FuelSwitchingSimulator{
		Config:   FuelSwitching{SpaceHeating: true, WaterHeating: true},
		Strategy: FuelSwitchingStrategy{Profile: winterProfile()},
		Gas: []GasDay{
			{Date: time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC), Therms: 2},
		},
	}

	start := time.Date(2020, time.February, 1, 6, 0, 0, 0, time.UTC)
	pre := loadFrame(t, start, 1, 1)

	product, err := sim.Simulate(pre)
	require.NoError(t, err)

	// the day's 2 therms split evenly across the two profile hours; each
	// therm becomes 29.3 kWh of heat served at COP 3
	expected := 1.0 * KWHPerTherm / HeatPumpCOP
	derReadings := product.DER.Readings()
	require.Len(t, derReadings, 2)
	assert.InDelta(t, expected, derReadings[0].KW, 1e-9)
	assert.InDelta(t, expected, derReadings[1].KW, 1e-9)

	postReadings := product.Post.Readings()
	assert.InDelta(t, 1+expected, postReadings[0].KW, 1e-9)
}

func TestFuelSwitchingSimulateSpaceHeatingOnly(t *testing.T) {
	sim := FuelSwitchingSimulator{
		Config:   FuelSwitching{SpaceHeating: true},
		Strategy: FuelSwitchingStrategy{Profile: winterProfile()},
		Gas: []GasDay{
			{Date: time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC), Therms: 3},
		},
	}

	start := time.Date(2020, time.February, 1, 6, 0, 0, 0, time.UTC)
	pre := loadFrame(t, start, 0, 0)

	product, err := sim.Simulate(pre)
	require.NoError(t, err)

	// space heating carries 2/3 of the day's gas; each hour serves half of
	// that share
	expected := 3.0 * (2.0 / 3.0) / 2 * KWHPerTherm / HeatPumpCOP
	derReadings := product.DER.Readings()
	assert.InDelta(t, expected, derReadings[0].KW, 1e-9)
}

func TestFuelSwitchingMissingProfileDay(t *testing.T) {
	sim := FuelSwitchingSimulator{
		Config:   FuelSwitching{SpaceHeating: true},
		Strategy: FuelSwitchingStrategy{Profile: winterProfile()},
		Gas: []GasDay{
			{Date: time.Date(2020, time.August, 15, 0, 0, 0, 0, time.UTC), Therms: 1},
		},
	}

	start := time.Date(2020, time.August, 15, 0, 0, 0, 0, time.UTC)
	pre := loadFrame(t, start, 1, 1)

	_, err := sim.Simulate(pre)
	assert.Error(t, err)
}
