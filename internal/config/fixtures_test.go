package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func uniformSchedule(value float64) [][]float64 {
	matrix := make([][]float64, 12)
	for m := range matrix {
		matrix[m] = make([]float64, 24)
		for h := range matrix[m] {
			matrix[m][h] = value
		}
	}
	return matrix
}

func writeYAML(t *testing.T, dir, name string, doc interface{}) string {
	t.Helper()
	raw, err := yaml.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestLoadDERBattery(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "charge.yaml", map[string]interface{}{
		"schedule": uniformSchedule(5),
	})
	path := writeYAML(t, dir, "battery.yaml", map[string]interface{}{
		"type": "battery",
		"battery": map[string]interface{}{
			"rating_kw":                10,
			"discharge_duration_hours": 2,
			"efficiency":               0.9,
			"charge_schedule_file":     "charge.yaml",
			"discharge_schedule":       uniformSchedule(10),
		},
	})

	fixture, err := LoadDER(path)
	require.NoError(t, err)
	assert.Equal(t, "battery", fixture.Type)

	sim, err := fixture.BatterySimulator()
	require.NoError(t, err)
	assert.Equal(t, 10.0, sim.Battery.RatingKW)
	assert.Equal(t, 20.0, sim.Battery.CapacityKWH())
	assert.Equal(t, 5.0, sim.Strategy.ChargeSchedule.Cells[0][0])
	assert.Equal(t, 10.0, sim.Strategy.DischargeSchedule.Cells[11][23])
}

func TestLoadDERInlineScheduleWins(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "charge.yaml", map[string]interface{}{
		"schedule": uniformSchedule(99),
	})
	path := writeYAML(t, dir, "battery.yaml", map[string]interface{}{
		"type": "battery",
		"battery": map[string]interface{}{
			"rating_kw":                10,
			"discharge_duration_hours": 2,
			"efficiency":               0.9,
			"charge_schedule_file":     "charge.yaml",
			"charge_schedule":          uniformSchedule(5),
			"discharge_schedule":       uniformSchedule(10),
		},
	})

	fixture, err := LoadDER(path)
	require.NoError(t, err)
	sim, err := fixture.BatterySimulator()
	require.NoError(t, err)
	assert.Equal(t, 5.0, sim.Strategy.ChargeSchedule.Cells[0][0])
}

func TestLoadDERMissingScheduleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "battery.yaml", map[string]interface{}{
		"type": "battery",
		"battery": map[string]interface{}{
			"rating_kw":            10,
			"charge_schedule_file": "absent.yaml",
		},
	})

	_, err := LoadDER(path)
	assert.Error(t, err)
}

func TestLoadDERFuelSwitching(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "fs.yaml", map[string]interface{}{
		"type": "fuel_switching",
		"fuel_switching": map[string]interface{}{
			"space_heating": true,
			"tmy3_file":     "profile.csv",
		},
	})

	fixture, err := LoadDER(path)
	require.NoError(t, err)
	cfg := fixture.FuelSwitchingConfig()
	assert.True(t, cfg.SpaceHeating)
	assert.False(t, cfg.WaterHeating)
	assert.Equal(t, "profile.csv", fixture.FuelSwitching.TMY3File)
}

func TestDERFixtureValidate(t *testing.T) {
	valid := func() *DERFixture {
		return &DERFixture{
			Type: "battery",
			Battery: &BatteryFixture{
				RatingKW:               10,
				DischargeDurationHours: 2,
				Efficiency:             0.9,
				ChargeSchedule:         uniformSchedule(5),
				DischargeSchedule:      uniformSchedule(10),
			},
		}
	}
	require.NoError(t, valid().Validate())

	missingType := valid()
	missingType.Type = ""
	assert.Error(t, missingType.Validate())

	unknownType := valid()
	unknownType.Type = "flywheel"
	assert.Error(t, unknownType.Validate())

	missingSection := valid()
	missingSection.Battery = nil
	assert.Error(t, missingSection.Validate())

	badEfficiency := valid()
	badEfficiency.Battery.Efficiency = 1.5
	assert.Error(t, badEfficiency.Validate())

	fsWithoutEndUse := &DERFixture{
		Type:          "fuel_switching",
		FuelSwitching: &FuelSwitchingFixture{},
	}
	assert.Error(t, fsWithoutEndUse.Validate())
}
