package openei

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tmy3Header = `Date/Time,Gas:Facility [kW](Hourly),Heating:Gas [kW](Hourly),Water Heater:WaterSystems:Gas [kW](Hourly)`

func TestParseTMY3(t *testing.T) {
	doc := tmy3Header + `
01/01  01:00:00,3,2,1
01/01  02:00:00,5,4,1
`
	profile, err := ParseTMY3(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, profile.Hours, 2)
	assert.Empty(t, profile.Warnings)

	// Hour-end 01:00 becomes hour-start 00:00.
	first := profile.Hours[0]
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), first.Start)
	assert.Equal(t, 3.0, first.Total)
	assert.Equal(t, 2.0, first.SpaceHeating)
	assert.Equal(t, 1.0, first.WaterHeating)

	assert.Equal(t, 1, profile.Hours[1].Start.Hour())
}

func TestParseTMY3HourTwentyFour(t *testing.T) {
	doc := tmy3Header + `
12/31  24:00:00,3,2,1
`
	profile, err := ParseTMY3(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.December, 31, 23, 0, 0, 0, time.UTC),
		profile.Hours[0].Start)
}

func TestParseTMY3MissingWaterHeatingColumn(t *testing.T) {
	doc := `Date/Time,Gas:Facility [kW](Hourly),Heating:Gas [kW](Hourly)
01/01  01:00:00,3,2
`
	profile, err := ParseTMY3(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, profile.Warnings, 1)
	assert.Contains(t, profile.Warnings[0], "Water Heater")
	assert.Equal(t, 0.0, profile.Hours[0].WaterHeating)
	assert.Equal(t, 2.0, profile.Hours[0].SpaceHeating)
}

func TestParseTMY3RejectsBadTimestamps(t *testing.T) {
	for _, ts := range []string{"bogus", "13/01  01:00:00", "01/01  25:00:00", "01/01  00:00:00"} {
		doc := tmy3Header + "\n" + ts + ",3,2,1\n"
		_, err := ParseTMY3(strings.NewReader(doc))
		assert.Error(t, err, "timestamp %q", ts)
	}
}

func TestParseTMY3RejectsMissingColumns(t *testing.T) {
	doc := `Date/Time,Heating:Gas [kW](Hourly)
01/01  01:00:00,2
`
	_, err := ParseTMY3(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestParseTMY3RejectsEmptyFile(t *testing.T) {
	_, err := ParseTMY3(strings.NewReader(tmy3Header + "\n"))
	assert.Error(t, err)
}
