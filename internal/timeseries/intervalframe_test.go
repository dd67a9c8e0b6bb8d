package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(start time.Time, kws ...float64) []Reading {
	out := make([]Reading, len(kws))
	for i, kw := range kws {
		out[i] = Reading{Start: start.Add(time.Duration(i) * time.Hour), KW: kw}
	}
	return out
}

func TestNewSortsAndDetectsPeriod(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	readings := []Reading{
		{Start: start.Add(30 * time.Minute), KW: 2},
		{Start: start, KW: 1},
		{Start: start.Add(time.Hour), KW: 3},
		{Start: start.Add(90 * time.Minute), KW: 4},
	}

	frame, err := New(readings)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, frame.Period())
	assert.Equal(t, start, frame.Start())
	assert.Equal(t, start.Add(90*time.Minute), frame.End())
	assert.Equal(t, start.Add(2*time.Hour), frame.EndLimit())
	assert.Equal(t, []float64{1, 2, 3, 4}, kws(frame))
}

func TestNewRejectsDuplicateTimestamps(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err := New([]Reading{{Start: start, KW: 1}, {Start: start, KW: 2}})
	assert.Error(t, err)
}

func TestPeriodUsesModeOfGaps(t *testing.T) {
	// A missing interval produces one double-length gap; the mode still
	// reflects the true period.
	start := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	readings := []Reading{
		{Start: start, KW: 1},
		{Start: start.Add(15 * time.Minute), KW: 1},
		{Start: start.Add(30 * time.Minute), KW: 1},
		{Start: start.Add(60 * time.Minute), KW: 1},
		{Start: start.Add(75 * time.Minute), KW: 1},
	}
	frame, err := New(readings)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, frame.Period())
}

func TestTotalKWHAndMaxKW(t *testing.T) {
	start := time.Date(2020, time.March, 2, 0, 0, 0, 0, time.UTC)
	frame, err := New([]Reading{
		{Start: start, KW: 4},
		{Start: start.Add(15 * time.Minute), KW: 8},
		{Start: start.Add(30 * time.Minute), KW: -4},
	})
	require.NoError(t, err)

	// 15-minute intervals contribute a quarter of their kW as kWh.
	assert.InDelta(t, 2.0, frame.TotalKWH(), 1e-9)
	assert.Equal(t, 8.0, frame.MaxKW())
}

func TestFilterByRange(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New(hourly(start, 1, 2, 3, 4))
	require.NoError(t, err)

	got := frame.FilterByRange(start.Add(time.Hour), start.Add(3*time.Hour))
	assert.Equal(t, []float64{2, 3}, kws(got))
	assert.Equal(t, time.Hour, got.Period())
}

func TestFilterWeekdayWeekend(t *testing.T) {
	// 2020-01-03 is a Friday, 01-04 a Saturday.
	friday := time.Date(2020, time.January, 3, 12, 0, 0, 0, time.UTC)
	saturday := time.Date(2020, time.January, 4, 12, 0, 0, 0, time.UTC)
	frame, err := New([]Reading{{Start: friday, KW: 1}, {Start: saturday, KW: 2}})
	require.NoError(t, err)

	assert.Equal(t, []float64{1}, kws(frame.FilterWeekday()))
	assert.Equal(t, []float64{2}, kws(frame.FilterWeekend()))
}

func TestFilterMonths(t *testing.T) {
	jan := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	jul := time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New([]Reading{{Start: jan, KW: 1}, {Start: jul, KW: 2}})
	require.NoError(t, err)

	assert.Equal(t, []float64{2}, kws(frame.FilterMonths(time.July)))
	assert.Empty(t, kws(frame.FilterMonths(time.March)))
}

func TestDaysAndMonthYears(t *testing.T) {
	start := time.Date(2020, time.January, 31, 23, 0, 0, 0, time.UTC)
	frame, err := New(hourly(start, 1, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, 2, frame.Days())
	assert.Equal(t, []MonthYear{
		{Month: time.January, Year: 2020},
		{Month: time.February, Year: 2020},
	}, frame.MonthYears())
}

func TestAddAlignsPeriods(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	coarse, err := New(hourly(start, 4, 8))
	require.NoError(t, err)
	fine, err := New([]Reading{
		{Start: start, KW: 1},
		{Start: start.Add(30 * time.Minute), KW: 1},
		{Start: start.Add(time.Hour), KW: 1},
		{Start: start.Add(90 * time.Minute), KW: 1},
	})
	require.NoError(t, err)

	sum, err := coarse.Add(fine)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, sum.Period())
	assert.Equal(t, []float64{5, 5, 9, 9}, kws(sum))
}

func TestAddWithEmptyFrame(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New(hourly(start, 1, 2))
	require.NoError(t, err)

	sum, err := frame.Add(Empty())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, kws(sum))

	sum, err = Empty().Add(frame)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, kws(sum))
}

func TestAddWithSingleReadingFrame(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New(hourly(start, 4, 8))
	require.NoError(t, err)
	single, err := New([]Reading{{Start: start, KW: 1}})
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), single.Period())

	sum, err := frame.Add(single)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 8}, kws(sum))
	assert.Equal(t, time.Hour, sum.Period())

	sum, err = single.Add(frame)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 8}, kws(sum))
	assert.Equal(t, time.Hour, sum.Period())
}

func TestDownsampleMean(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New([]Reading{
		{Start: start, KW: 2},
		{Start: start.Add(15 * time.Minute), KW: 4},
		{Start: start.Add(30 * time.Minute), KW: 6},
		{Start: start.Add(45 * time.Minute), KW: 8},
		{Start: start.Add(60 * time.Minute), KW: 10},
	})
	require.NoError(t, err)

	down, err := frame.Downsample(time.Hour, Mean)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10}, kws(down))
	assert.Equal(t, time.Hour, down.Period())
}

func TestUpsampleForwardFills(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New(hourly(start, 4, 8))
	require.NoError(t, err)

	up, err := frame.Upsample(30 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 8, 8}, kws(up))

	// energy is preserved
	assert.InDelta(t, frame.TotalKWH(), up.TotalKWH(), 1e-9)
}

func TestDownsampleRejectsFinerTarget(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New(hourly(start, 1, 2))
	require.NoError(t, err)

	_, err = frame.Downsample(time.Minute, Mean)
	assert.Error(t, err)
	_, err = frame.Upsample(2 * time.Hour)
	assert.Error(t, err)
}

func TestResampleRejectsNonPositiveTarget(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New(hourly(start, 1, 2))
	require.NoError(t, err)

	_, err = frame.Resample(0)
	assert.Error(t, err)
	_, err = frame.Resample(-time.Hour)
	assert.Error(t, err)
	_, err = frame.Upsample(0)
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New(hourly(start, 1, 2))
	require.NoError(t, err)

	assert.Equal(t, []float64{-2, -4}, kws(frame.Scale(-2)))
}

func TestMergeOverwrite(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	a, err := New(hourly(start, 1, 2))
	require.NoError(t, err)
	b, err := New(hourly(start.Add(time.Hour), 9, 9))
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 9}, kws(a.Merge(b, false)))
	assert.Equal(t, []float64{1, 9, 9}, kws(a.Merge(b, true)))
}

func TestWithYear(t *testing.T) {
	start := time.Date(2018, time.June, 15, 10, 30, 0, 0, time.UTC)
	frame, err := New(hourly(start, 1, 2))
	require.NoError(t, err)

	shifted, err := frame.WithYear(2020)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.June, 15, 10, 30, 0, 0, time.UTC), shifted.Start())
	assert.Equal(t, []float64{1, 2}, kws(shifted))
}

func TestWithYearRejectsMultiYearSpan(t *testing.T) {
	start := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New([]Reading{
		{Start: start, KW: 1},
		{Start: start.AddDate(1, 1, 0), KW: 2},
	})
	require.NoError(t, err)

	_, err = frame.WithYear(2020)
	assert.Error(t, err)
}

func TestEnergies(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	frame, err := New([]Reading{
		{Start: start, KW: 4},
		{Start: start.Add(15 * time.Minute), KW: 8},
	})
	require.NoError(t, err)

	energies := frame.Energies()
	require.Len(t, energies, 2)
	assert.InDelta(t, 1.0, energies[0].KWH, 1e-9)
	assert.InDelta(t, 2.0, energies[1].KWH, 1e-9)
}

func kws(f *IntervalFrame) []float64 {
	var out []float64
	for _, r := range f.Readings() {
		out = append(out, r.KW)
	}
	return out
}
