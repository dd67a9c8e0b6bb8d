package timeseries

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// periodSampleSize limits how many successive gaps are inspected when
// detecting the interval period. Matches the behavior of inspecting only the
// head of very large meter files.
const periodSampleSize = 96

// Reading is a single meter observation. KW is the average power over the
// interval beginning at Start and lasting one frame period.
//
// Sign convention: positive KW is load drawn from the grid, negative KW is
// export to the grid.
type Reading struct {
	Start time.Time
	KW    float64
}

// MonthYear identifies a calendar month with interval data.
type MonthYear struct {
	Month time.Month
	Year  int
}

// IntervalFrame holds an ordered series of power readings with a uniform
// period. It is the canonical in-memory representation of meter load,
// DER operation, and system profiles.
type IntervalFrame struct {
	readings []Reading
	period   time.Duration
}

// New builds an IntervalFrame from readings. Readings are sorted by start
// time; duplicate timestamps are rejected. The frame period is detected as
// the most common gap between successive readings.
func New(readings []Reading) (*IntervalFrame, error) {
	rs := make([]Reading, len(readings))
	copy(rs, readings)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start.Before(rs[j].Start) })

	for i := 1; i < len(rs); i++ {
		if rs[i].Start.Equal(rs[i-1].Start) {
			return nil, errors.Errorf("duplicate interval timestamp %s", rs[i].Start)
		}
	}

	return &IntervalFrame{readings: rs, period: detectPeriod(rs)}, nil
}

// Empty returns a frame with no readings and no period.
func Empty() *IntervalFrame {
	return &IntervalFrame{}
}

// withPeriod builds a derived frame that inherits an already-known period.
// Used by filters, which can leave gaps that would confuse re-detection.
func withPeriod(readings []Reading, period time.Duration) *IntervalFrame {
	return &IntervalFrame{readings: readings, period: period}
}

func detectPeriod(rs []Reading) time.Duration {
	if len(rs) < 2 {
		return 0
	}
	n := len(rs) - 1
	if n > periodSampleSize {
		n = periodSampleSize
	}
	gaps := make([]float64, n)
	for i := 0; i < n; i++ {
		gaps[i] = rs[i+1].Start.Sub(rs[i].Start).Seconds()
	}
	sort.Float64s(gaps)
	mode, _ := stat.Mode(gaps, nil)
	return time.Duration(mode * float64(time.Second))
}

// Len returns the number of readings.
func (f *IntervalFrame) Len() int { return len(f.readings) }

// Readings returns the underlying readings in ascending order. The slice is
// shared; callers must not modify it.
func (f *IntervalFrame) Readings() []Reading { return f.readings }

// Period returns the detected interval length.
func (f *IntervalFrame) Period() time.Duration { return f.period }

// Start returns the earliest interval start.
func (f *IntervalFrame) Start() time.Time {
	if len(f.readings) == 0 {
		return time.Time{}
	}
	return f.readings[0].Start
}

// End returns the latest interval start.
func (f *IntervalFrame) End() time.Time {
	if len(f.readings) == 0 {
		return time.Time{}
	}
	return f.readings[len(f.readings)-1].Start
}

// EndLimit returns the latest interval start plus one period, i.e. the first
// instant not covered by the frame.
func (f *IntervalFrame) EndLimit() time.Time {
	if len(f.readings) == 0 {
		return time.Time{}
	}
	return f.End().Add(f.period)
}

// Days returns the number of distinct calendar dates with interval data.
func (f *IntervalFrame) Days() int {
	seen := map[[3]int]struct{}{}
	for _, r := range f.readings {
		y, m, d := r.Start.Date()
		seen[[3]int{y, int(m), d}] = struct{}{}
	}
	return len(seen)
}

// MonthYears returns the distinct calendar months covered by the frame in
// chronological order.
func (f *IntervalFrame) MonthYears() []MonthYear {
	var out []MonthYear
	seen := map[MonthYear]struct{}{}
	for _, r := range f.readings {
		my := MonthYear{Month: r.Start.Month(), Year: r.Start.Year()}
		if _, ok := seen[my]; !ok {
			seen[my] = struct{}{}
			out = append(out, my)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// TotalKWH returns the total energy of the frame in kWh.
func (f *IntervalFrame) TotalKWH() float64 {
	hours := f.period.Hours()
	total := 0.0
	for _, r := range f.readings {
		total += r.KW * hours
	}
	return total
}

// MaxKW returns the peak power reading, or 0 for an empty frame.
func (f *IntervalFrame) MaxKW() float64 {
	if len(f.readings) == 0 {
		return 0
	}
	max := math.Inf(-1)
	for _, r := range f.readings {
		if r.KW > max {
			max = r.KW
		}
	}
	return max
}

// FilterByRange returns the readings on or after start and strictly before
// endLimit.
func (f *IntervalFrame) FilterByRange(start, endLimit time.Time) *IntervalFrame {
	var out []Reading
	for _, r := range f.readings {
		if !r.Start.Before(start) && r.Start.Before(endLimit) {
			out = append(out, r)
		}
	}
	return withPeriod(out, f.period)
}

// FilterWeekday returns only Monday through Friday readings.
func (f *IntervalFrame) FilterWeekday() *IntervalFrame {
	var out []Reading
	for _, r := range f.readings {
		switch r.Start.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			out = append(out, r)
		}
	}
	return withPeriod(out, f.period)
}

// FilterWeekend returns only Saturday and Sunday readings.
func (f *IntervalFrame) FilterWeekend() *IntervalFrame {
	var out []Reading
	for _, r := range f.readings {
		if wd := r.Start.Weekday(); wd == time.Saturday || wd == time.Sunday {
			out = append(out, r)
		}
	}
	return withPeriod(out, f.period)
}

// FilterMonths returns only readings falling in the given calendar months.
func (f *IntervalFrame) FilterMonths(months ...time.Month) *IntervalFrame {
	keep := map[time.Month]struct{}{}
	for _, m := range months {
		keep[m] = struct{}{}
	}
	var out []Reading
	for _, r := range f.readings {
		if _, ok := keep[r.Start.Month()]; ok {
			out = append(out, r)
		}
	}
	return withPeriod(out, f.period)
}

// Add combines two frames interval by interval, filling missing timestamps
// with zero. When periods differ, the coarser frame is upsampled to the
// finer period first.
func (f *IntervalFrame) Add(other *IntervalFrame) (*IntervalFrame, error) {
	if other == nil || other.Len() == 0 {
		return f, nil
	}
	if f.Len() == 0 {
		return other, nil
	}

	// Single-reading frames have no detectable period and merge as-is.
	a, b := f, other
	if a.period > 0 && b.period > 0 {
		if a.period < b.period {
			up, err := b.Upsample(a.period)
			if err != nil {
				return nil, err
			}
			b = up
		} else if b.period < a.period {
			up, err := a.Upsample(b.period)
			if err != nil {
				return nil, err
			}
			a = up
		}
	}

	sums := map[time.Time]float64{}
	for _, r := range a.readings {
		sums[r.Start] += r.KW
	}
	for _, r := range b.readings {
		sums[r.Start] += r.KW
	}

	out := make([]Reading, 0, len(sums))
	for start, kw := range sums {
		out = append(out, Reading{Start: start, KW: kw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	period := a.period
	if period == 0 {
		period = b.period
	}
	return withPeriod(out, period), nil
}

// Merge overlays other's readings onto f. When overwrite is true, colliding
// timestamps take other's value; otherwise f's existing values win.
func (f *IntervalFrame) Merge(other *IntervalFrame, overwrite bool) *IntervalFrame {
	if other == nil || other.Len() == 0 {
		return f
	}
	if f.Len() == 0 {
		return other
	}

	merged := map[time.Time]float64{}
	for _, r := range f.readings {
		merged[r.Start] = r.KW
	}
	for _, r := range other.readings {
		if _, exists := merged[r.Start]; !exists || overwrite {
			merged[r.Start] = r.KW
		}
	}

	out := make([]Reading, 0, len(merged))
	for start, kw := range merged {
		out = append(out, Reading{Start: start, KW: kw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return withPeriod(out, f.period)
}

// AggFunc reduces a bucket of power values to a single value.
type AggFunc func([]float64) float64

// Aggregation functions for Downsample and Frame288 computations.
var (
	Mean  AggFunc = func(xs []float64) float64 { return stat.Mean(xs, nil) }
	Sum   AggFunc = floats.Sum
	Min   AggFunc = floats.Min
	Max   AggFunc = floats.Max
	Count AggFunc = func(xs []float64) float64 { return float64(len(xs)) }
)

// Downsample aggregates readings into less frequent intervals. target must
// be greater than or equal to the current period.
func (f *IntervalFrame) Downsample(target time.Duration, agg AggFunc) (*IntervalFrame, error) {
	if target < f.period {
		return nil, errors.New("downsample target must be greater than or equal to the frame period")
	}
	if target == f.period || f.Len() == 0 {
		return f, nil
	}

	buckets := map[time.Time][]float64{}
	var order []time.Time
	for _, r := range f.readings {
		key := r.Start.Truncate(target)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], r.KW)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	out := make([]Reading, 0, len(order))
	for _, key := range order {
		out = append(out, Reading{Start: key, KW: agg(buckets[key])})
	}
	return withPeriod(out, target), nil
}

// Upsample forward-fills readings into more frequent intervals. The final
// interval is extrapolated forward so no trailing energy is lost. target
// must be less than or equal to the current period.
func (f *IntervalFrame) Upsample(target time.Duration) (*IntervalFrame, error) {
	if target <= 0 {
		return nil, errors.New("upsample target must be positive")
	}
	if target > f.period {
		return nil, errors.New("upsample target must be less than or equal to the frame period")
	}
	if target == f.period || f.Len() == 0 {
		return f, nil
	}

	var out []Reading
	idx := 0
	for t := f.Start(); t.Before(f.EndLimit()); t = t.Add(target) {
		for idx+1 < len(f.readings) && !f.readings[idx+1].Start.After(t) {
			idx++
		}
		out = append(out, Reading{Start: t, KW: f.readings[idx].KW})
	}
	return withPeriod(out, target), nil
}

// Resample converts the frame to the target period, downsampling with the
// mean or upsampling with forward fill as needed.
func (f *IntervalFrame) Resample(target time.Duration) (*IntervalFrame, error) {
	if target <= 0 {
		return nil, errors.New("resample target must be positive")
	}
	switch {
	case target > f.period:
		return f.Downsample(target, Mean)
	case target < f.period:
		return f.Upsample(target)
	default:
		return f, nil
	}
}

// Scale returns a frame with every reading multiplied by factor.
func (f *IntervalFrame) Scale(factor float64) *IntervalFrame {
	out := make([]Reading, len(f.readings))
	for i, r := range f.readings {
		out[i] = Reading{Start: r.Start, KW: r.KW * factor}
	}
	return withPeriod(out, f.period)
}

// WithYear returns a frame with every reading's timestamp moved to the
// given calendar year. The frame must span a year or less, otherwise
// shifted timestamps would collide.
func (f *IntervalFrame) WithYear(year int) (*IntervalFrame, error) {
	if f.Len() > 0 && f.EndLimit().Sub(f.Start()) > 366*24*time.Hour {
		return nil, errors.New("frame must span one year or less")
	}
	out := make([]Reading, len(f.readings))
	for i, r := range f.readings {
		t := r.Start
		out[i] = Reading{
			Start: time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(),
				t.Second(), t.Nanosecond(), t.Location()),
			KW: r.KW,
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return withPeriod(out, f.period), nil
}

// Energy is the kWh delivered over one interval.
type Energy struct {
	Start time.Time
	KWH   float64
}

// Energies converts the power readings to per-interval energy values.
func (f *IntervalFrame) Energies() []Energy {
	hours := f.period.Hours()
	out := make([]Energy, len(f.readings))
	for i, r := range f.readings {
		out[i] = Energy{Start: r.Start, KWH: r.KW * hours}
	}
	return out
}
