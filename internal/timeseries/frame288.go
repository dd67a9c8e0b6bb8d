package timeseries

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Frame288 is a 12-month by 24-hour matrix. One cell holds an aggregate for
// all intervals falling in that particular month and hour. The same shape is
// used for tariff TOU schedules, GHG lookup tables, and DER thresholds.
type Frame288 struct {
	Cells [12][24]float64
}

// UniformFrame288 returns a frame with every cell set to v.
func UniformFrame288(v float64) Frame288 {
	var f Frame288
	for m := range f.Cells {
		for h := range f.Cells[m] {
			f.Cells[m][h] = v
		}
	}
	return f
}

// Frame288FromMatrix converts a 12-row by 24-column matrix, the layout used
// by OpenEI schedule data, into a Frame288.
func Frame288FromMatrix(matrix [][]float64) (Frame288, error) {
	if len(matrix) != 12 {
		return Frame288{}, errors.Errorf("matrix must have 12 rows, got %d", len(matrix))
	}
	var f Frame288
	for m, row := range matrix {
		if len(row) != 24 {
			return Frame288{}, errors.Errorf("month %d must have 24 values, got %d", m+1, len(row))
		}
		copy(f.Cells[m][:], row)
	}
	return f, nil
}

// Frame288FromFlattened converts a month-major array of 288 values into a
// Frame288.
func Frame288FromFlattened(values []float64) (Frame288, error) {
	if len(values) != 288 {
		return Frame288{}, errors.Errorf("flattened frame must have 288 values, got %d", len(values))
	}
	var f Frame288
	for m := 0; m < 12; m++ {
		copy(f.Cells[m][:], values[m*24:(m+1)*24])
	}
	return f, nil
}

// At returns the cell for the given month and hour.
func (f Frame288) At(month time.Month, hour int) float64 {
	return f.Cells[int(month)-1][hour]
}

// Set writes the cell for the given month and hour.
func (f *Frame288) Set(month time.Month, hour int, v float64) {
	f.Cells[int(month)-1][hour] = v
}

// Add returns the cell-wise sum of two frames.
func (f Frame288) Add(other Frame288) Frame288 {
	return f.zip(other, func(a, b float64) float64 { return a + b })
}

// Sub returns the cell-wise difference of two frames.
func (f Frame288) Sub(other Frame288) Frame288 {
	return f.zip(other, func(a, b float64) float64 { return a - b })
}

// Mul returns the cell-wise product of two frames.
func (f Frame288) Mul(other Frame288) Frame288 {
	return f.zip(other, func(a, b float64) float64 { return a * b })
}

// Div returns the cell-wise quotient of two frames.
func (f Frame288) Div(other Frame288) Frame288 {
	return f.zip(other, func(a, b float64) float64 { return a / b })
}

func (f Frame288) zip(other Frame288, op func(a, b float64) float64) Frame288 {
	var out Frame288
	for m := range f.Cells {
		for h := range f.Cells[m] {
			out.Cells[m][h] = op(f.Cells[m][h], other.Cells[m][h])
		}
	}
	return out
}

// Sum returns the total of all 288 cells.
func (f Frame288) Sum() float64 {
	total := 0.0
	for m := range f.Cells {
		for h := range f.Cells[m] {
			total += f.Cells[m][h]
		}
	}
	return total
}

// Max returns the largest cell value.
func (f Frame288) Max() float64 {
	max := math.Inf(-1)
	for m := range f.Cells {
		for h := range f.Cells[m] {
			if f.Cells[m][h] > max {
				max = f.Cells[m][h]
			}
		}
	}
	return max
}

// MonthlyPeaks returns the maximum cell per month.
func (f Frame288) MonthlyPeaks() [12]float64 {
	var peaks [12]float64
	for m := range f.Cells {
		peak := math.Inf(-1)
		for h := range f.Cells[m] {
			if f.Cells[m][h] > peak {
				peak = f.Cells[m][h]
			}
		}
		peaks[m] = peak
	}
	return peaks
}

// Mask returns a frame holding 1 where the cell equals key and 0 elsewhere.
// Multiplying an aggregate frame by a schedule mask isolates the intervals
// belonging to one TOU period.
func (f Frame288) Mask(key float64) Frame288 {
	var out Frame288
	for m := range f.Cells {
		for h := range f.Cells[m] {
			if f.Cells[m][h] == key {
				out.Cells[m][h] = 1
			}
		}
	}
	return out
}

// Normalized scales all cells into [-1, 1] by the largest absolute value.
// An all-zero frame is returned unchanged.
func (f Frame288) Normalized() Frame288 {
	absMax := 0.0
	for m := range f.Cells {
		for h := range f.Cells[m] {
			if v := math.Abs(f.Cells[m][h]); v > absMax {
				absMax = v
			}
		}
	}
	if absMax == 0 {
		return f
	}
	var out Frame288
	for m := range f.Cells {
		for h := range f.Cells[m] {
			out.Cells[m][h] = f.Cells[m][h] / absMax
		}
	}
	return out
}

// Flatten returns all 288 values month-major: January hours 0-23 first,
// December hours 0-23 last.
func (f Frame288) Flatten() []float64 {
	out := make([]float64, 0, 288)
	for m := range f.Cells {
		out = append(out, f.Cells[m][:]...)
	}
	return out
}

// UniqueValues returns the sorted distinct cell values. Used to enumerate
// the TOU period keys of a schedule frame.
func (f Frame288) UniqueValues() []float64 {
	seen := map[float64]struct{}{}
	var out []float64
	for m := range f.Cells {
		for h := range f.Cells[m] {
			if _, ok := seen[f.Cells[m][h]]; !ok {
				seen[f.Cells[m][h]] = struct{}{}
				out = append(out, f.Cells[m][h])
			}
		}
	}
	sort.Float64s(out)
	return out
}

// AverageFrame288 returns the hourly average energy (kWh) per month-hour.
func (f *IntervalFrame) AverageFrame288() Frame288 {
	return f.computeFrame288(Mean, true)
}

// MinimumFrame288 returns the minimum power (kW) per month-hour.
func (f *IntervalFrame) MinimumFrame288() Frame288 {
	return f.computeFrame288(Min, false)
}

// MaximumFrame288 returns the maximum power (kW) per month-hour.
func (f *IntervalFrame) MaximumFrame288() Frame288 {
	return f.computeFrame288(Max, false)
}

// TotalFrame288 returns the total energy (kWh) per month-hour.
func (f *IntervalFrame) TotalFrame288() Frame288 {
	return f.computeFrame288(Sum, true)
}

// CountFrame288 returns the number of readings per month-hour.
func (f *IntervalFrame) CountFrame288() Frame288 {
	return f.computeFrame288(Count, false)
}

// computeFrame288 aggregates intervals into month-hour cells. When toKWH is
// set, readings are first resampled to one-hour averages so each value is
// the energy (kWh) of its hour.
func (f *IntervalFrame) computeFrame288(agg AggFunc, toKWH bool) Frame288 {
	source := f
	if toKWH && f.period != time.Hour && f.Len() > 0 {
		resampled, err := f.Resample(time.Hour)
		if err == nil {
			source = resampled
		}
	}

	var buckets [12][24][]float64
	for _, r := range source.readings {
		m := int(r.Start.Month()) - 1
		h := r.Start.Hour()
		buckets[m][h] = append(buckets[m][h], r.KW)
	}

	var out Frame288
	for m := range buckets {
		for h := range buckets[m] {
			if len(buckets[m][h]) > 0 {
				out.Cells[m][h] = agg(buckets[m][h])
			}
		}
	}
	return out
}
