package der

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navigader/internal/timeseries"
)

func product(t *testing.T, start time.Time, pre, der []float64) *Product {
	t.Helper()
	preFrame := loadFrame(t, start, pre...)
	derFrame := loadFrame(t, start, der...)
	post, err := preFrame.Add(derFrame)
	require.NoError(t, err)
	return &Product{Pre: preFrame, DER: derFrame, Post: post}
}

func TestAggregateProductSums(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	agg := NewAggregateProduct()
	agg.Add("meter-b", product(t, start, []float64{1, 2}, []float64{1, 1}))
	agg.Add("meter-a", product(t, start, []float64{3, 4}, []float64{-1, -1}))

	assert.Equal(t, 2, agg.Len())
	assert.Equal(t, []string{"meter-a", "meter-b"}, agg.MeterIDs())

	pre, err := agg.PreFrame()
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6}, frameKWs(pre))

	post, err := agg.PostFrame()
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6}, frameKWs(post))

	der, err := agg.DERFrame()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, frameKWs(der))
}

func TestAggregateProductEmpty(t *testing.T) {
	_, err := NewAggregateProduct().PreFrame()
	assert.Error(t, err)
}

func TestComparePeaks(t *testing.T) {
	start := time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC)
	p := product(t, start, []float64{10, 6}, []float64{-4, 0})

	peaks := p.ComparePeaks()
	require.Len(t, peaks, 1)
	assert.Equal(t, 6, peaks[0].Month)
	assert.Equal(t, 10.0, peaks[0].Before)
	assert.Equal(t, 6.0, peaks[0].After)
	assert.Equal(t, -4.0, peaks[0].Net)
}

func frameKWs(f *timeseries.IntervalFrame) []float64 {
	var out []float64
	for _, r := range f.Readings() {
		out = append(out, r.KW)
	}
	return out
}
