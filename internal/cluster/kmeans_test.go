package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navigader/internal/timeseries"
)

func TestKMeansValidatesInputs(t *testing.T) {
	frames := []timeseries.Frame288{timeseries.UniformFrame288(1)}
	rng := rand.New(rand.NewSource(1))

	_, err := KMeans(frames, 0, false, rng)
	assert.Error(t, err)

	_, err = KMeans(frames, 2, false, rng)
	assert.Error(t, err)
}

func TestKMeansSeparatesDistinctShapes(t *testing.T) {
	// Two well-separated groups of constant profiles.
	var frames []timeseries.Frame288
	for _, kw := range []float64{1, 1.1, 0.9, 100, 101, 99} {
		frames = append(frames, timeseries.UniformFrame288(kw))
	}

	result, err := KMeans(frames, 2, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, 2, result.Clusters())
	require.Len(t, result.Labels, 6)

	low := result.Labels[0]
	high := result.Labels[3]
	assert.NotEqual(t, low, high)
	assert.Equal(t, []int{0, 1, 2}, result.Members(low))
	assert.Equal(t, []int{3, 4, 5}, result.Members(high))
}

func TestKMeansReferenceFrame288(t *testing.T) {
	frames := []timeseries.Frame288{
		timeseries.UniformFrame288(2),
		timeseries.UniformFrame288(4),
	}

	result, err := KMeans(frames, 1, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	ref, err := result.ReferenceFrame288(0)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, ref.Cells[0][0], 1e-9)
	assert.InDelta(t, 3.0, ref.Cells[11][23], 1e-9)

	_, err = result.ReferenceFrame288(1)
	assert.Error(t, err)
	_, err = result.ReferenceFrame288(-1)
	assert.Error(t, err)
}

func TestKMeansNormalizedClustersByShape(t *testing.T) {
	// Same shape at very different magnitudes versus a flat profile.
	peaky := func(scale float64) timeseries.Frame288 {
		f := timeseries.UniformFrame288(scale)
		for m := 0; m < 12; m++ {
			f.Cells[m][18] = 10 * scale
		}
		return f
	}
	frames := []timeseries.Frame288{
		peaky(1), peaky(50),
		timeseries.UniformFrame288(1), timeseries.UniformFrame288(50),
	}

	result, err := KMeans(frames, 2, true, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, result.Labels[0], result.Labels[1])
	assert.Equal(t, result.Labels[2], result.Labels[3])
	assert.NotEqual(t, result.Labels[0], result.Labels[2])
}
