// Package cluster groups customer load profiles by similarity. Profiles
// are compared as flattened month-hour frames using k-means.
package cluster

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"navigader/internal/timeseries"
)

// defaultMaxIterations bounds Lloyd's algorithm; assignments stabilize far
// earlier on typical load data.
const defaultMaxIterations = 300

// Result holds a finished clustering. Labels[i] is the cluster index of
// the i-th input frame; Centroids[k] is the mean flattened frame of
// cluster k.
type Result struct {
	Labels    []int
	Centroids [][]float64
}

// Clusters returns the number of clusters.
func (r *Result) Clusters() int { return len(r.Centroids) }

// ReferenceFrame288 returns the centroid of a cluster as a Frame288, the
// best-fit month-hour shape for its members.
func (r *Result) ReferenceFrame288(clusterID int) (timeseries.Frame288, error) {
	if clusterID < 0 || clusterID >= len(r.Centroids) {
		return timeseries.Frame288{}, errors.Errorf("cluster %d out of range", clusterID)
	}
	return timeseries.Frame288FromFlattened(r.Centroids[clusterID])
}

// Members returns the indices of the input frames assigned to a cluster.
func (r *Result) Members(clusterID int) []int {
	var out []int
	for i, label := range r.Labels {
		if label == clusterID {
			out = append(out, i)
		}
	}
	return out
}

// KMeans clusters month-hour frames into k groups. When normalize is set,
// frames are scaled to [-1, 1] before clustering so shape dominates
// magnitude. The random source seeds the initial centroid choice.
func KMeans(frames []timeseries.Frame288, k int, normalize bool, rng *rand.Rand) (*Result, error) {
	if k <= 0 {
		return nil, errors.New("cluster count must be positive")
	}
	if len(frames) < k {
		return nil, errors.Errorf("%d frames cannot form %d clusters", len(frames), k)
	}

	points := make([][]float64, len(frames))
	for i, f := range frames {
		if normalize {
			f = f.Normalized()
		}
		points[i] = f.Flatten()
	}

	centroids := initialCentroids(points, k, rng)
	labels := make([]int, len(points))

	for iter := 0; iter < defaultMaxIterations; iter++ {
		changed := assign(points, centroids, labels)
		recenter(points, labels, centroids)
		if !changed && iter > 0 {
			break
		}
	}
	return &Result{Labels: labels, Centroids: centroids}, nil
}

// initialCentroids picks k distinct input points as starting centroids.
func initialCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(points))
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), points[perm[i]]...)
	}
	return centroids
}

// assign moves each point to its nearest centroid and reports whether any
// label changed.
func assign(points, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestDist := 0, floats.Distance(p, centroids[0], 2)
		for c := 1; c < len(centroids); c++ {
			if d := floats.Distance(p, centroids[c], 2); d < bestDist {
				best, bestDist = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// recenter replaces each centroid with the mean of its members. Empty
// clusters keep their previous centroid.
func recenter(points [][]float64, labels []int, centroids [][]float64) {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		floats.Add(sums[labels[i]], p)
		counts[labels[i]]++
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		centroids[c] = sums[c]
	}
}
