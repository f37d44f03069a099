package analysis

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// DefaultClusterIterations caps the assignment/update loop.
const DefaultClusterIterations = 10

// ClusterOptions configures KMeans.
type ClusterOptions struct {
	K       int
	MaxIter int
	// Rand drives seeding; nil uses a time-seeded source.
	Rand *rand.Rand
}

// ClusterResult is a k-means partition of the rows.
type ClusterResult struct {
	Clusters   []int       `json:"clusters" yaml:"clusters"`
	Centroids  [][]float64 `json:"centroids" yaml:"centroids"` // in normalized [0,1] space
	Iterations int         `json:"iterations" yaml:"iterations"`
}

// Sizes counts rows per cluster.
func (c *ClusterResult) Sizes() []int {
	sizes := make([]int, len(c.Centroids))
	for _, l := range c.Clusters {
		sizes[l]++
	}
	return sizes
}

// NewRand returns a PCG source; seed 0 seeds from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// KMeans clusters min-max normalized rows with k-means++ seeding. It stops
// when no label changes or after MaxIter passes. Empty clusters keep their
// previous centroid. K above the row count is lowered to the row count, so
// len(Centroids) is the k actually used.
func KMeans(matrix [][]float64, opt ClusterOptions) (*ClusterResult, error) {
	cols, err := shape(matrix)
	if err != nil {
		return nil, err
	}
	if opt.K <= 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidK, opt.K)
	}
	k := opt.K
	if k > len(matrix) {
		k = len(matrix)
	}
	maxIter := opt.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultClusterIterations
	}
	rng := opt.Rand
	if rng == nil {
		rng = NewRand(0)
	}

	points := Normalize(matrix)
	centroids := seedPlusPlus(points, k, rng)

	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	iter := 0
	for iter < maxIter {
		iter++
		changed := false
		for i, p := range points {
			best, bestD := 0, math.Inf(1)
			for k, c := range centroids {
				if d := sqDist(p, c); d < bestD {
					best, bestD = k, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for k := range sums {
			sums[k] = make([]float64, cols)
		}
		for i, p := range points {
			k := labels[i]
			counts[k]++
			for j, v := range p {
				sums[k][j] += v
			}
		}
		for k := range centroids {
			if counts[k] == 0 {
				continue
			}
			for j := range centroids[k] {
				centroids[k][j] = sums[k][j] / float64(counts[k])
			}
		}
	}
	return &ClusterResult{Clusters: labels, Centroids: centroids, Iterations: iter}, nil
}

// seedPlusPlus picks the first centroid uniformly and each following one with
// probability proportional to its squared distance from the nearest chosen
// centroid, using cumulative roulette selection.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.IntN(n)]...))
	dist := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			nearest := math.Inf(1)
			for _, c := range centroids {
				if d := sqDist(p, c); d < nearest {
					nearest = d
				}
			}
			dist[i] = nearest
			total += nearest
		}
		pick := -1
		if total > 0 {
			r := rng.Float64() * total
			cumulative := 0.0
			for i, d := range dist {
				cumulative += d
				if d > 0 && cumulative >= r {
					pick = i
					break
				}
			}
			if pick < 0 {
				for i := n - 1; i >= 0; i-- {
					if dist[i] > 0 {
						pick = i
						break
					}
				}
			}
		} else {
			// every point already coincides with a centroid
			pick = rng.IntN(n)
		}
		centroids = append(centroids, append([]float64(nil), points[pick]...))
	}
	return centroids
}

// Normalize rescales each column to [0,1]; a column without range becomes 0.
func Normalize(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return nil
	}
	cols := len(matrix[0])
	lo := make([]float64, cols)
	hi := make([]float64, cols)
	for j := 0; j < cols; j++ {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for _, row := range matrix {
		for j, v := range row {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		out[i] = make([]float64, cols)
		for j, v := range row {
			if span := hi[j] - lo[j]; span > 0 {
				out[i][j] = (v - lo[j]) / span
			}
		}
	}
	return out
}

// ClusterMeans averages the original (unnormalized) rows of each cluster.
// Empty clusters get a nil entry.
func ClusterMeans(matrix [][]float64, labels []int, k int) [][]float64 {
	means := make([][]float64, k)
	counts := make([]int, k)
	for i, row := range matrix {
		l := labels[i]
		if means[l] == nil {
			means[l] = make([]float64, len(row))
		}
		counts[l]++
		for j, v := range row {
			means[l][j] += v
		}
	}
	for l, m := range means {
		for j := range m {
			m[j] /= float64(counts[l])
		}
	}
	return means
}

func sqDist(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}
