package grouping

import (
	"math/rand/v2"
)

// kmeans partitions vectors into k clusters and returns each vector's label.
// Centroids are seeded with k-means++ from a PCG source keyed on seed, so equal
// input and seed always give equal labels. It stops after maxIter rounds or
// when no label changes.
func kmeans(vecs [][]float64, k int, seed uint64, maxIter int) []int {
	n := len(vecs)
	labels := make([]int, n)
	if n == 0 || k <= 1 {
		return labels
	}
	k = min(k, n)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	centroids := seedCentroids(vecs, k, rng)

	for i := range labels {
		labels[i] = -1
	}
	for range max(maxIter, 1) {
		changed := false
		for i, v := range vecs {
			best := nearest(v, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		centroids = recompute(vecs, labels, centroids)
	}
	return labels
}

// seedCentroids picks k starting centroids with k-means++: each next centroid is
// drawn with probability proportional to its squared distance from the closest one.
func seedCentroids(vecs [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(vecs[rng.IntN(len(vecs))]))

	dist := make([]float64, len(vecs))
	for len(centroids) < k {
		var total float64
		for i, v := range vecs {
			dist[i] = sqDist(v, centroids[nearest(v, centroids)])
			total += dist[i]
		}

		next := rng.IntN(len(vecs))
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, clone(vecs[next]))
	}
	return centroids
}

// nearest returns the index of the closest centroid; the lowest index wins ties.
func nearest(v []float64, centroids [][]float64) int {
	best, bestDist := 0, sqDist(v, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := sqDist(v, centroids[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// recompute moves each centroid to the mean of its members. A centroid that
// lost all members stays where it was.
func recompute(vecs [][]float64, labels []int, prev [][]float64) [][]float64 {
	dim := len(vecs[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, v := range vecs {
		c := labels[i]
		counts[c]++
		for d, x := range v {
			sums[c][d] += x
		}
	}
	for c := range sums {
		if counts[c] == 0 {
			sums[c] = prev[c]
			continue
		}
		for d := range sums[c] {
			sums[c][d] /= float64(counts[c])
		}
	}
	return sums
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
