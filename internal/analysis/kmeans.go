package analysis

import (
	"math"

	"whale-index-lab/internal/stats"
)

type kmeansResult struct {
	assign     []int
	centroids  [][]float64
	iterations int
	converged  bool
}

// kmeans runs Lloyd's algorithm with deterministic farthest-point seeding.
// Assignment ties go to the lowest cluster index; an empty cluster keeps
// its previous centroid. Stops when assignments are stable or after
// maxIter assignment passes.
func kmeans(points [][]float64, k, maxIter int) kmeansResult {
	n := len(points)
	res := kmeansResult{assign: make([]int, n)}
	if n == 0 || k < 1 {
		res.converged = true
		return res
	}
	if k > n {
		k = n
	}

	res.centroids = seed(points, k)
	for i := range res.assign {
		res.assign[i] = -1
	}

	dim := len(points[0])
	for it := 1; it <= maxIter; it++ {
		res.iterations = it
		changed := false
		for i, p := range points {
			c := nearest(p, res.centroids)
			if c != res.assign[i] {
				res.assign[i] = c
				changed = true
			}
		}
		if !changed {
			res.converged = true
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := res.assign[i]
			counts[c]++
			for j, v := range p {
				sums[c][j] += v
			}
		}
		for c := range sums {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				sums[c][j] /= float64(counts[c])
			}
			res.centroids[c] = sums[c]
		}
	}
	return res
}

// seed picks the point nearest the overall mean, then repeatedly the point
// farthest from its nearest chosen seed. Ties go to the lowest index.
func seed(points [][]float64, k int) [][]float64 {
	dim := len(points[0])
	mean := make([]float64, dim)
	for _, p := range points {
		for j, v := range p {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(points))
	}

	first, bestDist := 0, math.Inf(1)
	for i, p := range points {
		if d := sqDist(p, mean); d < bestDist {
			first, bestDist = i, d
		}
	}

	seeds := [][]float64{clonePoint(points[first])}
	minDist := make([]float64, len(points))
	for i, p := range points {
		minDist[i] = sqDist(p, seeds[0])
	}
	for len(seeds) < k {
		far, farDist := 0, -1.0
		for i, d := range minDist {
			if d > farDist {
				far, farDist = i, d
			}
		}
		next := clonePoint(points[far])
		seeds = append(seeds, next)
		for i, p := range points {
			if d := sqDist(p, next); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return seeds
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func clonePoint(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}

// standardize z-scores each column with the population standard deviation.
// Columns without variance become 0.
func standardize(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	dim := len(rows[0])
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, dim)
	}
	col := make([]float64, len(rows))
	for j := 0; j < dim; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		mean := stats.Mean(col)
		sd := stats.PopulationStdDev(col)
		if sd == 0 {
			continue
		}
		for i, r := range rows {
			out[i][j] = (r[j] - mean) / sd
		}
	}
	return out
}
