// Package trajectory recognizes spatial gestures by tracking hand centroid
// paths and matching them against templates with Dynamic Time Warping.
package trajectory

import (
	"math"
)

// Point is one 2D sample of a hand path in normalized frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultBandWidth is the half-width of the Sakoe-Chiba band used for
// template matching. With 32-point paths it keeps the optimal alignment of
// every built-in template inside the band.
const DefaultBandWidth = 10

// pointDistance calculates the Euclidean distance between two path points.
func pointDistance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// DTWDistance calculates the unconstrained Dynamic Time Warping distance
// between two paths, averaged over n+m steps. Returns infinity if either
// path is empty.
func DTWDistance(path1, path2 []Point) float64 {
	return dtw(path1, path2, len(path1)+len(path2))
}

// BandedDTWDistance calculates DTW restricted to a Sakoe-Chiba diagonal
// band of the given half-width, bounding cost-matrix evaluation to O(n·w).
// When the optimal alignment lies inside the band the result equals the
// unconstrained distance.
func BandedDTWDistance(path1, path2 []Point, window int) float64 {
	return dtw(path1, path2, window)
}

func dtw(path1, path2 []Point, window int) float64 {
	n := len(path1)
	m := len(path2)

	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// (n+1) x (m+1) cost matrix initialized to infinity
	cost := make([][]float64, n+1)
	for i := range cost {
		cost[i] = make([]float64, m+1)
		for j := range cost[i] {
			cost[i][j] = math.Inf(1)
		}
	}
	cost[0][0] = 0

	for i := 1; i <= n; i++ {
		jStart := 1
		jEnd := m
		if window < n+m {
			if s := i - window; s > jStart {
				jStart = s
			}
			if e := i + window; e < jEnd {
				jEnd = e
			}
		}
		for j := jStart; j <= jEnd; j++ {
			d := pointDistance(path1[i-1], path2[j-1])
			cost[i][j] = d + min3(cost[i-1][j], cost[i][j-1], cost[i-1][j-1])
		}
	}

	// Average per-step cost so path length does not dominate the score.
	return cost[n][m] / float64(n+m)
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

// ScoreFromDistance maps a DTW distance to a monotonically decreasing
// match score in [0, 1].
func ScoreFromDistance(dist float64) float64 {
	if math.IsInf(dist, 1) {
		return 0
	}
	return math.Max(0, 1.0-dist*2.0)
}
