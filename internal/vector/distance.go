package vector

import "math"

// SquaredL2 returns the squared Euclidean distance between a and b, accumulated in float64.
// Both slices must have the same length.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// L2 returns the Euclidean distance between a and b.
func L2(a, b []float32) float64 {
	return math.Sqrt(SquaredL2(a, b))
}

// lessNeighbor orders by distance, then by position so equal distances are deterministic.
func lessNeighbor(da float64, pa int, db float64, pb int) bool {
	if da != db {
		return da < db
	}
	return pa < pb
}
