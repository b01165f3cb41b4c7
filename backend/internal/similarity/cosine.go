// Package similarity holds the vector math shared by the scorers and the graph store.
package similarity

import "math"

// Cosine computes the cosine similarity between two vectors.
// Returns 0 for zero-norm vectors, empty vectors, or mismatched lengths.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / math.Sqrt(normA*normB)
	// Rounding can push identical vectors a hair past 1
	return math.Max(-1, math.Min(1, sim))
}

// IsZero reports whether every component of v is zero
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Mean returns the arithmetic mean of xs, or 0 when xs is empty
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Max returns the largest element of xs, or 0 when xs is empty
func Max(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
