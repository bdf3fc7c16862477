// Package vectormath holds the handful of vector operations shared by the
// embedders (NormalizeL2) and the searcher's ranking path (Dot).
package vectormath

import (
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when two vectors being compared have
// different dimensions.
var ErrLengthMismatch = fmt.Errorf("vectormath: vector length mismatch")

// Dot computes the dot product of two equal-length vectors. For unit
// vectors this is their cosine similarity.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// NormalizeL2 returns a copy of v scaled to unit L2 norm. A zero vector is
// returned unchanged to avoid division by zero.
func NormalizeL2(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
