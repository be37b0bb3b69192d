// Package embedding turns text into vectors through pluggable providers.
package embedding

import (
	"context"
	"math"
)

// Provider converts a batch of texts into embedding vectors, one per text, in input order.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	ModelName() string
}

// Normalize returns v scaled to unit length. A zero vector is returned unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	out := make([]float64, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Dot returns the dot product of a and b over their common length
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
