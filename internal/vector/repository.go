// Package vector provides embedding storage and range similarity search.
package vector

import (
	"context"
	"math"
)

// Point is one embedding stored in the similarity index.
type Point struct {
	ID     uint64
	Vector []float32
}

// Neighbor is a single match from a range similarity search. Score is a
// cosine similarity in [0,1] for normalized vectors. The query point itself
// may appear in the result; callers filter self-matches.
type Neighbor struct {
	ID    uint64
	Score float32
}

// Index provides vector storage and range similarity search.
type Index interface {
	// Upsert inserts or updates points.
	Upsert(ctx context.Context, points []Point) error
	// RangeSearch finds all points with similarity >= radius to the query
	// vector, ordered by descending score.
	RangeSearch(ctx context.Context, vec []float32, radius float32) ([]Neighbor, error)
	// Close releases resources.
	Close() error
}

// NormalizeL2 scales v to unit length in place. Zero vectors are left as-is.
func NormalizeL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// Dot returns the inner product of two equal-length vectors. For unit
// vectors this is the cosine similarity.
func Dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
