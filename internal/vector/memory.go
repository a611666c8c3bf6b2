package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an exact brute-force similarity index. It backs runs
// without a Qdrant endpoint and the test suite. Vectors are expected to be
// L2-normalized so the inner product equals cosine similarity.
type MemoryIndex struct {
	mu     sync.RWMutex
	dim    int
	points map[uint64][]float32
}

// NewMemory creates an empty in-memory index.
func NewMemory() *MemoryIndex {
	return &MemoryIndex{points: make(map[uint64][]float32)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, pts []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pts {
		if m.dim == 0 {
			m.dim = len(p.Vector)
		}
		if len(p.Vector) != m.dim {
			return fmt.Errorf("point %d: dimension %d, index has %d", p.ID, len(p.Vector), m.dim)
		}
		v := make([]float32, len(p.Vector))
		copy(v, p.Vector)
		m.points[p.ID] = v
	}
	return nil
}

func (m *MemoryIndex) RangeSearch(ctx context.Context, vec []float32, radius float32) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dim != 0 && len(vec) != m.dim {
		return nil, fmt.Errorf("query dimension %d, index has %d", len(vec), m.dim)
	}

	var neighbors []Neighbor
	for id, v := range m.points {
		if score := Dot(vec, v); score >= radius {
			neighbors = append(neighbors, Neighbor{ID: id, Score: score})
		}
	}
	// Descending score, then ascending ID for reproducible output.
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].ID < neighbors[j].ID
	})
	return neighbors, nil
}

// Len returns the number of stored points.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func (m *MemoryIndex) Close() error { return nil }

var _ Index = (*MemoryIndex)(nil)
