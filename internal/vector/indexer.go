package vector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Indexer normalizes embeddings and loads them into an index.
type Indexer struct {
	index Index
}

// NewIndexer creates an Indexer.
func NewIndexer(index Index) *Indexer {
	return &Indexer{index: index}
}

// IndexEmbeddings L2-normalizes the given points and upserts them. Vectors
// are normalized in place, matching the query-side convention. All points
// must share one dimension.
func (ix *Indexer) IndexEmbeddings(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	dim := len(points[0].Vector)
	for _, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("embedding %d: dimension %d, expected %d", p.ID, len(p.Vector), dim)
		}
		NormalizeL2(p.Vector)
	}
	if err := ix.index.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert embeddings: %w", err)
	}
	return nil
}

// embeddingLine is one line of an embeddings JSONL file.
type embeddingLine struct {
	EmbeddingID uint64    `json:"faiss_id"`
	Vector      []float32 `json:"vector"`
}

// LoadEmbeddings reads an embeddings JSONL file, one point per line.
func LoadEmbeddings(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embeddings: %w", err)
	}
	defer f.Close()

	var points []Point
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var e embeddingLine
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("embeddings line %d: %w", line, err)
		}
		if len(e.Vector) == 0 {
			return nil, fmt.Errorf("embeddings line %d: empty vector", line)
		}
		points = append(points, Point{ID: e.EmbeddingID, Vector: e.Vector})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}
	return points, nil
}
