package dedup

import "sort"

// Graph is the undirected duplicate graph over embedding IDs. Adjacency is
// symmetric by construction and self-loops are never stored. Each edge keeps
// the best similarity score observed for the pair.
type Graph struct {
	adj map[uint64]map[uint64]float32
}

// NewGraph creates an empty duplicate graph.
func NewGraph() *Graph {
	return &Graph{adj: make(map[uint64]map[uint64]float32)}
}

// AddNode registers an ID with no edges. IDs with no neighbors still form
// singleton groups, so every queried ID must be added.
func (g *Graph) AddNode(id uint64) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = nil
	}
}

// AddEdge links a and b in both directions. Self-matches are discarded:
// range search includes the query point itself, which is not a duplicate
// relation. When the same pair is observed twice the higher score wins.
func (g *Graph) AddEdge(a, b uint64, score float32) {
	if a == b {
		return
	}
	g.addHalf(a, b, score)
	g.addHalf(b, a, score)
}

func (g *Graph) addHalf(from, to uint64, score float32) {
	m := g.adj[from]
	if m == nil {
		m = make(map[uint64]float32)
		g.adj[from] = m
	}
	if old, ok := m[to]; !ok || score > old {
		m[to] = score
	}
}

// Merge folds another graph into g. Used to combine per-worker partial
// graphs after parallel neighbor retrieval.
func (g *Graph) Merge(other *Graph) {
	for id, neighbors := range other.adj {
		g.AddNode(id)
		for to, score := range neighbors {
			g.addHalf(id, to, score)
		}
	}
}

// Neighbors returns the IDs directly linked to id, ascending.
func (g *Graph) Neighbors(id uint64) []uint64 {
	m := g.adj[id]
	if len(m) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(m))
	for to := range m {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Similarity returns the stored score for the edge a-b.
func (g *Graph) Similarity(a, b uint64) (float32, bool) {
	score, ok := g.adj[a][b]
	return score, ok
}

// Nodes returns every registered ID, ascending.
func (g *Graph) Nodes() []uint64 {
	out := make([]uint64, 0, len(g.adj))
	for id := range g.adj {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NodeCount returns the number of registered IDs.
func (g *Graph) NodeCount() int { return len(g.adj) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, m := range g.adj {
		total += len(m)
	}
	return total / 2
}

// Edge is one undirected edge with A < B, used for serialization between
// pipeline activities.
type Edge struct {
	A     uint64  `json:"a"`
	B     uint64  `json:"b"`
	Score float32 `json:"score"`
}

// Edges lists each edge once, ordered by (A, B).
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for from, m := range g.adj {
		for to, score := range m {
			if from < to {
				edges = append(edges, Edge{A: from, B: to, Score: score})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// FromParts rebuilds a graph from serialized nodes and edges.
func FromParts(nodes []uint64, edges []Edge) *Graph {
	g := NewGraph()
	for _, id := range nodes {
		g.AddNode(id)
	}
	for _, e := range edges {
		g.AddEdge(e.A, e.B, e.Score)
	}
	return g
}
