package dedup

import (
	"reflect"
	"testing"
)

func TestGraph_EdgeSymmetry(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2, 0.95)

	if got := g.Neighbors(1); !reflect.DeepEqual(got, []uint64{2}) {
		t.Errorf("Neighbors(1) = %v, want [2]", got)
	}
	if got := g.Neighbors(2); !reflect.DeepEqual(got, []uint64{1}) {
		t.Errorf("Neighbors(2) = %v, want [1]", got)
	}

	fwd, ok1 := g.Similarity(1, 2)
	rev, ok2 := g.Similarity(2, 1)
	if !ok1 || !ok2 || fwd != rev {
		t.Errorf("similarity not symmetric: %v/%v %v/%v", fwd, ok1, rev, ok2)
	}
}

func TestGraph_SelfLoopDiscarded(t *testing.T) {
	g := NewGraph()
	g.AddEdge(5, 5, 1.0)

	if g.Neighbors(5) != nil {
		t.Errorf("self-loop stored: neighbors = %v", g.Neighbors(5))
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount = %d, want 0", g.EdgeCount())
	}
}

func TestGraph_KeepsBestScore(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2, 0.91)
	g.AddEdge(2, 1, 0.97)
	g.AddEdge(1, 2, 0.93)

	score, ok := g.Similarity(1, 2)
	if !ok || score != 0.97 {
		t.Errorf("Similarity(1,2) = %v/%v, want 0.97", score, ok)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
}

func TestGraph_AddNodeSingleton(t *testing.T) {
	g := NewGraph()
	g.AddNode(7)
	g.AddNode(7)

	if g.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", g.NodeCount())
	}
	if g.Neighbors(7) != nil {
		t.Errorf("Neighbors(7) = %v, want nil", g.Neighbors(7))
	}

	// Adding the node again must not wipe existing edges.
	g.AddEdge(7, 8, 0.9)
	g.AddNode(7)
	if got := g.Neighbors(7); !reflect.DeepEqual(got, []uint64{8}) {
		t.Errorf("Neighbors(7) after re-add = %v, want [8]", got)
	}
}

func TestGraph_Merge(t *testing.T) {
	a := NewGraph()
	a.AddEdge(1, 2, 0.90)
	a.AddNode(10)

	b := NewGraph()
	b.AddEdge(1, 2, 0.95)
	b.AddEdge(2, 3, 0.92)

	a.Merge(b)

	if got := a.Nodes(); !reflect.DeepEqual(got, []uint64{1, 2, 3, 10}) {
		t.Errorf("Nodes = %v, want [1 2 3 10]", got)
	}
	if score, _ := a.Similarity(1, 2); score != 0.95 {
		t.Errorf("merged Similarity(1,2) = %v, want 0.95", score)
	}
	if a.EdgeCount() != 2 {
		t.Errorf("EdgeCount = %d, want 2", a.EdgeCount())
	}
}

func TestGraph_EdgesRoundTrip(t *testing.T) {
	g := NewGraph()
	g.AddEdge(3, 1, 0.9)
	g.AddEdge(1, 2, 0.8)
	g.AddNode(9)

	edges := g.Edges()
	want := []Edge{{A: 1, B: 2, Score: 0.8}, {A: 1, B: 3, Score: 0.9}}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("Edges = %v, want %v", edges, want)
	}

	rebuilt := FromParts(g.Nodes(), edges)
	if !reflect.DeepEqual(rebuilt.Nodes(), g.Nodes()) {
		t.Errorf("rebuilt nodes = %v, want %v", rebuilt.Nodes(), g.Nodes())
	}
	if !reflect.DeepEqual(rebuilt.Edges(), edges) {
		t.Errorf("rebuilt edges = %v, want %v", rebuilt.Edges(), edges)
	}
}
