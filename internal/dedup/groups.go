package dedup

import (
	"fmt"
	"sort"
)

// Components partitions the graph's ID set into connected components via
// iterative depth-first traversal. Two IDs land in the same group iff a path
// of edges connects them, so transitive duplicates group together even
// without a direct edge.
//
// IDs within a group are sorted ascending and groups are ordered by their
// minimum ID, making the output reproducible. Runs in O(IDs + edges).
//
// A self-loop should be impossible if edges were added through AddEdge; one
// surviving into the adjacency indicates a builder bug and is rejected
// rather than propagated into nonsensical groups.
func Components(g *Graph) ([][]uint64, error) {
	visited := make(map[uint64]bool, len(g.adj))
	var groups [][]uint64

	for _, start := range g.Nodes() {
		if visited[start] {
			continue
		}
		var group []uint64
		stack := []uint64{start}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			group = append(group, cur)
			for next := range g.adj[cur] {
				if next == cur {
					return nil, fmt.Errorf("self-loop on %d: %w", cur, ErrInconsistentGraph)
				}
				if !visited[next] {
					stack = append(stack, next)
				}
			}
		}
		sort.Slice(group, func(i, j int) bool { return group[i] < group[j] })
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups, nil
}
