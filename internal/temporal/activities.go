package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/DeanIA/deduplication-faiss/internal/catalog"
	"github.com/DeanIA/deduplication-faiss/internal/config"
	"github.com/DeanIA/deduplication-faiss/internal/dedup"
	"github.com/DeanIA/deduplication-faiss/internal/vector"
)

// ActivityResult is the serializable result passed between activities.
type ActivityResult struct {
	NodesJSON  string
	EdgesJSON  string
	GroupsJSON string
	Points     int
	Errors     []string
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Cfg *config.Config

	// Shared in-memory index for the "memory" backend; Qdrant-backed runs
	// open a connection per activity instead.
	Memory *vector.MemoryIndex
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	if d.Cfg.Vector.Backend != "qdrant" && d.Memory == nil {
		d.Memory = vector.NewMemory()
	}
	deps = d
}

// openIndex returns the configured index plus a close function. The shared
// memory index must survive across activities, so its close is a no-op here.
func openIndex(ctx context.Context) (vector.Index, func(), error) {
	if deps.Cfg.Vector.Backend == "qdrant" {
		v := deps.Cfg.Vector
		idx, err := vector.NewQdrant(ctx, v.Host, v.Port, v.Collection, v.SearchLimit)
		if err != nil {
			return nil, nil, err
		}
		return idx, func() { idx.Close() }, nil
	}
	return deps.Memory, func() {}, nil
}

func IndexActivity(ctx context.Context, input DedupInput) (ActivityResult, error) {
	points, err := vector.LoadEmbeddings(input.EmbeddingsPath)
	if err != nil {
		return ActivityResult{}, err
	}

	idx, closeIdx, err := openIndex(ctx)
	if err != nil {
		return ActivityResult{}, err
	}
	defer closeIdx()

	if err := vector.NewIndexer(idx).IndexEmbeddings(ctx, points); err != nil {
		return ActivityResult{}, err
	}
	return ActivityResult{Points: len(points)}, nil
}

func RetrieveActivity(ctx context.Context, input DedupInput, chunk, totalChunks int) (ActivityResult, error) {
	// Revalidate here: activities can be invoked by workflows other than
	// DedupWorkflow, and a bad radius silently miscounts neighbors.
	opts := input.Options()
	if err := opts.Validate(); err != nil {
		return ActivityResult{}, err
	}

	points, err := vector.LoadEmbeddings(input.EmbeddingsPath)
	if err != nil {
		return ActivityResult{}, err
	}
	for _, p := range points {
		vector.NormalizeL2(p.Vector)
	}

	size := (len(points) + totalChunks - 1) / totalChunks
	lo, hi := chunk*size, (chunk+1)*size
	if lo > len(points) {
		lo = len(points)
	}
	if hi > len(points) {
		hi = len(points)
	}

	idx, closeIdx, err := openIndex(ctx)
	if err != nil {
		return ActivityResult{}, err
	}
	defer closeIdx()

	var cat *catalog.Catalog
	if len(opts.MediaRadius) > 0 {
		cat, err = catalog.Load(input.DescriptionsPath)
		if err != nil {
			return ActivityResult{}, err
		}
	}
	g, err := dedup.BuildGraphRadii(ctx, idx, points[lo:hi], opts.RadiusFor(cat), opts.Workers)
	if err != nil {
		return ActivityResult{}, err
	}
	return marshalGraph(g)
}

func marshalGraph(g *dedup.Graph) (ActivityResult, error) {
	nodesJSON, err := json.Marshal(g.Nodes())
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(g.Edges())
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal edges: %w", err)
	}
	return ActivityResult{
		NodesJSON: string(nodesJSON),
		EdgesJSON: string(edgesJSON),
	}, nil
}

func unmarshalGraph(r ActivityResult) (*dedup.Graph, error) {
	var nodes []uint64
	if err := json.Unmarshal([]byte(r.NodesJSON), &nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	var edges []dedup.Edge
	if err := json.Unmarshal([]byte(r.EdgesJSON), &edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	return dedup.FromParts(nodes, edges), nil
}

func GroupActivity(ctx context.Context, input DedupInput, partials []ActivityResult) (ActivityResult, error) {
	merged := dedup.NewGraph()
	for i, partial := range partials {
		g, err := unmarshalGraph(partial)
		if err != nil {
			return ActivityResult{}, fmt.Errorf("partial %d: %w", i, err)
		}
		merged.Merge(g)
	}

	groups, err := dedup.Components(merged)
	if err != nil {
		return ActivityResult{}, err
	}

	result, err := marshalGraph(merged)
	if err != nil {
		return ActivityResult{}, err
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal groups: %w", err)
	}
	result.GroupsJSON = string(groupsJSON)
	return result, nil
}

func EmitActivity(ctx context.Context, input DedupInput, groupResult ActivityResult) (DedupOutput, error) {
	cat, err := catalog.Load(input.DescriptionsPath)
	if err != nil {
		return DedupOutput{}, err
	}
	g, err := unmarshalGraph(groupResult)
	if err != nil {
		return DedupOutput{}, err
	}
	var groups [][]uint64
	if err := json.Unmarshal([]byte(groupResult.GroupsJSON), &groups); err != nil {
		return DedupOutput{}, fmt.Errorf("unmarshal groups: %w", err)
	}

	opts := input.Options()
	if err := opts.Validate(); err != nil {
		return DedupOutput{}, err
	}
	records, err := dedup.BuildRecords(groups, g, cat, opts.Ranker(), opts.RetainSingletons)
	if err != nil {
		return DedupOutput{}, err
	}
	pairs := dedup.BuildFilePairs(groups, cat)

	if err := writeJSONL(input.GroupsPath, func(f *os.File) error {
		return dedup.WriteGroupsJSONL(f, records)
	}); err != nil {
		return DedupOutput{}, err
	}
	if input.PairsPath != "" {
		if err := writeJSONL(input.PairsPath, func(f *os.File) error {
			return dedup.WritePairsJSONL(f, pairs)
		}); err != nil {
			return DedupOutput{}, err
		}
	}

	output := DedupOutput{
		GroupsPath: input.GroupsPath,
		PairsPath:  input.PairsPath,
		Edges:      g.EdgeCount(),
		Groups:     len(groups),
		FilePairs:  len(pairs),
	}
	for _, group := range groups {
		if len(group) == 1 {
			output.Singletons++
		} else {
			output.NonTrivial++
		}
	}

	if input.MarkDuplicates {
		updates := dedup.DuplicateFlagUpdates(records)
		if _, err := catalog.UpdateDuplicateFlags(input.DescriptionsPath, updates); err != nil {
			return DedupOutput{}, err
		}
		for _, dup := range updates {
			if dup {
				output.Flagged++
			}
		}
	}
	return output, nil
}

func writeJSONL(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
