// Package dedup groups near-duplicate media embeddings into transitive
// duplicate groups and picks a canonical representative per group.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DeanIA/deduplication-faiss/internal/catalog"
	"github.com/DeanIA/deduplication-faiss/internal/observability"
	"github.com/DeanIA/deduplication-faiss/internal/vector"
)

// TieBreakByID is the only supported tie-break policy.
const TieBreakByID = "by_id"

// Options configure a grouping run.
type Options struct {
	// Radius is the similarity threshold in (0,1]. High values (0.9999)
	// target near-exact duplicates, lower values (0.99) broader similar
	// content. One knob, not separate code paths.
	Radius float32

	Weights          Weights
	RetainSingletons bool
	TieBreak         string // "by_id" or empty
	Workers          int    // 0 means GOMAXPROCS

	// MediaRadius overrides Radius per media type ("video", "image").
	// Types without an entry use Radius.
	MediaRadius map[string]float32
}

// Validate fails fast on malformed options, before any retrieval begins.
func (o Options) Validate() error {
	r := float64(o.Radius)
	if math.IsNaN(r) || r <= 0 || r > 1 {
		return fmt.Errorf("radius %v not in (0,1]: %w", o.Radius, ErrConfig)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"quality_weight", o.Weights.Quality},
		{"size_weight", o.Weights.Size},
	} {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) || w.value < 0 {
			return fmt.Errorf("%s %v must be finite and non-negative: %w", w.name, w.value, ErrConfig)
		}
	}
	for mt, mr := range o.MediaRadius {
		v := float64(mr)
		if math.IsNaN(v) || v <= 0 || v > 1 {
			return fmt.Errorf("radius %v for media type %q not in (0,1]: %w", mr, mt, ErrConfig)
		}
	}
	if o.TieBreak != "" && o.TieBreak != TieBreakByID {
		return fmt.Errorf("tie_break %q not supported: %w", o.TieBreak, ErrConfig)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers %d must be non-negative: %w", o.Workers, ErrConfig)
	}
	return nil
}

// Ranker returns the comparator implied by the options. Unset weights fall
// back to DefaultWeights.
func (o Options) Ranker() Ranker {
	w := o.Weights
	if w == (Weights{}) {
		w = DefaultWeights
	}
	return RankByScore(w)
}

// RunStats summarizes one grouping run.
type RunStats struct {
	Points           int
	Edges            int
	Groups           int
	NonTrivialGroups int
	Singletons       int
	LargestGroup     int
	RetrieveDuration time.Duration
	GroupDuration    time.Duration
}

// Result holds everything a run produced. Owned by the run; nothing here is
// shared or cached across runs.
type Result struct {
	Graph   *Graph
	Groups  [][]uint64
	Records []GroupRecord
	Pairs   []FilePairRecord
	Stats   RunStats
}

// Runner executes the full grouping pipeline against one catalog and index.
type Runner struct {
	Catalog *catalog.Catalog
	Index   vector.Index
	Opts    Options
	Logger  *slog.Logger
}

// RadiusFunc returns the similarity threshold for one query point.
type RadiusFunc func(p vector.Point) float32

// RadiusFor returns the per-point radius implied by the options: the
// media-type override where the catalog knows the point, the base radius
// everywhere else.
func (o Options) RadiusFor(cat *catalog.Catalog) RadiusFunc {
	if len(o.MediaRadius) == 0 || cat == nil {
		return func(vector.Point) float32 { return o.Radius }
	}
	return func(p vector.Point) float32 {
		if item, err := cat.Get(p.ID); err == nil {
			if r, ok := o.MediaRadius[item.MediaType]; ok {
				return r
			}
		}
		return o.Radius
	}
}

// BuildGraph queries the index at one fixed radius for every point and
// assembles the symmetric duplicate graph.
func BuildGraph(ctx context.Context, index vector.Index, points []vector.Point, radius float32, workers int) (*Graph, error) {
	return BuildGraphRadii(ctx, index, points, func(vector.Point) float32 { return radius }, workers)
}

// BuildGraphRadii is BuildGraph with a per-point radius, used for
// per-media-type thresholds. Retrieval for disjoint point chunks runs in
// parallel; each worker fills a private partial graph and partials are
// merged serially afterwards, so the shared adjacency sees no concurrent
// writes.
func BuildGraphRadii(ctx context.Context, index vector.Index, points []vector.Point, radiusFor RadiusFunc, workers int) (*Graph, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(points) {
		workers = len(points)
	}
	if workers == 0 {
		return NewGraph(), nil
	}

	partials := make([]*Graph, workers)
	chunk := (len(points) + workers - 1) / workers

	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		lo, hi := w*chunk, (w+1)*chunk
		if hi > len(points) {
			hi = len(points)
		}
		eg.Go(func() error {
			g := NewGraph()
			for _, p := range points[lo:hi] {
				radius := radiusFor(p)
				qctx, qspan := observability.StartRangeQuerySpan(ctx, p.ID, radius)
				start := time.Now()
				neighbors, err := index.RangeSearch(qctx, p.Vector, radius)
				observability.Metrics().RecordRangeQuery(time.Since(start), len(neighbors), err)
				if err != nil {
					observability.RecordError(qspan, err)
					qspan.End()
					return fmt.Errorf("range query %d: %w", p.ID, err)
				}
				qspan.End()
				g.AddNode(p.ID)
				for _, n := range neighbors {
					// Range search includes the query point; drop it.
					if n.ID == p.ID {
						continue
					}
					g.AddEdge(p.ID, n.ID, n.Score)
				}
			}
			partials[w] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := NewGraph()
	for _, g := range partials {
		merged.Merge(g)
	}
	return merged, nil
}

// Run executes retrieval, grouping, canonical selection and record building
// as one all-or-nothing batch. Any error is terminal for the run.
func (r *Runner) Run(ctx context.Context, points []vector.Point) (*Result, error) {
	if err := r.Opts.Validate(); err != nil {
		return nil, err
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runStart := time.Now()

	ctx, span := observability.StartStageSpan(ctx, "retrieve")
	retrieveStart := time.Now()
	graph, err := BuildGraphRadii(ctx, r.Index, points, r.Opts.RadiusFor(r.Catalog), r.Opts.Workers)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		observability.Metrics().RecordRun(time.Since(runStart), err)
		return nil, err
	}
	retrieveDur := time.Since(retrieveStart)
	span.End()
	logger.Info("duplicate graph built",
		"points", len(points),
		"nodes", graph.NodeCount(),
		"edges", graph.EdgeCount(),
		"radius", r.Opts.Radius,
	)

	// Every ID the retriever surfaced must resolve in the catalog; an edge
	// to an unknown ID means the index and catalog disagree.
	for _, id := range graph.Nodes() {
		if !r.Catalog.Has(id) {
			err := fmt.Errorf("edge references embedding %d absent from catalog: %w", id, ErrInconsistentGraph)
			observability.Metrics().RecordRun(time.Since(runStart), err)
			return nil, err
		}
	}

	ctx, span = observability.StartStageSpan(ctx, "group")
	groupStart := time.Now()
	groups, err := Components(graph)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		observability.Metrics().RecordRun(time.Since(runStart), err)
		return nil, err
	}
	groupDur := time.Since(groupStart)

	stats := RunStats{
		Points:           len(points),
		Edges:            graph.EdgeCount(),
		Groups:           len(groups),
		RetrieveDuration: retrieveDur,
		GroupDuration:    groupDur,
	}
	for _, g := range groups {
		if len(g) == 1 {
			stats.Singletons++
		} else {
			stats.NonTrivialGroups++
		}
		if len(g) > stats.LargestGroup {
			stats.LargestGroup = len(g)
		}
	}
	observability.RecordGroupingResult(span, stats.Groups, stats.Edges, stats.Singletons)
	span.End()

	_, span = observability.StartStageSpan(ctx, "select")
	records, err := BuildRecords(groups, graph, r.Catalog, r.Opts.Ranker(), r.Opts.RetainSingletons)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		observability.Metrics().RecordRun(time.Since(runStart), err)
		return nil, err
	}
	for _, rec := range records {
		observability.RecordCanonicalChoice(span, rec.GroupID, rec.Canonical.EmbeddingID, len(rec.Duplicates))
	}
	pairs := BuildFilePairs(groups, r.Catalog)
	span.End()

	observability.Metrics().RecordGrouping(stats.Edges, stats.Groups, stats.Singletons)
	observability.Metrics().RecordRun(time.Since(runStart), nil)
	logger.Info("grouping complete",
		"groups", stats.Groups,
		"non_trivial", stats.NonTrivialGroups,
		"singletons", stats.Singletons,
		"largest", stats.LargestGroup,
	)

	return &Result{
		Graph:   graph,
		Groups:  groups,
		Records: records,
		Pairs:   pairs,
		Stats:   stats,
	}, nil
}
