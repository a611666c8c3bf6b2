package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/DeanIA/deduplication-faiss/internal/dedup"
)

const defaultChunks = 4

// DedupInput holds the workflow parameters.
type DedupInput struct {
	DescriptionsPath string
	EmbeddingsPath   string
	GroupsPath       string
	PairsPath        string

	Radius           float32
	QualityWeight    float64
	SizeWeight       float64
	RetainSingletons bool
	TieBreak         string
	Workers          int

	// Per-media-type radius overrides ("video", "image").
	MediaRadius map[string]float32

	// Number of parallel retrieval activities (default 4)
	Chunks int
	// Whether to rewrite duplicate flags in the descriptions file
	MarkDuplicates bool
}

// Options derives the grouping options carried by the input.
func (in DedupInput) Options() dedup.Options {
	return dedup.Options{
		Radius:           in.Radius,
		Weights:          dedup.Weights{Quality: in.QualityWeight, Size: in.SizeWeight},
		RetainSingletons: in.RetainSingletons,
		TieBreak:         in.TieBreak,
		Workers:          in.Workers,
		MediaRadius:      in.MediaRadius,
	}
}

// DedupOutput holds the workflow result.
type DedupOutput struct {
	GroupsPath string
	PairsPath  string

	Points     int
	Edges      int
	Groups     int
	NonTrivial int
	Singletons int
	FilePairs  int
	Flagged    int
	Errors     []string
}

// DedupWorkflow orchestrates the grouping pipeline: index the embeddings,
// retrieve neighbors in parallel chunks, merge and group, then emit outputs.
func DedupWorkflow(ctx workflow.Context, input DedupInput) (*DedupOutput, error) {
	// Malformed options must fail the workflow before any activity runs.
	if err := input.Options().Validate(); err != nil {
		return nil, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Step 1: load and index the embeddings
	var indexResult ActivityResult
	if err := workflow.ExecuteActivity(ctx, IndexActivity, input).Get(ctx, &indexResult); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	// Step 2: fan out neighbor retrieval over disjoint chunks
	chunks := input.Chunks
	if chunks <= 0 {
		chunks = defaultChunks
	}
	if chunks > indexResult.Points && indexResult.Points > 0 {
		chunks = indexResult.Points
	}

	futures := make([]workflow.Future, chunks)
	for i := 0; i < chunks; i++ {
		futures[i] = workflow.ExecuteActivity(ctx, RetrieveActivity, input, i, chunks)
	}
	partials := make([]ActivityResult, chunks)
	for i, f := range futures {
		if err := f.Get(ctx, &partials[i]); err != nil {
			return nil, fmt.Errorf("retrieve chunk %d: %w", i, err)
		}
	}

	// Step 3: merge partial graphs and compute connected components
	var groupResult ActivityResult
	if err := workflow.ExecuteActivity(ctx, GroupActivity, input, partials).Get(ctx, &groupResult); err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}

	// Step 4: canonical selection and output emission
	var output DedupOutput
	if err := workflow.ExecuteActivity(ctx, EmitActivity, input, groupResult).Get(ctx, &output); err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	output.Points = indexResult.Points

	return &output, nil
}
