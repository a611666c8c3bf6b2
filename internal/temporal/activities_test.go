package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/DeanIA/deduplication-faiss/internal/config"
	"github.com/DeanIA/deduplication-faiss/internal/dedup"
	"github.com/DeanIA/deduplication-faiss/internal/vector"
)

const testDescriptions = `{"file_id":100,"file_name":"a.mp4","media_type":"video","duration":10,"quality":{"variance":0.90},"clips":[{"faiss_id":1,"clip_idx":0}]}
{"file_id":101,"file_name":"b.mp4","media_type":"video","duration":10,"quality":{"variance":0.95},"clips":[{"faiss_id":2,"clip_idx":0}]}
{"file_id":102,"file_name":"c.mp4","media_type":"video","duration":10,"quality":{"variance":0.80},"clips":[{"faiss_id":3,"clip_idx":0}]}
`

const testEmbeddings = `{"faiss_id":1,"vector":[1,0]}
{"faiss_id":2,"vector":[1,0]}
{"faiss_id":3,"vector":[0,1]}
`

// setupPipeline writes test inputs and wires a fresh memory backend.
func setupPipeline(t *testing.T) DedupInput {
	t.Helper()
	dir := t.TempDir()
	descPath := filepath.Join(dir, "descriptions.jsonl")
	embPath := filepath.Join(dir, "embeddings.jsonl")
	if err := os.WriteFile(descPath, []byte(testDescriptions), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(embPath, []byte(testEmbeddings), 0o644); err != nil {
		t.Fatal(err)
	}

	SetDependencies(&Dependencies{
		Cfg:    &config.Config{Vector: config.VectorConfig{Backend: "memory"}},
		Memory: vector.NewMemory(),
	})

	return DedupInput{
		DescriptionsPath: descPath,
		EmbeddingsPath:   embPath,
		GroupsPath:       filepath.Join(dir, "groups.jsonl"),
		PairsPath:        filepath.Join(dir, "pairs.jsonl"),
		Radius:           0.99,
		QualityWeight:    1.0,
		SizeWeight:       0.25,
	}
}

func runPipeline(t *testing.T, input DedupInput, chunks int) DedupOutput {
	t.Helper()
	ctx := context.Background()

	indexResult, err := IndexActivity(ctx, input)
	if err != nil {
		t.Fatalf("IndexActivity: %v", err)
	}
	if indexResult.Points != 3 {
		t.Fatalf("indexed %d points, want 3", indexResult.Points)
	}

	partials := make([]ActivityResult, chunks)
	for i := 0; i < chunks; i++ {
		partials[i], err = RetrieveActivity(ctx, input, i, chunks)
		if err != nil {
			t.Fatalf("RetrieveActivity(%d/%d): %v", i, chunks, err)
		}
	}

	groupResult, err := GroupActivity(ctx, input, partials)
	if err != nil {
		t.Fatalf("GroupActivity: %v", err)
	}

	output, err := EmitActivity(ctx, input, groupResult)
	if err != nil {
		t.Fatalf("EmitActivity: %v", err)
	}
	return output
}

func TestActivities_EndToEnd(t *testing.T) {
	input := setupPipeline(t)
	output := runPipeline(t, input, 1)

	if output.Groups != 2 || output.NonTrivial != 1 || output.Singletons != 1 {
		t.Errorf("output = %+v", output)
	}
	if output.FilePairs != 1 {
		t.Errorf("file pairs = %d, want 1", output.FilePairs)
	}

	data, err := os.ReadFile(input.GroupsPath)
	if err != nil {
		t.Fatalf("read groups: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("groups lines = %d, want 1", len(lines))
	}
	var rec dedup.GroupRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("group record: %v", err)
	}
	// 2 has the higher quality
	if rec.Canonical.EmbeddingID != 2 {
		t.Errorf("canonical = %d, want 2", rec.Canonical.EmbeddingID)
	}
}

func TestActivities_ChunkedRetrievalMatchesSingle(t *testing.T) {
	input := setupPipeline(t)
	single := runPipeline(t, input, 1)

	input2 := setupPipeline(t)
	chunked := runPipeline(t, input2, 3)

	single.GroupsPath, chunked.GroupsPath = "", ""
	single.PairsPath, chunked.PairsPath = "", ""
	if !reflect.DeepEqual(single, chunked) {
		t.Errorf("chunked output %+v differs from single %+v", chunked, single)
	}
}

func TestEmitActivity_MarksDuplicates(t *testing.T) {
	input := setupPipeline(t)
	input.MarkDuplicates = true
	output := runPipeline(t, input, 1)

	if output.Flagged != 1 {
		t.Errorf("flagged = %d, want 1 (file 100 duplicates 101)", output.Flagged)
	}

	data, err := os.ReadFile(input.DescriptionsPath)
	if err != nil {
		t.Fatalf("read descriptions: %v", err)
	}
	flags := make(map[float64]any)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("entry: %v", err)
		}
		flags[entry["file_id"].(float64)] = entry["duplicate"]
	}
	if flags[100] != true {
		t.Errorf("file 100 duplicate flag = %v, want true", flags[100])
	}
	if flags[101] != false {
		t.Errorf("file 101 duplicate flag = %v, want false (canonical)", flags[101])
	}
	if flags[102] != nil {
		t.Errorf("file 102 duplicate flag = %v, want unset (singleton)", flags[102])
	}
}

func TestDedupInput_Options(t *testing.T) {
	in := DedupInput{
		Radius:           0.99,
		QualityWeight:    1.0,
		SizeWeight:       0.25,
		RetainSingletons: true,
		TieBreak:         dedup.TieBreakByID,
		Workers:          2,
		MediaRadius:      map[string]float32{"image": 0.98},
	}
	opts := in.Options()
	if opts.Radius != 0.99 || !opts.RetainSingletons || opts.Workers != 2 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Weights.Quality != 1.0 || opts.Weights.Size != 0.25 {
		t.Errorf("weights = %+v", opts.Weights)
	}
	if opts.TieBreak != dedup.TieBreakByID || opts.MediaRadius["image"] != 0.98 {
		t.Errorf("opts = %+v", opts)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// A malformed radius must fail retrieval with a configuration error, not
// silently group unrelated items.
func TestRetrieveActivity_RejectsInvalidRadius(t *testing.T) {
	input := setupPipeline(t)
	input.Radius = -5

	ctx := context.Background()
	if _, err := IndexActivity(ctx, input); err != nil {
		t.Fatalf("IndexActivity: %v", err)
	}
	_, err := RetrieveActivity(ctx, input, 0, 1)
	if !errors.Is(err, dedup.ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestEmitActivity_RejectsInvalidTieBreak(t *testing.T) {
	input := setupPipeline(t)
	input.TieBreak = "by_quality"
	_, err := EmitActivity(context.Background(), input, ActivityResult{
		NodesJSON:  "[]",
		EdgesJSON:  "[]",
		GroupsJSON: "[]",
	})
	if !errors.Is(err, dedup.ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

const imageDescriptions = `{"file_id":200,"file_name":"a.jpg","media_type":"image","faiss_id":10,"metadata":{"quality":{"variance":0.9}}}
{"file_id":201,"file_name":"b.jpg","media_type":"image","faiss_id":11,"metadata":{"quality":{"variance":0.8}}}
`

const imageEmbeddings = `{"faiss_id":10,"vector":[1,0]}
{"faiss_id":11,"vector":[1,0.08]}
`

func TestRetrieveActivity_MediaRadiusOverride(t *testing.T) {
	dir := t.TempDir()
	descPath := filepath.Join(dir, "descriptions.jsonl")
	embPath := filepath.Join(dir, "embeddings.jsonl")
	if err := os.WriteFile(descPath, []byte(imageDescriptions), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(embPath, []byte(imageEmbeddings), 0o644); err != nil {
		t.Fatal(err)
	}

	// The image pair sits at cosine ~0.9968: below the base radius, above
	// the image override.
	run := func(mediaRadius map[string]float32) *dedup.Graph {
		SetDependencies(&Dependencies{
			Cfg:    &config.Config{Vector: config.VectorConfig{Backend: "memory"}},
			Memory: vector.NewMemory(),
		})
		input := DedupInput{
			DescriptionsPath: descPath,
			EmbeddingsPath:   embPath,
			Radius:           0.999,
			MediaRadius:      mediaRadius,
		}
		ctx := context.Background()
		if _, err := IndexActivity(ctx, input); err != nil {
			t.Fatalf("IndexActivity: %v", err)
		}
		result, err := RetrieveActivity(ctx, input, 0, 1)
		if err != nil {
			t.Fatalf("RetrieveActivity: %v", err)
		}
		g, err := unmarshalGraph(result)
		if err != nil {
			t.Fatalf("unmarshalGraph: %v", err)
		}
		return g
	}

	if g := run(nil); g.EdgeCount() != 0 {
		t.Errorf("base radius edges = %d, want 0", g.EdgeCount())
	}
	if g := run(map[string]float32{"image": 0.99}); g.EdgeCount() != 1 {
		t.Errorf("override edges = %d, want 1", g.EdgeCount())
	}
}

func TestGraphSerializationRoundTrip(t *testing.T) {
	g := dedup.NewGraph()
	g.AddEdge(1, 2, 0.95)
	g.AddEdge(2, 3, 0.93)
	g.AddNode(9)

	result, err := marshalGraph(g)
	if err != nil {
		t.Fatalf("marshalGraph: %v", err)
	}
	back, err := unmarshalGraph(result)
	if err != nil {
		t.Fatalf("unmarshalGraph: %v", err)
	}
	if !reflect.DeepEqual(back.Nodes(), g.Nodes()) {
		t.Errorf("nodes = %v, want %v", back.Nodes(), g.Nodes())
	}
	if !reflect.DeepEqual(back.Edges(), g.Edges()) {
		t.Errorf("edges = %v, want %v", back.Edges(), g.Edges())
	}
}
