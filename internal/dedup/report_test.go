package dedup

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/DeanIA/deduplication-faiss/internal/catalog"
)

func TestBuildRecords_DropsSingletons(t *testing.T) {
	cat := catalog.Build([]catalog.Entry{
		videoEntry(100, "a.mp4", 10, 0.9, 1),
		videoEntry(101, "b.mp4", 10, 0.8, 2),
		videoEntry(102, "c.mp4", 10, 0.7, 3),
	})
	g := NewGraph()
	g.AddEdge(1, 2, 0.95)
	g.AddNode(3)
	groups := [][]uint64{{1, 2}, {3}}

	records, err := BuildRecords(groups, g, cat, RankByScore(DefaultWeights), false)
	if err != nil {
		t.Fatalf("BuildRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (singleton dropped)", len(records))
	}

	retained, err := BuildRecords(groups, g, cat, RankByScore(DefaultWeights), true)
	if err != nil {
		t.Fatalf("BuildRecords retain: %v", err)
	}
	if len(retained) != 2 {
		t.Fatalf("records = %d, want 2 with singletons retained", len(retained))
	}
	if retained[1].Size != 1 || retained[1].Canonical.EmbeddingID != 3 {
		t.Errorf("singleton record = %+v", retained[1])
	}
}

func TestBuildRecords_SimilarityToCanonical(t *testing.T) {
	cat := catalog.Build([]catalog.Entry{
		videoEntry(100, "a.mp4", 10, 0.99, 1),
		videoEntry(101, "b.mp4", 10, 0.80, 2),
		videoEntry(102, "c.mp4", 10, 0.70, 3),
	})
	// 3 connects only through 2, so it has no direct edge to the canonical.
	g := NewGraph()
	g.AddEdge(1, 2, 0.96)
	g.AddEdge(2, 3, 0.93)

	records, err := BuildRecords([][]uint64{{1, 2, 3}}, g, cat, RankByScore(DefaultWeights), false)
	if err != nil {
		t.Fatalf("BuildRecords: %v", err)
	}
	rec := records[0]
	if rec.GroupID != 1 || rec.Size != 3 {
		t.Errorf("record header = %+v", rec)
	}
	if rec.Canonical.EmbeddingID != 1 {
		t.Fatalf("canonical = %d, want 1", rec.Canonical.EmbeddingID)
	}

	bySim := make(map[uint64]float32)
	for _, d := range rec.Duplicates {
		bySim[d.EmbeddingID] = d.SimilarityToCanonical
	}
	if bySim[2] != 0.96 {
		t.Errorf("similarity(1,2) = %v, want 0.96", bySim[2])
	}
	if bySim[3] != 0 {
		t.Errorf("similarity(1,3) = %v, want 0 (transitive only)", bySim[3])
	}
}

func TestDuplicateFlagUpdates(t *testing.T) {
	records := []GroupRecord{
		{
			Canonical: MemberRecord{FileID: 101},
			Duplicates: []MemberRecord{
				{FileID: 100},
				{FileID: 101}, // another clip of the canonical file
			},
		},
		{
			// 101 is a duplicate elsewhere but stays canonical overall.
			Canonical:  MemberRecord{FileID: 102},
			Duplicates: []MemberRecord{{FileID: 101}},
		},
	}
	updates := DuplicateFlagUpdates(records)
	if updates[100] != true {
		t.Errorf("file 100 = %v, want true", updates[100])
	}
	if updates[101] != false {
		t.Errorf("file 101 = %v, want false (canonical in some group)", updates[101])
	}
	if updates[102] != false {
		t.Errorf("file 102 = %v, want false", updates[102])
	}
}

func TestWriteGroupsJSONL(t *testing.T) {
	cat := catalog.Build([]catalog.Entry{
		videoEntry(100, "a.mp4", 10, 0.9, 1),
		videoEntry(101, "b.mp4", 10, 0.8, 2),
	})
	g := NewGraph()
	g.AddEdge(1, 2, 0.95)

	records, err := BuildRecords([][]uint64{{1, 2}}, g, cat, RankByScore(DefaultWeights), false)
	if err != nil {
		t.Fatalf("BuildRecords: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteGroupsJSONL(&buf, records); err != nil {
		t.Fatalf("WriteGroupsJSONL: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	var rec GroupRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if rec.Canonical.FileName != "a.mp4" {
		t.Errorf("canonical file = %q, want a.mp4", rec.Canonical.FileName)
	}
}
