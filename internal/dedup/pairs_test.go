package dedup

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/DeanIA/deduplication-faiss/internal/catalog"
)

func TestBuildFilePairs_ClipCrossProduct(t *testing.T) {
	// File 100 contributes clips 1,2 to the group; file 101 contributes 3.
	cat := catalog.Build([]catalog.Entry{
		videoEntry(100, "a.mp4", 30, 0.9, 1, 2),
		videoEntry(101, "b.mp4", 20, 0.8, 3),
	})

	pairs := BuildFilePairs([][]uint64{{1, 2, 3}}, cat)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	p := pairs[0]
	if p.OriginalFileID != 100 || p.DuplicateFileID != 101 {
		t.Errorf("pair files = %d/%d, want 100/101", p.OriginalFileID, p.DuplicateFileID)
	}
	if p.OriginalDuration != 30 || p.DuplicateDuration != 20 {
		t.Errorf("durations = %v/%v, want 30/20", p.OriginalDuration, p.DuplicateDuration)
	}
	if len(p.Clips) != 2 {
		t.Fatalf("clips = %d, want 2 (two clips of 100 x one of 101)", len(p.Clips))
	}
	for _, cp := range p.Clips {
		if cp.Original.FileID != 100 || cp.Duplicate.FileID != 101 {
			t.Errorf("clip pair sides = %d/%d", cp.Original.FileID, cp.Duplicate.FileID)
		}
	}
}

func TestBuildFilePairs_SameFileGroupSkipped(t *testing.T) {
	// Both clips belong to one file; a file is not a duplicate of itself.
	cat := catalog.Build([]catalog.Entry{
		videoEntry(100, "a.mp4", 30, 0.9, 1, 2),
	})

	pairs := BuildFilePairs([][]uint64{{1, 2}}, cat)
	if len(pairs) != 0 {
		t.Errorf("pairs = %v, want none", pairs)
	}
}

func TestBuildFilePairs_SkipsMissingMetadata(t *testing.T) {
	cat := catalog.Build([]catalog.Entry{
		videoEntry(100, "a.mp4", 30, 0.9, 1),
		videoEntry(101, "b.mp4", 20, 0.8, 2),
	})

	// 999 has no catalog entry; the pair between 100 and 101 still emits.
	pairs := BuildFilePairs([][]uint64{{1, 2, 999}}, cat)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	if pairs[0].OriginalFileID != 100 || pairs[0].DuplicateFileID != 101 {
		t.Errorf("pair = %d/%d, want 100/101", pairs[0].OriginalFileID, pairs[0].DuplicateFileID)
	}
}

func TestBuildFilePairs_SortedOutput(t *testing.T) {
	cat := catalog.Build([]catalog.Entry{
		videoEntry(300, "c.mp4", 10, 0.9, 1),
		videoEntry(100, "a.mp4", 10, 0.9, 2),
		videoEntry(200, "b.mp4", 10, 0.9, 3),
	})

	pairs := BuildFilePairs([][]uint64{{1, 2, 3}}, cat)
	if len(pairs) != 3 {
		t.Fatalf("pairs = %d, want 3", len(pairs))
	}
	for i, want := range []struct{ a, b uint64 }{{100, 200}, {100, 300}, {200, 300}} {
		if pairs[i].OriginalFileID != want.a || pairs[i].DuplicateFileID != want.b {
			t.Errorf("pair[%d] = %d/%d, want %d/%d",
				i, pairs[i].OriginalFileID, pairs[i].DuplicateFileID, want.a, want.b)
		}
	}
}

func TestWritePairsJSONL(t *testing.T) {
	cat := catalog.Build([]catalog.Entry{
		videoEntry(100, "a.mp4", 30, 0.9, 1),
		videoEntry(101, "b.mp4", 20, 0.8, 2),
	})
	pairs := BuildFilePairs([][]uint64{{1, 2}}, cat)

	var buf bytes.Buffer
	if err := WritePairsJSONL(&buf, pairs); err != nil {
		t.Fatalf("WritePairsJSONL: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	var rec FilePairRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if rec.OriginalFileName != "a.mp4" || rec.DuplicateFileName != "b.mp4" {
		t.Errorf("names = %q/%q", rec.OriginalFileName, rec.DuplicateFileName)
	}
}
