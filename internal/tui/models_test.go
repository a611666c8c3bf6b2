package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/DeanIA/deduplication-faiss/internal/dedup"
)

func sampleRecords() []dedup.GroupRecord {
	return []dedup.GroupRecord{
		{
			GroupID:   1,
			Size:      3,
			Canonical: dedup.MemberRecord{FileID: 101, FileName: "b.mp4"},
			Duplicates: []dedup.MemberRecord{
				{FileID: 100, FileName: "a.mp4", SimilarityToCanonical: 0.9991},
				{FileID: 102, FileName: "c.mp4"}, // transitive, no direct edge
			},
		},
		{
			GroupID:   10,
			Size:      2,
			Canonical: dedup.MemberRecord{FileID: 201, FileName: "y.jpg"},
			Duplicates: []dedup.MemberRecord{
				{FileID: 200, FileName: "x.jpg", SimilarityToCanonical: 0.9995},
			},
		},
	}
}

func TestNewReviewSession(t *testing.T) {
	session := NewReviewSession(sampleRecords())
	if len(session.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(session.Items))
	}
	for _, it := range session.Items {
		if it.Decision != DecisionPending {
			t.Errorf("group %d decision = %s, want pending", it.Record.GroupID, it.Decision)
		}
	}
}

func TestGroupItem_MinSimilarity(t *testing.T) {
	session := NewReviewSession(sampleRecords())

	// Transitive members (similarity 0) are excluded from the minimum.
	if got := session.Items[0].MinSimilarity(); got < 0.999 || got > 0.9992 {
		t.Errorf("min similarity = %v, want ~0.9991", got)
	}

	empty := &GroupItem{Record: dedup.GroupRecord{GroupID: 5, Size: 1}}
	if got := empty.MinSimilarity(); got != 0 {
		t.Errorf("min similarity of singleton = %v, want 0", got)
	}
}

func TestConfirmedRecords_DropsDismissed(t *testing.T) {
	session := NewReviewSession(sampleRecords())
	session.Items[0].Decision = DecisionDismissed
	session.Items[1].Decision = DecisionConfirmed

	kept := session.ConfirmedRecords()
	if len(kept) != 1 {
		t.Fatalf("kept = %d, want 1", len(kept))
	}
	if kept[0].GroupID != 10 {
		t.Errorf("kept group = %d, want 10", kept[0].GroupID)
	}
}

func TestConfirmedRecords_PendingCountsAsKept(t *testing.T) {
	session := NewReviewSession(sampleRecords())
	if got := len(session.ConfirmedRecords()); got != 2 {
		t.Errorf("kept = %d, want 2 with all pending", got)
	}
}

func TestSaveReviewReport(t *testing.T) {
	session := NewReviewSession(sampleRecords())
	session.Items[0].Decision = DecisionConfirmed
	session.Items[1].Decision = DecisionDismissed

	path := filepath.Join(t.TempDir(), "review.json")
	if err := SaveReviewReport(session, path); err != nil {
		t.Fatalf("save report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var report ReviewReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report not valid JSON: %v", err)
	}
	if report.Summary.Confirmed != 1 || report.Summary.Dismissed != 1 || report.Summary.Pending != 0 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if len(report.Items) != 2 || report.Items[0].Decision != "confirmed" {
		t.Errorf("items = %+v", report.Items)
	}
}
