package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRunMetrics_Lifecycle(t *testing.T) {
	m := New()
	if m.StartedAt.IsZero() {
		t.Fatal("StartedAt not set")
	}

	m.Backend = "memory"
	m.Radius = 0.9999
	m.CollectCatalog(10, 6, 4, 25)
	m.CollectGrouping(25, 12, 8, 3, 5, 4)
	m.AddStage("retrieve", 120*time.Millisecond, 0)
	m.AddStage("group", 5*time.Millisecond, 0)
	m.Finish(nil)

	if m.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", m.Duration)
	}
	if m.Catalog.Embeddings != 25 || m.Grouping.Groups != 8 {
		t.Errorf("collected metrics wrong: %+v", m)
	}
	if len(m.Stages) != 2 {
		t.Errorf("stages = %d, want 2", len(m.Stages))
	}
}

func TestRunMetrics_PrintSummary(t *testing.T) {
	m := New()
	m.Backend = "qdrant"
	m.CollectGrouping(100, 40, 30, 10, 20, 7)
	m.Grouping.OutputBytes = 2048
	m.AddStage("retrieve", time.Second, 0)
	m.AddStage("group", time.Millisecond, 1)
	m.Finish([]string{"one warning"})

	var buf bytes.Buffer
	m.PrintSummary(&buf)
	out := buf.String()

	for _, want := range []string{
		"DEDUPLICATION REPORT",
		"qdrant",
		"Groups:      30",
		"2.0 KB",
		"retrieve",
		"1 errors",
		"one warning",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestRunMetrics_JSON(t *testing.T) {
	m := New()
	m.Backend = "memory"
	m.Finish(nil)

	data, err := m.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if decoded["backend"] != "memory" {
		t.Errorf("backend = %v, want memory", decoded["backend"])
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
