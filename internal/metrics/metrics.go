package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RunMetrics collects statistics for a full grouping run.
type RunMetrics struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Duration   time.Duration  `json:"duration_ms,omitempty"`
	Catalog    CatalogMetrics `json:"catalog"`
	Grouping   GroupMetrics   `json:"grouping"`
	Stages     []StageMetrics `json:"stages"`
	Backend    string         `json:"backend"` // "qdrant" or "memory"
	Radius     float32        `json:"radius"`
	Errors     []string       `json:"errors,omitempty"`
}

type CatalogMetrics struct {
	Entries    int `json:"entries"`
	Videos     int `json:"videos"`
	Images     int `json:"images"`
	Embeddings int `json:"embeddings"`
}

type GroupMetrics struct {
	Points       int `json:"points"`
	Edges        int `json:"edges"`
	Groups       int `json:"groups"`
	NonTrivial   int `json:"non_trivial_groups"`
	Singletons   int `json:"singletons"`
	LargestGroup int `json:"largest_group"`
	FilePairs    int `json:"file_pairs"`
	OutputBytes  int `json:"output_bytes"`
}

type StageMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Errors   int           `json:"errors"`
}

// New starts tracking a grouping run.
func New() *RunMetrics {
	return &RunMetrics{StartedAt: time.Now()}
}

// CollectCatalog records input-side counts from the parsed descriptions.
func (m *RunMetrics) CollectCatalog(entries, videos, images, embeddings int) {
	m.Catalog.Entries = entries
	m.Catalog.Videos = videos
	m.Catalog.Images = images
	m.Catalog.Embeddings = embeddings
}

// CollectGrouping records the outcome of graph grouping.
func (m *RunMetrics) CollectGrouping(points, edges, groups, nonTrivial, singletons, largest int) {
	m.Grouping.Points = points
	m.Grouping.Edges = edges
	m.Grouping.Groups = groups
	m.Grouping.NonTrivial = nonTrivial
	m.Grouping.Singletons = singletons
	m.Grouping.LargestGroup = largest
}

// AddStage records a single pipeline stage's timing and status.
func (m *RunMetrics) AddStage(name string, d time.Duration, errCount int) {
	m.Stages = append(m.Stages, StageMetrics{
		Name:     name,
		Duration: d,
		Errors:   errCount,
	})
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish(errs []string) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Errors = errs
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║         DEDUPLICATION REPORT         ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Backend:     %-23s║\n", m.Backend)
	fmt.Fprintf(w, "║ Radius:      %-23v║\n", m.Radius)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ CATALOG\n")
	fmt.Fprintf(w, "║   Entries:     %d\n", m.Catalog.Entries)
	fmt.Fprintf(w, "║   Videos:      %d\n", m.Catalog.Videos)
	fmt.Fprintf(w, "║   Images:      %d\n", m.Catalog.Images)
	fmt.Fprintf(w, "║   Embeddings:  %d\n", m.Catalog.Embeddings)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ GROUPING\n")
	fmt.Fprintf(w, "║   Points:      %d\n", m.Grouping.Points)
	fmt.Fprintf(w, "║   Edges:       %d\n", m.Grouping.Edges)
	fmt.Fprintf(w, "║   Groups:      %d\n", m.Grouping.Groups)
	fmt.Fprintf(w, "║   Non-trivial: %d\n", m.Grouping.NonTrivial)
	fmt.Fprintf(w, "║   Singletons:  %d\n", m.Grouping.Singletons)
	fmt.Fprintf(w, "║   Largest:     %d\n", m.Grouping.LargestGroup)
	fmt.Fprintf(w, "║   File Pairs:  %d\n", m.Grouping.FilePairs)
	fmt.Fprintf(w, "║   Output Size: %s\n", formatBytes(m.Grouping.OutputBytes))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ STAGES\n")
	for _, s := range m.Stages {
		status := "OK"
		if s.Errors > 0 {
			status = fmt.Sprintf("%d errors", s.Errors)
		}
		fmt.Fprintf(w, "║   %-14s %8s  %s\n", s.Name, s.Duration.Round(time.Millisecond), status)
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func formatBytes(b int) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
