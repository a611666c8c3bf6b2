package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunReview starts the interactive group review program.
// It shows the review screen, then transitions to summary.
// Returns the final ReviewSession with the reviewer's decisions.
func RunReview(session *ReviewSession) (*ReviewSession, error) {
	reviewModel := NewReviewModel(session)
	p := tea.NewProgram(reviewModel, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	final := finalModel.(ReviewModel)

	summaryModel := NewSummaryModel(final.session)
	sp := tea.NewProgram(summaryModel, tea.WithAltScreen())
	_, err = sp.Run()
	if err != nil {
		return nil, fmt.Errorf("summary error: %w", err)
	}

	return final.session, nil
}

// ReviewReport represents the JSON structure for the review report
type ReviewReport struct {
	Timestamp string              `json:"timestamp"`
	Items     []ReviewReportItem  `json:"items"`
	Summary   ReviewReportSummary `json:"summary"`
}

// ReviewReportItem represents a single group decision in the report
type ReviewReportItem struct {
	GroupID       uint64  `json:"group_id"`
	Canonical     string  `json:"canonical"`
	Size          int     `json:"size"`
	MinSimilarity float64 `json:"min_similarity"`
	Decision      string  `json:"decision"`
}

// ReviewReportSummary represents the summary statistics
type ReviewReportSummary struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Dismissed int `json:"dismissed"`
	Pending   int `json:"pending"`
}

// SaveReviewReport writes a JSON report of the review decisions.
func SaveReviewReport(session *ReviewSession, outputPath string) error {
	total := len(session.Items)
	confirmed := 0
	dismissed := 0
	pending := 0

	items := make([]ReviewReportItem, 0, total)
	for _, item := range session.Items {
		switch item.Decision {
		case DecisionConfirmed:
			confirmed++
		case DecisionDismissed:
			dismissed++
		case DecisionPending:
			pending++
		}

		items = append(items, ReviewReportItem{
			GroupID:       item.Record.GroupID,
			Canonical:     item.Record.Canonical.FileName,
			Size:          item.Record.Size,
			MinSimilarity: item.MinSimilarity(),
			Decision:      item.Decision.String(),
		})
	}

	report := ReviewReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Items:     items,
		Summary: ReviewReportSummary{
			Total:     total,
			Confirmed: confirmed,
			Dismissed: dismissed,
			Pending:   pending,
		},
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
