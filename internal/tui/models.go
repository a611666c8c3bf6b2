package tui

import (
	"time"

	"github.com/DeanIA/deduplication-faiss/internal/dedup"
)

// Decision represents the review state of a duplicate group
type Decision int

const (
	DecisionPending Decision = iota
	DecisionConfirmed
	DecisionDismissed
)

// String returns the string representation of Decision
func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionConfirmed:
		return "confirmed"
	case DecisionDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// GroupItem is a single duplicate group up for review.
type GroupItem struct {
	Record   dedup.GroupRecord
	Decision Decision
}

// MinSimilarity is the weakest direct link from a duplicate to the
// canonical, zero when every member is only transitively connected.
func (it *GroupItem) MinSimilarity() float64 {
	min := 0.0
	first := true
	for _, d := range it.Record.Duplicates {
		s := float64(d.SimilarityToCanonical)
		if s == 0 {
			continue
		}
		if first || s < min {
			min = s
			first = false
		}
	}
	if first {
		return 0
	}
	return min
}

// ReviewSession holds all groups for a review pass.
type ReviewSession struct {
	Items     []*GroupItem
	CreatedAt time.Time
}

// NewReviewSession creates a session from grouping output.
func NewReviewSession(records []dedup.GroupRecord) *ReviewSession {
	session := &ReviewSession{
		Items:     make([]*GroupItem, 0, len(records)),
		CreatedAt: time.Now(),
	}
	for _, rec := range records {
		session.Items = append(session.Items, &GroupItem{
			Record:   rec,
			Decision: DecisionPending,
		})
	}
	return session
}

// ConfirmedRecords returns the groups the reviewer kept. Pending groups
// count as kept, only explicit dismissals drop a group.
func (s *ReviewSession) ConfirmedRecords() []dedup.GroupRecord {
	records := make([]dedup.GroupRecord, 0, len(s.Items))
	for _, it := range s.Items {
		if it.Decision != DecisionDismissed {
			records = append(records, it.Record)
		}
	}
	return records
}
