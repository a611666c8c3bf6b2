package dedup

import (
	"fmt"
	"sort"

	"github.com/DeanIA/deduplication-faiss/internal/catalog"
)

// Weights control the composite ranking key for canonical selection.
type Weights struct {
	Quality float64
	Size    float64
}

// DefaultWeights favors quality with size as a light tie-break signal.
var DefaultWeights = Weights{Quality: 1.0, Size: 0.25}

// Member is one ranked group member.
type Member struct {
	ID   uint64
	Item catalog.Item
}

// Choice is the outcome of canonical selection for one group: the top-ranked
// member plus the remainder in ranked order.
type Choice struct {
	Canonical  Member
	Duplicates []Member
}

// Ranker reports whether a should outrank b. Implementations must define a
// total order: ties broken deterministically so repeated runs agree.
type Ranker func(a, b Member) bool

// RankByScore builds the default ranker: weighted quality+size score,
// higher first, lower ID on equal score.
func RankByScore(w Weights) Ranker {
	return func(a, b Member) bool {
		sa := w.Quality*a.Item.QualityScore() + w.Size*a.Item.SizeScore()
		sb := w.Quality*b.Item.QualityScore() + w.Size*b.Item.SizeScore()
		if sa != sb {
			return sa > sb
		}
		return a.ID < b.ID
	}
}

// SelectCanonical ranks a group's members and designates the top one
// canonical. Pure function of (group, metadata). Missing metadata for any
// member is a data-integrity failure: a duplicate relation that cannot be
// ranked cannot be reported meaningfully, so the error propagates instead
// of being skipped.
func SelectCanonical(group []uint64, cat *catalog.Catalog, rank Ranker) (Choice, error) {
	if len(group) == 0 {
		return Choice{}, fmt.Errorf("empty group: %w", ErrInconsistentGraph)
	}

	members := make([]Member, 0, len(group))
	for _, id := range group {
		item, err := cat.Get(id)
		if err != nil {
			return Choice{}, fmt.Errorf("rank group: %w", err)
		}
		members = append(members, Member{ID: id, Item: item})
	}

	sort.SliceStable(members, func(i, j int) bool { return rank(members[i], members[j]) })

	return Choice{Canonical: members[0], Duplicates: members[1:]}, nil
}
