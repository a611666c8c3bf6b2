package dedup

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/DeanIA/deduplication-faiss/internal/catalog"
)

// MemberRecord is the logical shape of one group member in the output.
type MemberRecord struct {
	EmbeddingID uint64   `json:"faiss_id"`
	FileID      uint64   `json:"file_id"`
	FileName    string   `json:"file_name"`
	MediaType   string   `json:"media_type"`
	Prefix      string   `json:"prefix,omitempty"`
	ClipIndex   *int     `json:"clip_idx,omitempty"`
	StartSec    *float64 `json:"start_s,omitempty"`
	EndSec      *float64 `json:"end_s,omitempty"`
	Duration    float64  `json:"duration"`
	Quality     float64  `json:"quality"`

	// Similarity of this duplicate to the canonical member. Zero when the
	// two are only transitively connected.
	SimilarityToCanonical float32 `json:"similarity_to_canonical,omitempty"`
}

// GroupRecord is one duplicate group: the canonical member plus its
// duplicates in ranked order.
type GroupRecord struct {
	GroupID    uint64         `json:"group_id"`
	Size       int            `json:"size"`
	Canonical  MemberRecord   `json:"canonical"`
	Duplicates []MemberRecord `json:"duplicates"`
}

func memberRecord(m Member) MemberRecord {
	rec := MemberRecord{
		EmbeddingID: m.ID,
		FileID:      m.Item.FileID,
		FileName:    m.Item.FileName,
		MediaType:   m.Item.MediaType,
		Prefix:      m.Item.Prefix,
		StartSec:    m.Item.StartSec,
		EndSec:      m.Item.EndSec,
		Duration:    m.Item.Duration,
		Quality:     m.Item.Variance,
	}
	if m.Item.ClipIndex >= 0 {
		idx := m.Item.ClipIndex
		rec.ClipIndex = &idx
	}
	return rec
}

// BuildRecords turns grouped IDs into output records. Singleton groups are
// dropped unless retainSingletons is set; the grouper always reports them,
// filtering is a caller decision made here.
func BuildRecords(groups [][]uint64, g *Graph, cat *catalog.Catalog, rank Ranker, retainSingletons bool) ([]GroupRecord, error) {
	var records []GroupRecord
	for _, group := range groups {
		if len(group) < 2 && !retainSingletons {
			continue
		}
		choice, err := SelectCanonical(group, cat, rank)
		if err != nil {
			return nil, err
		}

		rec := GroupRecord{
			GroupID:    group[0],
			Size:       len(group),
			Canonical:  memberRecord(choice.Canonical),
			Duplicates: make([]MemberRecord, 0, len(choice.Duplicates)),
		}
		for _, dup := range choice.Duplicates {
			dr := memberRecord(dup)
			if score, ok := g.Similarity(choice.Canonical.ID, dup.ID); ok {
				dr.SimilarityToCanonical = score
			}
			rec.Duplicates = append(rec.Duplicates, dr)
		}
		records = append(records, rec)
	}
	return records, nil
}

// DuplicateFlagUpdates derives per-file duplicate flags from group records.
// A file is flagged when it appears only on the duplicate side of its groups,
// never as a canonical.
func DuplicateFlagUpdates(records []GroupRecord) map[uint64]bool {
	updates := make(map[uint64]bool)
	for _, rec := range records {
		for _, dup := range rec.Duplicates {
			if dup.FileID != rec.Canonical.FileID {
				updates[dup.FileID] = true
			}
		}
	}
	for _, rec := range records {
		updates[rec.Canonical.FileID] = false
	}
	return updates
}

// WriteGroupsJSONL writes one group record per line.
func WriteGroupsJSONL(w io.Writer, records []GroupRecord) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode group %d: %w", rec.GroupID, err)
		}
	}
	return bw.Flush()
}

// ReadGroupsJSONL reads group records written by WriteGroupsJSONL.
func ReadGroupsJSONL(r io.Reader) ([]GroupRecord, error) {
	var records []GroupRecord
	dec := json.NewDecoder(r)
	for dec.More() {
		var rec GroupRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode group record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
