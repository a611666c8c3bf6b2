package dedup

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/DeanIA/deduplication-faiss/internal/catalog"
)

// ClipRef identifies one side of a clip-level duplicate match.
type ClipRef struct {
	FileID    uint64   `json:"file_id"`
	FileName  string   `json:"file_name"`
	MediaType string   `json:"media_type"`
	ClipIndex *int     `json:"clip_idx"`
	StartSec  *float64 `json:"start_s"`
	EndSec    *float64 `json:"end_s"`
}

// ClipPair is one matching clip pair between two files.
type ClipPair struct {
	Original  ClipRef `json:"original"`
	Duplicate ClipRef `json:"duplicate"`
}

// FilePairRecord collapses all clip-level matches between two files into one
// record, one JSONL line per file pair.
type FilePairRecord struct {
	OriginalFileID    uint64     `json:"original_file_id"`
	OriginalFileName  string     `json:"original_file_name"`
	OriginalDuration  float64    `json:"original_duration"`
	DuplicateFileID   uint64     `json:"duplicate_file_id"`
	DuplicateFileName string     `json:"duplicate_file_name"`
	DuplicateDuration float64    `json:"duplicate_duration"`
	Clips             []ClipPair `json:"clips"`
}

func clipRef(it catalog.Item) ClipRef {
	ref := ClipRef{
		FileID:    it.FileID,
		FileName:  it.FileName,
		MediaType: it.MediaType,
		StartSec:  it.StartSec,
		EndSec:    it.EndSec,
	}
	if it.ClipIndex >= 0 {
		idx := it.ClipIndex
		ref.ClipIndex = &idx
	}
	return ref
}

// BuildFilePairs lifts clip-level groups to file-level duplicate pairs.
// Within each group, members are bucketed by file; every unordered file pair
// contributes the cross product of its matching clips. Members with no
// catalog entry are skipped here — pair emission is a best-effort view,
// unlike canonical ranking which fails hard on missing metadata.
func BuildFilePairs(groups [][]uint64, cat *catalog.Catalog) []FilePairRecord {
	type pairKey struct{ a, b uint64 }
	pairClips := make(map[pairKey][]ClipPair)
	pairFiles := make(map[uint64]catalog.Item)

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		byFile := make(map[uint64][]catalog.Item)
		for _, id := range group {
			it, err := cat.Get(id)
			if err != nil {
				continue
			}
			byFile[it.FileID] = append(byFile[it.FileID], it)
		}
		if len(byFile) < 2 {
			continue
		}

		fileIDs := make([]uint64, 0, len(byFile))
		for fid := range byFile {
			fileIDs = append(fileIDs, fid)
			pairFiles[fid] = byFile[fid][0]
		}
		sort.Slice(fileIDs, func(i, j int) bool { return fileIDs[i] < fileIDs[j] })

		for i := 0; i < len(fileIDs); i++ {
			for j := i + 1; j < len(fileIDs); j++ {
				key := pairKey{a: fileIDs[i], b: fileIDs[j]}
				for _, ca := range byFile[key.a] {
					for _, cb := range byFile[key.b] {
						pairClips[key] = append(pairClips[key], ClipPair{
							Original:  clipRef(ca),
							Duplicate: clipRef(cb),
						})
					}
				}
			}
		}
	}

	keys := make([]pairKey, 0, len(pairClips))
	for key := range pairClips {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	records := make([]FilePairRecord, 0, len(keys))
	for _, key := range keys {
		orig, dup := pairFiles[key.a], pairFiles[key.b]
		records = append(records, FilePairRecord{
			OriginalFileID:    key.a,
			OriginalFileName:  orig.FileName,
			OriginalDuration:  orig.Duration,
			DuplicateFileID:   key.b,
			DuplicateFileName: dup.FileName,
			DuplicateDuration: dup.Duration,
			Clips:             pairClips[key],
		})
	}
	return records
}

// WritePairsJSONL writes one file-pair record per line.
func WritePairsJSONL(w io.Writer, records []FilePairRecord) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode pair %d-%d: %w", rec.OriginalFileID, rec.DuplicateFileID, err)
		}
	}
	return bw.Flush()
}
