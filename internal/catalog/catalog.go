// Package catalog maps embedding IDs back to the media files and clips
// they were extracted from.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when an embedding ID has no catalog entry.
var ErrNotFound = errors.New("metadata not found")

// Clip is one embedded segment of a video file.
type Clip struct {
	EmbeddingID *uint64  `json:"faiss_id"`
	ClipIndex   int      `json:"clip_idx"`
	StartSec    *float64 `json:"start_s,omitempty"`
	EndSec      *float64 `json:"end_s,omitempty"`
}

// Quality holds per-file quality signals.
type Quality struct {
	Variance float64 `json:"variance"`
}

// EntryMetadata nests quality for image entries.
type EntryMetadata struct {
	Quality *Quality `json:"quality,omitempty"`
}

// Entry is one line of a descriptions JSONL file. Video entries carry a
// clips array; image entries carry a single embedding ID at the top level.
type Entry struct {
	FileID    uint64         `json:"file_id"`
	FileName  string         `json:"file_name"`
	MediaType string         `json:"media_type"`
	Prefix    string         `json:"prefix,omitempty"`
	Duration  float64        `json:"duration,omitempty"`
	Duplicate *bool          `json:"duplicate,omitempty"`
	Quality   *Quality       `json:"quality,omitempty"`
	Metadata  *EntryMetadata `json:"metadata,omitempty"`

	EmbeddingID *uint64 `json:"faiss_id,omitempty"`
	Clips       []Clip  `json:"clips,omitempty"`
}

// Item is the resolved metadata for a single embedding.
type Item struct {
	EmbeddingID uint64
	FileID      uint64
	FileName    string
	MediaType   string
	Prefix      string
	ClipIndex   int // -1 for images
	StartSec    *float64
	EndSec      *float64
	Duration    float64
	Variance    float64
}

// QualityScore is the primary ranking signal for canonical selection, higher is better.
func (it Item) QualityScore() float64 { return it.Variance }

// SizeScore is the secondary ranking signal, higher is better.
func (it Item) SizeScore() float64 { return it.Duration }

// Catalog is an immutable embedding ID → Item lookup built once at ingestion.
type Catalog struct {
	items map[uint64]Item
}

// Build constructs the lookup from parsed description entries. Entries
// without an embedding ID never made it into the index and are skipped.
func Build(entries []Entry) *Catalog {
	items := make(map[uint64]Item)
	for _, e := range entries {
		switch e.MediaType {
		case "video":
			for _, c := range e.Clips {
				if c.EmbeddingID == nil {
					continue
				}
				items[*c.EmbeddingID] = Item{
					EmbeddingID: *c.EmbeddingID,
					FileID:      e.FileID,
					FileName:    e.FileName,
					MediaType:   "video",
					Prefix:      e.Prefix,
					ClipIndex:   c.ClipIndex,
					StartSec:    c.StartSec,
					EndSec:      c.EndSec,
					Duration:    e.Duration,
					Variance:    videoVariance(e),
				}
			}
		case "image":
			if e.EmbeddingID == nil {
				continue
			}
			items[*e.EmbeddingID] = Item{
				EmbeddingID: *e.EmbeddingID,
				FileID:      e.FileID,
				FileName:    e.FileName,
				MediaType:   "image",
				Prefix:      e.Prefix,
				ClipIndex:   -1,
				Variance:    imageVariance(e),
			}
		}
	}
	return &Catalog{items: items}
}

func videoVariance(e Entry) float64 {
	if e.Quality != nil {
		return e.Quality.Variance
	}
	return 0
}

// Image entries keep quality nested under metadata.
func imageVariance(e Entry) float64 {
	if e.Metadata != nil && e.Metadata.Quality != nil {
		return e.Metadata.Quality.Variance
	}
	return 0
}

// Get resolves the metadata for an embedding ID.
func (c *Catalog) Get(id uint64) (Item, error) {
	it, ok := c.items[id]
	if !ok {
		return Item{}, fmt.Errorf("embedding %d: %w", id, ErrNotFound)
	}
	return it, nil
}

// Has reports whether an embedding ID is known.
func (c *Catalog) Has(id uint64) bool {
	_, ok := c.items[id]
	return ok
}

// IDs returns all known embedding IDs in ascending order.
func (c *Catalog) IDs() []uint64 {
	ids := make([]uint64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of catalog items.
func (c *Catalog) Len() int { return len(c.items) }
