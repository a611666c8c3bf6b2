// Package graph provides persistent storage for duplicate relationships.
package graph

import (
	"context"

	"github.com/DeanIA/deduplication-faiss/internal/dedup"
)

// Repository provides graph storage for duplicate groups.
type Repository interface {
	// StoreGroups persists duplicate groups as file nodes and
	// DUPLICATE_OF relationships.
	StoreGroups(ctx context.Context, records []dedup.GroupRecord) error
	// QueryDuplicates returns the file IDs recorded as duplicates of the
	// given file.
	QueryDuplicates(ctx context.Context, fileID uint64) ([]uint64, error)
	// Close releases resources.
	Close(ctx context.Context) error
}
