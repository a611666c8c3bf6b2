package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/DeanIA/deduplication-faiss/internal/dedup"
	"github.com/DeanIA/deduplication-faiss/internal/graph"
)

// Neo4jRepository implements graph.Repository using Neo4j.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

func (r *Neo4jRepository) StoreGroups(ctx context.Context, records []dedup.GroupRecord) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, rec := range records {
		rec := rec
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx,
				"MERGE (c:MediaFile {file_id: $id}) SET c.file_name = $name, c.media_type = $type",
				map[string]any{
					"id":   int64(rec.Canonical.FileID),
					"name": rec.Canonical.FileName,
					"type": rec.Canonical.MediaType,
				})
			if err != nil {
				return nil, err
			}
			for _, dup := range rec.Duplicates {
				// Clips of the canonical file are not duplicates of it.
				if dup.FileID == rec.Canonical.FileID {
					continue
				}
				_, err := tx.Run(ctx,
					"MERGE (d:MediaFile {file_id: $dup}) "+
						"SET d.file_name = $name, d.media_type = $type "+
						"MERGE (c:MediaFile {file_id: $canonical}) "+
						"MERGE (d)-[rel:DUPLICATE_OF]->(c) "+
						"SET rel.similarity = $similarity, rel.group_id = $group",
					map[string]any{
						"dup":        int64(dup.FileID),
						"name":       dup.FileName,
						"type":       dup.MediaType,
						"canonical":  int64(rec.Canonical.FileID),
						"similarity": float64(dup.SimilarityToCanonical),
						"group":      int64(rec.GroupID),
					})
				if err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		if err != nil {
			return fmt.Errorf("store group %d: %w", rec.GroupID, err)
		}
	}
	return nil
}

func (r *Neo4jRepository) QueryDuplicates(ctx context.Context, fileID uint64) ([]uint64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (d:MediaFile)-[:DUPLICATE_OF]->(:MediaFile {file_id: $id}) RETURN d.file_id",
			map[string]any{"id": int64(fileID)})
		if err != nil {
			return nil, err
		}
		var ids []uint64
		for records.Next(ctx) {
			v, _ := records.Record().Get("d.file_id")
			ids = append(ids, uint64(v.(int64)))
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]uint64), nil
}

// Verify checks connectivity to the configured server.
func (r *Neo4jRepository) Verify(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var _ graph.Repository = (*Neo4jRepository)(nil)
