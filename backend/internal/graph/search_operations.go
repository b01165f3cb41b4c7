package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/observability"
)

// ============================================================================
// Neighbor Search Operations
// ============================================================================

// FindNeighborsByEntity returns articles mentioning an entity whose name contains
// name and whose embedding is at least q.MinSimilarity similar to the article's.
func (r *Repository) FindNeighborsByEntity(ctx context.Context, id, name string, q NeighborQuery) (map[string]Neighbor, error) {
	defer observability.ObserveGraphOperation("neighbors_by_entity", time.Now())

	return r.findNeighbors(ctx, id, name, q, `
		MATCH (input:Article {id: $id})
		WHERE input.embedding IS NOT NULL
		MATCH (e:Entity)<-[:MENTIONS_ENTITY]-(other:Article)
		WHERE e.name CONTAINS $name AND other.id <> $id
		RETURN input.embedding AS input_embedding,
		       other.id AS id,
		       other.title AS title,
		       other.description AS description,
		       other.url AS url,
		       other.category AS category,
		       other.reaction AS reaction,
		       other.note AS note,
		       other.embedding AS embedding,
		       e.name AS matched
		ORDER BY other.id, e.name
	`)
}

// FindNeighborsByTheme is FindNeighborsByEntity over themes
func (r *Repository) FindNeighborsByTheme(ctx context.Context, id, name string, q NeighborQuery) (map[string]Neighbor, error) {
	defer observability.ObserveGraphOperation("neighbors_by_theme", time.Now())

	return r.findNeighbors(ctx, id, name, q, `
		MATCH (input:Article {id: $id})
		WHERE input.embedding IS NOT NULL
		MATCH (t:Theme)<-[:HAS_THEME]-(other:Article)
		WHERE t.name CONTAINS $name AND other.id <> $id
		RETURN input.embedding AS input_embedding,
		       other.id AS id,
		       other.title AS title,
		       other.description AS description,
		       other.url AS url,
		       other.category AS category,
		       other.reaction AS reaction,
		       other.note AS note,
		       other.embedding AS embedding,
		       t.name AS matched
		ORDER BY other.id, t.name
	`)
}

func (r *Repository) findNeighbors(ctx context.Context, id, name string, q NeighborQuery, query string) (map[string]Neighbor, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":   id,
		"name": name,
	})
	if err != nil {
		return nil, unavailable("find neighbors", err)
	}

	var input []float32
	var rows []neighborRow
	for result.Next(ctx) {
		record := result.Record()
		if input == nil {
			input = getEmbeddingFromRecord(record, "input_embedding")
		}
		rows = append(rows, neighborRow{
			Neighbor: Neighbor{
				ID:          getStringFromRecord(record, "id"),
				Title:       getStringFromRecord(record, "title"),
				Description: getStringFromRecord(record, "description"),
				URL:         getStringFromRecord(record, "url"),
				Category:    getStringFromRecord(record, "category"),
				Reaction:    getReactionFromRecord(record, "reaction"),
				Note:        getStringFromRecord(record, "note"),
				MatchedName: getStringFromRecord(record, "matched"),
			},
			Embedding: getEmbeddingFromRecord(record, "embedding"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, unavailable("find neighbors", err)
	}

	if len(rows) == 0 {
		return map[string]Neighbor{}, nil
	}
	return rankNeighbors(r.logger, id, input, rows, q), nil
}
