// Package graph maintains the article similarity graph: Article nodes linked by
// SIMILAR_TO edges, plus Entity and Theme nodes reached through MENTIONS_ENTITY and
// HAS_THEME edges. It also derives the reaction-weighted graph score of an article.
//
// Two implementations share the same semantics: Repository (Neo4j) and MemoryStore.
// Operations on an unknown article id are no-ops that return empty results.
package graph

import (
	"context"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
)

// DefaultSimilarityThreshold is the minimum cosine similarity for a SIMILAR_TO edge
const DefaultSimilarityThreshold = 0.5

// Store is the single writer of graph data
type Store interface {
	// UpsertArticleNode creates or updates an article node and replaces its
	// entity, theme and similarity edges. Repeating the call never duplicates edges.
	UpsertArticleNode(ctx context.Context, node ArticleNode, entities []domain.Entity, themes []domain.Theme) error

	// UpdateReaction sets the reaction property. Edge weights are untouched.
	UpdateReaction(ctx context.Context, id string, reaction domain.Reaction) error

	// UpdateNote sets the note property
	UpdateNote(ctx context.Context, id, note string) error

	// RemoveNodes deletes articles with their edges and prunes orphaned entities and themes
	RemoveNodes(ctx context.Context, ids []string) error

	// GraphScore returns the reaction-weighted score of an article, 0 without graph presence
	GraphScore(ctx context.Context, id string) (float64, error)

	// FindNeighborsByEntity returns articles mentioning an entity whose name contains
	// name, keyed by article id
	FindNeighborsByEntity(ctx context.Context, id, name string, q NeighborQuery) (map[string]Neighbor, error)

	// FindNeighborsByTheme returns articles with a theme whose name contains name
	FindNeighborsByTheme(ctx context.Context, id, name string, q NeighborQuery) (map[string]Neighbor, error)

	// ArticleTopics returns the entities and themes attached to an article
	ArticleTopics(ctx context.Context, id string) (Topics, error)

	// Popular returns the most mentioned entities and themes
	Popular(ctx context.Context, limit int) (Popularity, error)

	Close(ctx context.Context) error
}

// mergeEntities collapses entities sharing a name, keeping the highest confidence.
// Blank names are dropped and the first-seen order is kept.
func mergeEntities(entities []domain.Entity) []domain.Entity {
	idx := make(map[string]int, len(entities))
	out := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		e.Name = trimName(e.Name)
		if e.Name == "" {
			continue
		}
		if i, ok := idx[e.Name]; ok {
			if e.Confidence > out[i].Confidence {
				out[i].Confidence = e.Confidence
			}
			if out[i].Type == "" {
				out[i].Type = e.Type
			}
			continue
		}
		idx[e.Name] = len(out)
		out = append(out, e)
	}
	return out
}

// mergeThemes collapses themes sharing a name, keeping the highest score
func mergeThemes(themes []domain.Theme) []domain.Theme {
	idx := make(map[string]int, len(themes))
	out := make([]domain.Theme, 0, len(themes))
	for _, t := range themes {
		t.Name = trimName(t.Name)
		if t.Name == "" {
			continue
		}
		if i, ok := idx[t.Name]; ok {
			if t.Score > out[i].Score {
				out[i].Score = t.Score
			}
			continue
		}
		idx[t.Name] = len(out)
		out = append(out, t)
	}
	return out
}
