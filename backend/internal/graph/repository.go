package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/observability"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// RepositoryConfig tunes a Neo4j repository
type RepositoryConfig struct {
	Database            string
	SimilarityThreshold float64
	Logger              *zap.Logger
}

// Repository handles all Neo4j graph operations
type Repository struct {
	driver    neo4j.DriverWithContext
	database  string
	threshold float64
	logger    *zap.Logger
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext, cfg RepositoryConfig) *Repository {
	return &Repository{
		driver:    driver,
		database:  cfg.Database,
		threshold: cfg.SimilarityThreshold,
		logger:    logger.OrDefault(cfg.Logger, "graph"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

// unavailable marks a driver failure as fatal to the current batch
func unavailable(op string, err error) error {
	return apperrors.NewExternalServiceError("neo4j", fmt.Errorf("failed to %s: %w", op, err))
}

// run executes a write query inside a managed transaction and discards the result
func run(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]interface{}) error {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// UpsertArticleNode creates or updates an Article node. Existing entity, theme and
// similarity edges of the article are removed first so that repeated upserts
// replace edges rather than duplicate them, and mention counts stay exact.
func (r *Repository) UpsertArticleNode(ctx context.Context, node ArticleNode, entities []domain.Entity, themes []domain.Theme) error {
	defer observability.ObserveGraphOperation("upsert_article", time.Now())

	if node.Reaction == "" {
		node.Reaction = domain.ReactionSkipped
	}
	entities = mergeEntities(entities)
	themes = mergeThemes(themes)

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	var edgeCount int
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		err := run(ctx, tx, `
			MERGE (a:Article {id: $id})
			ON CREATE SET a.created_at = datetime()
			SET a.title = $title,
			    a.description = $description,
			    a.url = $url,
			    a.category = $category,
			    a.published_at = $published_at,
			    a.reaction = $reaction,
			    a.note = $note,
			    a.embedding = $embedding,
			    a.updated_at = datetime()
			WITH a
			OPTIONAL MATCH (a)-[s:SIMILAR_TO]-(:Article)
			DELETE s
		`, map[string]interface{}{
			"id":           node.ID,
			"title":        node.Title,
			"description":  node.Description,
			"url":          node.URL,
			"category":     node.Category,
			"published_at": node.PublishedAt.UTC(),
			"reaction":     string(node.Reaction),
			"note":         node.Note,
			"embedding":    embeddingParam(node.Embedding),
		})
		if err != nil {
			return nil, err
		}

		if err := detachTopics(ctx, tx, node.ID); err != nil {
			return nil, err
		}
		if err := writeEntities(ctx, tx, node.ID, entities); err != nil {
			return nil, err
		}
		if err := writeThemes(ctx, tx, node.ID, themes); err != nil {
			return nil, err
		}
		if err := pruneOrphans(ctx, tx); err != nil {
			return nil, err
		}

		candidates, err := readCandidates(ctx, tx, node.ID)
		if err != nil {
			return nil, err
		}
		edges, err := scanSimilar(ctx, r.logger, node.ID, node.Embedding, candidates, r.threshold)
		if err != nil {
			return nil, err
		}
		edgeCount = len(edges)
		return nil, writeSimilarEdges(ctx, tx, node.ID, edges)
	})
	if err != nil {
		return unavailable("upsert article node", err)
	}

	r.logger.Debug("Article node upserted",
		zap.String("article_id", node.ID),
		zap.Int("entities", len(entities)),
		zap.Int("themes", len(themes)),
		zap.Int("similar_edges", edgeCount),
	)
	return nil
}

func readCandidates(ctx context.Context, tx neo4j.ManagedTransaction, id string) ([]candidate, error) {
	result, err := tx.Run(ctx, `
		MATCH (other:Article)
		WHERE other.id <> $id
		RETURN other.id AS id, other.embedding AS embedding
		ORDER BY other.id
	`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for result.Next(ctx) {
		record := result.Record()
		candidates = append(candidates, candidate{
			ID:        getStringFromRecord(record, "id"),
			Embedding: getEmbeddingFromRecord(record, "embedding"),
		})
	}
	return candidates, result.Err()
}

// writeSimilarEdges writes SIMILAR_TO edges without direction: one edge per pair
func writeSimilarEdges(ctx context.Context, tx neo4j.ManagedTransaction, id string, edges []similarEdge) error {
	if len(edges) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, len(edges))
	for i, e := range edges {
		rows[i] = map[string]interface{}{"id": e.ID, "weight": e.Weight}
	}

	return run(ctx, tx, `
		MATCH (a:Article {id: $id})
		UNWIND $edges AS edge
		MATCH (b:Article {id: edge.id})
		MERGE (a)-[r:SIMILAR_TO]-(b)
		SET r.weight = edge.weight,
		    r.updated_at = datetime()
	`, map[string]interface{}{"id": id, "edges": rows})
}

// UpdateReaction sets the reaction of an article node. Missing nodes are ignored.
func (r *Repository) UpdateReaction(ctx context.Context, id string, reaction domain.Reaction) error {
	defer observability.ObserveGraphOperation("update_reaction", time.Now())

	if err := r.setProperty(ctx, id, "reaction", string(reaction)); err != nil {
		return unavailable("update reaction", err)
	}

	r.logger.Info("Article reaction updated",
		zap.String("article_id", id),
		zap.String("reaction", string(reaction)),
	)
	return nil
}

// UpdateNote sets the note of an article node. Missing nodes are ignored.
func (r *Repository) UpdateNote(ctx context.Context, id, note string) error {
	defer observability.ObserveGraphOperation("update_note", time.Now())

	if err := r.setProperty(ctx, id, "note", note); err != nil {
		return unavailable("update note", err)
	}
	return nil
}

// setProperty writes one feedback property of an article node in a managed
// transaction, so a failed commit is reported rather than lost on session close
func (r *Repository) setProperty(ctx context.Context, id, property, value string) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// property is one of the fixed feedback fields, never user input
	query := fmt.Sprintf(`
		MATCH (a:Article {id: $id})
		SET a.%s = $value,
		    a.updated_at = datetime()
	`, property)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, run(ctx, tx, query, map[string]interface{}{"id": id, "value": value})
	})
	return err
}

// RemoveNodes deletes article nodes with their edges, then prunes entities and
// themes left without any article. Unknown ids are ignored.
func (r *Repository) RemoveNodes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	defer observability.ObserveGraphOperation("remove_nodes", time.Now())

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]interface{}{"ids": ids}
		if err := run(ctx, tx, `
			MATCH (a:Article)-[:MENTIONS_ENTITY]->(e:Entity)
			WHERE a.id IN $ids
			SET e.mention_count = e.mention_count - 1
		`, params); err != nil {
			return nil, err
		}
		if err := run(ctx, tx, `
			MATCH (a:Article)-[:HAS_THEME]->(t:Theme)
			WHERE a.id IN $ids
			SET t.mention_count = t.mention_count - 1
		`, params); err != nil {
			return nil, err
		}
		if err := run(ctx, tx, `
			MATCH (a:Article)
			WHERE a.id IN $ids
			DETACH DELETE a
		`, params); err != nil {
			return nil, err
		}
		return nil, pruneOrphans(ctx, tx)
	})
	if err != nil {
		return unavailable("remove article nodes", err)
	}

	r.logger.Info("Article nodes removed", zap.Int("count", len(ids)))
	return nil
}

// GraphScore derives the reaction-weighted score of an article from its similar
// neighbors and the articles sharing its entities and themes.
func (r *Repository) GraphScore(ctx context.Context, id string) (float64, error) {
	defer observability.ObserveGraphOperation("graph_score", time.Now())

	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	score, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (a:Article {id: $id})-[r:SIMILAR_TO]-(n:Article)
			WHERE n.id <> $id
			RETURN n.reaction AS reaction, r.weight AS weight
		`, map[string]interface{}{"id": id})
		if err != nil {
			return nil, err
		}
		var sim []Contribution
		for result.Next(ctx) {
			record := result.Record()
			sim = append(sim, Contribution{
				Weight:   getFloat64FromRecord(record, "weight"),
				Reaction: getReactionFromRecord(record, "reaction"),
			})
		}
		if err := result.Err(); err != nil {
			return nil, err
		}

		entityCounts, err := readSharedCounts(ctx, tx, `
			MATCH (a:Article {id: $id})-[:MENTIONS_ENTITY]->(e:Entity)<-[:MENTIONS_ENTITY]-(o:Article)
			WHERE o.id <> $id
			RETURN o.id AS other_id, o.reaction AS reaction, count(DISTINCT e) AS shared
		`, id)
		if err != nil {
			return nil, err
		}
		themeCounts, err := readSharedCounts(ctx, tx, `
			MATCH (a:Article {id: $id})-[:HAS_THEME]->(t:Theme)<-[:HAS_THEME]-(o:Article)
			WHERE o.id <> $id
			RETURN o.id AS other_id, o.reaction AS reaction, count(DISTINCT t) AS shared
		`, id)
		if err != nil {
			return nil, err
		}

		return Combine(sim, entityContributions(entityCounts), themeContributions(themeCounts)), nil
	})
	if err != nil {
		return 0, unavailable("compute graph score", err)
	}

	return score.(float64), nil
}

func readSharedCounts(ctx context.Context, tx neo4j.ManagedTransaction, query, id string) (map[string]sharedCount, error) {
	result, err := tx.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]sharedCount)
	for result.Next(ctx) {
		record := result.Record()
		counts[getStringFromRecord(record, "other_id")] = sharedCount{
			reaction: getReactionFromRecord(record, "reaction"),
			shared:   int(getInt64FromRecord(record, "shared")),
		}
	}
	return counts, result.Err()
}
