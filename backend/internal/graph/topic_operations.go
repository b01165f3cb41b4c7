package graph

import (
	"context"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/observability"
)

// ============================================================================
// Entity and Theme Operations
// ============================================================================

// DefaultPopularLimit caps Popular when no limit is given
const DefaultPopularLimit = 20

// detachTopics removes an article's MENTIONS_ENTITY and HAS_THEME edges and
// decrements the mention counts they contributed
func detachTopics(ctx context.Context, tx neo4j.ManagedTransaction, id string) error {
	params := map[string]interface{}{"id": id}
	if err := run(ctx, tx, `
		MATCH (a:Article {id: $id})-[r:MENTIONS_ENTITY]->(e:Entity)
		SET e.mention_count = e.mention_count - 1
		DELETE r
	`, params); err != nil {
		return err
	}
	return run(ctx, tx, `
		MATCH (a:Article {id: $id})-[r:HAS_THEME]->(t:Theme)
		SET t.mention_count = t.mention_count - 1
		DELETE r
	`, params)
}

// writeEntities upserts Entity nodes by exact name and links them to the article.
// Names must already be unique within entities.
func writeEntities(ctx context.Context, tx neo4j.ManagedTransaction, id string, entities []domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, len(entities))
	for i, e := range entities {
		rows[i] = map[string]interface{}{
			"name":       e.Name,
			"type":       e.Type,
			"confidence": e.Confidence,
		}
	}

	return run(ctx, tx, `
		MATCH (a:Article {id: $id})
		UNWIND $entities AS ent
		MERGE (e:Entity {name: ent.name})
		ON CREATE SET e.type = ent.type,
		              e.mention_count = 1,
		              e.created_at = datetime()
		ON MATCH SET e.type = CASE WHEN ent.type <> '' THEN ent.type ELSE e.type END,
		             e.mention_count = e.mention_count + 1
		MERGE (a)-[r:MENTIONS_ENTITY]->(e)
		SET r.score = ent.confidence,
		    r.created_at = datetime()
	`, map[string]interface{}{"id": id, "entities": rows})
}

// writeThemes upserts Theme nodes by exact name and links them to the article
func writeThemes(ctx context.Context, tx neo4j.ManagedTransaction, id string, themes []domain.Theme) error {
	if len(themes) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, len(themes))
	for i, t := range themes {
		rows[i] = map[string]interface{}{"name": t.Name, "score": t.Score}
	}

	return run(ctx, tx, `
		MATCH (a:Article {id: $id})
		UNWIND $themes AS th
		MERGE (t:Theme {name: th.name})
		ON CREATE SET t.mention_count = 1,
		              t.created_at = datetime()
		ON MATCH SET t.mention_count = t.mention_count + 1
		SET t.latest_score = th.score
		MERGE (a)-[r:HAS_THEME]->(t)
		SET r.score = th.score,
		    r.created_at = datetime()
	`, map[string]interface{}{"id": id, "themes": rows})
}

// pruneOrphans deletes entities and themes no article points at anymore
func pruneOrphans(ctx context.Context, tx neo4j.ManagedTransaction) error {
	if err := run(ctx, tx, `
		MATCH (e:Entity)
		WHERE NOT (e)<-[:MENTIONS_ENTITY]-(:Article)
		DETACH DELETE e
	`, nil); err != nil {
		return err
	}
	return run(ctx, tx, `
		MATCH (t:Theme)
		WHERE NOT (t)<-[:HAS_THEME]-(:Article)
		DETACH DELETE t
	`, nil)
}

// ArticleTopics returns the entities and themes attached to an article
func (r *Repository) ArticleTopics(ctx context.Context, id string) (Topics, error) {
	defer observability.ObserveGraphOperation("article_topics", time.Now())

	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	topics := Topics{Entities: []EntityRef{}, Themes: []string{}}

	result, err := session.Run(ctx, `
		MATCH (a:Article {id: $id})
		OPTIONAL MATCH (a)-[:MENTIONS_ENTITY]->(e:Entity)
		WITH a, collect(DISTINCT {name: e.name, type: e.type}) AS entities
		OPTIONAL MATCH (a)-[:HAS_THEME]->(t:Theme)
		RETURN entities, collect(DISTINCT t.name) AS themes
	`, map[string]interface{}{"id": id})
	if err != nil {
		return topics, unavailable("fetch article topics", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return topics, unavailable("fetch article topics", err)
		}
		return topics, nil
	}
	record := result.Record()

	if raw, ok := record.Get("entities"); ok {
		if list, ok := raw.([]interface{}); ok {
			for _, item := range list {
				m, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				if name := getStringFromMap(m, "name", ""); name != "" {
					topics.Entities = append(topics.Entities, EntityRef{
						Name: name,
						Type: getStringFromMap(m, "type", ""),
					})
				}
			}
		}
	}
	if raw, ok := record.Get("themes"); ok {
		if list, ok := raw.([]interface{}); ok {
			for _, item := range list {
				if name, ok := item.(string); ok && name != "" {
					topics.Themes = append(topics.Themes, name)
				}
			}
		}
	}

	sort.Slice(topics.Entities, func(i, j int) bool { return topics.Entities[i].Name < topics.Entities[j].Name })
	sort.Strings(topics.Themes)
	return topics, nil
}

// Popular returns the entities and themes with the highest mention counts
func (r *Repository) Popular(ctx context.Context, limit int) (Popularity, error) {
	defer observability.ObserveGraphOperation("popular", time.Now())

	if limit < 1 {
		limit = DefaultPopularLimit
	}

	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	var pop Popularity
	var err error

	pop.Entities, err = readMentions(ctx, session, `
		MATCH (e:Entity)
		RETURN e.name AS name, e.type AS type, e.mention_count AS mention_count
		ORDER BY e.mention_count DESC, e.name
		LIMIT $limit
	`, limit)
	if err != nil {
		return Popularity{}, unavailable("fetch popular entities", err)
	}

	pop.Themes, err = readMentions(ctx, session, `
		MATCH (t:Theme)
		RETURN t.name AS name, '' AS type, t.mention_count AS mention_count
		ORDER BY t.mention_count DESC, t.name
		LIMIT $limit
	`, limit)
	if err != nil {
		return Popularity{}, unavailable("fetch popular themes", err)
	}

	return pop, nil
}

func readMentions(ctx context.Context, session neo4j.SessionWithContext, query string, limit int) ([]Mention, error) {
	result, err := session.Run(ctx, query, map[string]interface{}{"limit": limit})
	if err != nil {
		return nil, err
	}

	mentions := []Mention{}
	for result.Next(ctx) {
		record := result.Record()
		mentions = append(mentions, Mention{
			Name:         getStringFromRecord(record, "name"),
			Type:         getStringFromRecord(record, "type"),
			MentionCount: getInt64FromRecord(record, "mention_count"),
		})
	}
	return mentions, result.Err()
}
