package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// schemaStatements are applied one by one; Neo4j runs a single schema command per query
var schemaStatements = []struct {
	name  string
	query string
}{
	{"article_id_unique", `CREATE CONSTRAINT article_id_unique IF NOT EXISTS FOR (a:Article) REQUIRE a.id IS UNIQUE`},
	{"entity_name_unique", `CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`},
	{"theme_name_unique", `CREATE CONSTRAINT theme_name_unique IF NOT EXISTS FOR (t:Theme) REQUIRE t.name IS UNIQUE`},
	{"article_url", `CREATE INDEX article_url IF NOT EXISTS FOR (a:Article) ON (a.url)`},
	{"entity_mentions", `CREATE INDEX entity_mentions IF NOT EXISTS FOR (e:Entity) ON (e.mention_count)`},
	{"theme_mentions", `CREATE INDEX theme_mentions IF NOT EXISTS FOR (t:Theme) ON (t.mention_count)`},
}

// EnsureSchema creates the uniqueness constraints that make upserts keyed by
// article id and entity/theme name safe, plus lookup indexes. It is idempotent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		result, err := session.Run(ctx, stmt.query, nil)
		if err != nil {
			return fmt.Errorf("failed to apply schema %s: %w", stmt.name, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to apply schema %s: %w", stmt.name, err)
		}
		r.logger.Debug("Schema statement applied", zap.String("name", stmt.name))
	}
	return nil
}
