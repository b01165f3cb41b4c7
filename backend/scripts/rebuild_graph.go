//go:build ignore

// rebuild_graph re-creates the Neo4j article graph from the articles stored in
// Postgres. Run it after wiping the graph or changing SIMILARITY_THRESHOLD.
//
//	go run scripts/rebuild_graph.go -days 7
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/graph"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/store"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/config"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

func main() {
	days := flag.Int("days", 1, "number of days, counting today, to rebuild")
	dryRun := flag.Bool("dry-run", false, "list the articles without touching the graph")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph rebuild...", zap.Int("days", *days))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	articles, err := store.New(ctx, cfg.PostgresDSN, log.Named("store"))
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer articles.Close()

	start, end := store.DayRange(time.Now())
	stored, err := articles.ArticlesBetween(ctx, start.AddDate(0, 0, -(*days-1)), end)
	if err != nil {
		log.Fatal("Failed to load articles", zap.Error(err))
	}
	log.Info("Loaded articles", zap.Int("count", len(stored)))

	if *dryRun {
		for _, a := range stored {
			log.Info("Would upsert",
				zap.String("id", a.ID),
				zap.String("title", a.Title),
				zap.Int("entities", len(a.Entities)),
				zap.Int("themes", len(a.Themes)),
			)
		}
		return
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(ctx)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	repo := graph.NewRepository(driver, graph.RepositoryConfig{
		Database:            cfg.Neo4jDatabase,
		SimilarityThreshold: cfg.SimilarityThreshold,
		Logger:              log.Named("graph"),
	})
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure graph schema", zap.Error(err))
	}

	failed := 0
	for _, a := range stored {
		if err := repo.UpsertArticleNode(ctx, graph.NodeFromArticle(a), a.Entities, a.Themes); err != nil {
			failed++
			log.Warn("Failed to upsert article", zap.String("id", a.ID), zap.Error(err))
		}
	}

	log.Info("Graph rebuild completed",
		zap.Int("upserted", len(stored)-failed),
		zap.Int("failed", failed),
	)
}
