// Package services opens the backing services of the curator (Neo4j, PostgreSQL and
// the OpenAI-compatible endpoints) and wires them into a ranking orchestrator.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/adapter"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/embedding"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/extraction"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/graph"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/ranking"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/scoring"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/source"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/store"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/config"
)

// ServiceManager owns the connections to Neo4j and PostgreSQL
type ServiceManager struct {
	cfg    *config.Config
	logger *zap.Logger

	mu       sync.Mutex
	driver   neo4j.DriverWithContext
	graph    *graph.Repository
	articles *store.PostgresStore
	embedder embedding.Provider
	orch     *ranking.Orchestrator
}

// NewServiceManager creates a manager; nothing is opened until Start
func NewServiceManager(logger *zap.Logger, cfg *config.Config) *ServiceManager {
	return &ServiceManager{cfg: cfg, logger: logger}
}

// Start connects to the databases, applies the Postgres migrations and the graph
// schema, and builds the orchestrator. Anything opened before a failure is closed.
func (sm *ServiceManager) Start(ctx context.Context) (err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.orch != nil {
		return fmt.Errorf("services already started")
	}

	defer func() {
		if err != nil {
			sm.closeLocked(context.Background())
		}
	}()

	if err := sm.openGraph(ctx); err != nil {
		return err
	}
	if err := sm.openStore(ctx); err != nil {
		return err
	}

	sm.embedder = NewEmbedder(sm.cfg)
	interest, err := scoring.NewInterestScorer(ctx, sm.embedder, sm.cfg.InterestStatement)
	if err != nil {
		return err
	}

	llm := adapter.NewLLMAdapter(sm.cfg.LLMBaseURL, sm.cfg.LLMAPIKey, sm.cfg.LLMModel)
	resolver := extraction.NewResolver(extraction.NewFileNameStore(sm.cfg.EntityStorePath), sm.logger.Named("resolver"))

	sm.orch = ranking.NewOrchestrator(ranking.Dependencies{
		Source: source.NewNewsAPI(source.Config{
			BaseURL:   sm.cfg.NewsAPIURL,
			APIKey:    sm.cfg.NewsAPIKey,
			Blacklist: sm.cfg.NewsBlacklist,
		}, sm.logger.Named("newsapi")),
		Articles: sm.articles,
		Feedback: sm.articles,
		Graph:    sm.graph,
		Embedder: sm.embedder,
		Interest: interest,
		Entities: extraction.NewEntityExtractor(llm, resolver, sm.logger.Named("entities")),
		Themes:   extraction.NewThemeExtractor(llm, sm.logger.Named("themes")),
		Logger:   sm.logger.Named("ranking"),
	}, RankingConfig(sm.cfg))

	sm.logger.Info("Services started",
		zap.String("embedding_provider", sm.embedder.Name()),
		zap.String("llm_model", llm.Model()),
	)
	return nil
}

func (sm *ServiceManager) openGraph(ctx context.Context) error {
	driver, err := neo4j.NewDriverWithContext(
		sm.cfg.Neo4jURI,
		neo4j.BasicAuth(sm.cfg.Neo4jUser, sm.cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	sm.driver = driver

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	sm.graph = graph.NewRepository(driver, graph.RepositoryConfig{
		Database:            sm.cfg.Neo4jDatabase,
		SimilarityThreshold: sm.cfg.SimilarityThreshold,
		Logger:              sm.logger.Named("graph"),
	})
	if err := sm.graph.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure graph schema: %w", err)
	}

	sm.logger.Info("Connected to Neo4j", zap.String("uri", sm.cfg.Neo4jURI))
	return nil
}

func (sm *ServiceManager) openStore(ctx context.Context) error {
	articles, err := store.New(ctx, sm.cfg.PostgresDSN, sm.logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	sm.articles = articles

	if err := articles.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate Postgres: %w", err)
	}

	sm.logger.Info("Connected to Postgres")
	return nil
}

// Orchestrator returns the wired orchestrator, nil before Start
func (sm *ServiceManager) Orchestrator() *ranking.Orchestrator {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.orch
}

// Graph returns the Neo4j graph store, nil before Start
func (sm *ServiceManager) Graph() *graph.Repository {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.graph
}

// Articles returns the Postgres article store, nil before Start
func (sm *ServiceManager) Articles() *store.PostgresStore {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.articles
}

// Shutdown closes every open connection
func (sm *ServiceManager) Shutdown(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closeLocked(ctx)
}

func (sm *ServiceManager) closeLocked(ctx context.Context) {
	if sm.articles != nil {
		sm.articles.Close()
		sm.articles = nil
	}
	if sm.driver != nil {
		if err := sm.driver.Close(ctx); err != nil {
			sm.logger.Error("Failed to close Neo4j driver", zap.Error(err))
		}
		sm.driver = nil
		sm.graph = nil
	}
	sm.orch = nil
	sm.logger.Info("Services stopped")
}

// NewEmbedder selects the embedding provider named in cfg
func NewEmbedder(cfg *config.Config) embedding.Provider {
	if cfg.EmbeddingProvider == "hash" {
		return embedding.NewHashProvider(cfg.EmbeddingDimensions)
	}
	return embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		RPS:        cfg.EmbeddingRPS,
	})
}

// RankingConfig maps configuration onto orchestrator settings
func RankingConfig(cfg *config.Config) ranking.Config {
	rc := ranking.DefaultConfig()
	rc.AdmissionThreshold = cfg.AdmissionThreshold
	rc.ReuseMinArticles = cfg.ReuseMinArticles
	rc.EntityQuery = graph.NeighborQuery{Limit: cfg.EntityNeighborLimit, MinSimilarity: cfg.NeighborMinSimilarity}
	rc.ThemeQuery = graph.NeighborQuery{Limit: cfg.ThemeNeighborLimit, MinSimilarity: cfg.NeighborMinSimilarity}
	return rc
}

// FetchConfig returns the default article source parameters from cfg
func FetchConfig(cfg *config.Config) domain.FetchConfig {
	return domain.FetchConfig{
		Country:    cfg.NewsCountry,
		Categories: cfg.NewsCategories,
		PageSize:   cfg.NewsPageSize,
	}
}
